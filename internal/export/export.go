// Package export writes availability listings to Excel files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Availability"

// SeatsToExcel writes seats and their open slots for date into an xlsx file
// under dir with a timestamped name, returning the file path.
func SeatsToExcel(dir, date string, seats []*models.Seat) (string, error) {
	fileName := fmt.Sprintf("availability_%s_%s.xlsx", date, time.Now().Format("150405"))
	path := filepath.Join(dir, fileName)
	if err := SeatsToFile(path, date, seats); err != nil {
		return "", err
	}
	return path, nil
}

// SeatsToFile writes the availability listing to the exact path given by the
// caller.
func SeatsToFile(path, date string, seats []*models.Seat) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating export directory: %v", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Seat availability for %s", date))

	headers := []string{"Seat", "First free", "Last free", "Open slots", "Span"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for row, seat := range seats {
		values := []any{
			seat.Title,
			firstStart(seat),
			lastEnd(seat),
			len(seat.Availabilities),
			seat.Duration.String(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 30)
	_ = f.SetColWidth(sheetName, "B", "E", 20)
	_ = f.MergeCell(sheetName, "A1", "E1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving file: %v", err)
	}

	return nil
}

func firstStart(seat *models.Seat) string {
	if len(seat.Availabilities) == 0 {
		return ""
	}
	return seat.Availabilities[0].Start
}

func lastEnd(seat *models.Seat) string {
	if len(seat.Availabilities) == 0 {
		return ""
	}
	return seat.Availabilities[len(seat.Availabilities)-1].End
}
