package libcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/models"
)

// Seat descriptions are embedded in the availability page as arguments to a
// known call pattern. Each argument is a relaxed-syntax object literal
// (unquoted keys, single-quoted strings, trailing commas) that has to be
// rewritten into strict JSON before decoding.
var (
	resourceRe        = regexp.MustCompile(`(?s)resources\.push\(\s*(\{.*?\})\s*\);`)
	bareKeyRe         = regexp.MustCompile(`['"]?([a-zA-Z0-9_]+)['"]?\s*:`)
	trailingBraceRe   = regexp.MustCompile(`,\s*}`)
	trailingBracketRe = regexp.MustCompile(`,\s*]`)
)

// normalizeFragment rewrites a relaxed object literal into strict JSON:
// bare keys are quoted, single quotes become double quotes, and trailing
// commas before closing braces and brackets are stripped, in that order.
func normalizeFragment(raw string) string {
	s := bareKeyRe.ReplaceAllString(raw, `"$1":`)
	s = strings.ReplaceAll(s, "'", `"`)
	s = trailingBraceRe.ReplaceAllString(s, "}")
	s = trailingBracketRe.ReplaceAllString(s, "]")
	return s
}

// ParseSeatFragment normalizes one embedded seat fragment and decodes it
// into a Seat with empty availabilities.
func ParseSeatFragment(raw string) (*models.Seat, error) {
	var seat models.Seat
	if err := json.Unmarshal([]byte(normalizeFragment(raw)), &seat); err != nil {
		return nil, err
	}
	seat.Availabilities = []models.Slot{}
	return &seat, nil
}

// gridSlot is one slot entry of the grid response, keyed arbitrarily in the
// response's slots object. A non-empty ClassName marks the slot unavailable.
type gridSlot struct {
	Key       string `json:"-"`
	ItemID    int64  `json:"itemId"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Checksum  string `json:"checksum"`
	ClassName string `json:"className"`
}

// decodeGridSlots walks the grid response with a streaming decoder so slots
// come back in server emission order; the server emits them chronologically
// per seat and the engine must not re-sort.
func decodeGridSlots(body []byte) ([]gridSlot, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode grid response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode grid response: expected object, got %v", tok)
	}

	var slots []gridSlot
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode grid response: %w", err)
		}
		name, _ := keyTok.(string)

		if name != "slots" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("decode grid field %q: %w", name, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode grid slots: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return nil, fmt.Errorf("decode grid slots: expected object, got %v", tok)
		}

		for dec.More() {
			slotKeyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decode grid slot key: %w", err)
			}
			key, _ := slotKeyTok.(string)

			var slot gridSlot
			if err := dec.Decode(&slot); err != nil {
				return nil, fmt.Errorf("decode grid slot %q: %w", key, err)
			}
			slot.Key = key
			slots = append(slots, slot)
		}

		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("decode grid slots: %w", err)
		}
	}

	return slots, nil
}

// fetchGrid queries the grid endpoint for the date range and returns the
// slots in emission order.
func (c *Client) fetchGrid(ctx context.Context, startDate, endDate string) ([]gridSlot, error) {
	form := url.Values{
		"lid":       {fmt.Sprint(c.cfg.LocationID)},
		"gid":       {fmt.Sprint(c.cfg.GroupID)},
		"eid":       {fmt.Sprint(c.cfg.EventID)},
		"seat":      {"1"},
		"seatId":    {"0"},
		"zone":      {fmt.Sprint(c.cfg.Zone)},
		"start":     {startDate},
		"end":       {endDate},
		"pageIndex": {fmt.Sprint(c.cfg.PageIndex)},
		"pageSize":  {fmt.Sprint(c.cfg.PageSize)},
	}

	body, err := c.postForm(ctx, pathGrid, form)
	if err != nil {
		return nil, fmt.Errorf("availability grid: %w", err)
	}

	return decodeGridSlots(body)
}

// GetSeats returns every seat with at least one open interval on date, in
// the order the availability page lists them. The first malformed fragment
// or slot referencing an unknown seat aborts the whole query.
func (c *Client) GetSeats(ctx context.Context, date time.Time) ([]*models.Seat, error) {
	page, err := c.fetchAvailabilityPage(ctx)
	if err != nil {
		return nil, err
	}

	startDate := date.Format(dateLayout)
	endDate := date.AddDate(0, 0, 1).Format(dateLayout)

	fragments := resourceRe.FindAllStringSubmatch(page, -1)
	ordered := make([]*models.Seat, 0, len(fragments))
	byID := make(map[int64]*models.Seat, len(fragments))
	for i, m := range fragments {
		seat, err := ParseSeatFragment(m[1])
		if err != nil {
			return nil, &ParseError{Fragment: i, Err: err}
		}
		seat.StartDate = startDate
		seat.EndDate = endDate
		byID[seat.SeatID] = seat
		ordered = append(ordered, seat)
	}

	slots, err := c.fetchGrid(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		if slot.ClassName != "" {
			// marked unavailable, e.g. already booked
			continue
		}

		seat, ok := byID[slot.ItemID]
		if !ok {
			return nil, &ParseError{Fragment: -1, SlotKey: slot.Key,
				Err: fmt.Errorf("slot references unknown seat %d", slot.ItemID)}
		}

		startTime, err := time.ParseInLocation(timeLayout, slot.Start, c.loc)
		if err != nil {
			return nil, &ParseError{Fragment: -1, SlotKey: slot.Key, Err: err}
		}
		endTime, err := time.ParseInLocation(timeLayout, slot.End, c.loc)
		if err != nil {
			return nil, &ParseError{Fragment: -1, SlotKey: slot.Key, Err: err}
		}

		seat.Availabilities = append(seat.Availabilities, models.Slot{
			Start:     slot.Start,
			End:       slot.End,
			StartTime: startTime,
			EndTime:   endTime,
			Checksum:  slot.Checksum,
		})
	}

	available := make([]*models.Seat, 0, len(ordered))
	for _, seat := range ordered {
		if len(seat.Availabilities) > 0 {
			available = append(available, seat)
		}
	}

	c.logger.Debug().
		Int("seats", len(ordered)).
		Int("available", len(available)).
		Str("date", startDate).
		Msg("seat catalog loaded")

	return available, nil
}
