package service

import (
	"testing"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatsWithDurations(durations ...time.Duration) []*models.Seat {
	seats := make([]*models.Seat, len(durations))
	for i, d := range durations {
		seats[i] = &models.Seat{
			SeatID:   int64(i + 1),
			Title:    "Floor 2 - Seat",
			Duration: d,
		}
	}
	return seats
}

const threshold = 2 * time.Hour

func TestFilterByPrefix(t *testing.T) {
	seats := []*models.Seat{
		{Title: "Floor 2 - Seat 1"},
		{Title: "Floor 3 - Seat 1"},
		{Title: "Floor 2 - Seat 2"},
	}

	filtered := FilterByPrefix(seats, "Floor 2")
	require.Len(t, filtered, 2)
	assert.Equal(t, "Floor 2 - Seat 1", filtered[0].Title)
	assert.Equal(t, "Floor 2 - Seat 2", filtered[1].Title)

	assert.Empty(t, FilterByPrefix(seats, "Floor 9"))
}

func TestSelectBest(t *testing.T) {
	seats := seatsWithDurations(time.Hour, 3*time.Hour, 2*time.Hour)

	best, err := SelectBest(seats, threshold)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, best.Duration)
}

func TestSelectBestAllBelowThreshold(t *testing.T) {
	seats := seatsWithDurations(time.Hour, 90*time.Minute)

	_, err := SelectBest(seats, threshold)
	assert.ErrorIs(t, err, ErrNoSeatFound)
}

func TestSelectBestNoCandidates(t *testing.T) {
	_, err := SelectBest(nil, threshold)
	assert.ErrorIs(t, err, ErrNoSeatFound)
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	seats := seatsWithDurations(3*time.Hour, 3*time.Hour)

	best, err := SelectBest(seats, threshold)
	require.NoError(t, err)
	assert.Equal(t, int64(1), best.SeatID)
}

func TestSelectWindowPrefersLaterHigherMean(t *testing.T) {
	// first qualifying pair is (0,1) with mean 2.75h; pair (3,4) must win
	seats := seatsWithDurations(3*time.Hour, 150*time.Minute, time.Hour, 3*time.Hour, 3*time.Hour)

	window, err := SelectWindow(seats, 2, threshold)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, int64(4), window[0].SeatID)
	assert.Equal(t, int64(5), window[1].SeatID)
}

func TestSelectWindowTiePrefersLater(t *testing.T) {
	seats := seatsWithDurations(3*time.Hour, 3*time.Hour, 3*time.Hour)

	window, err := SelectWindow(seats, 2, threshold)
	require.NoError(t, err)
	assert.Equal(t, int64(2), window[0].SeatID)
	assert.Equal(t, int64(3), window[1].SeatID)
}

func TestSelectWindowNotEnoughSeats(t *testing.T) {
	seats := seatsWithDurations(3*time.Hour, 3*time.Hour)

	_, err := SelectWindow(seats, 3, threshold)
	assert.ErrorIs(t, err, ErrNotEnoughSeats)
}

func TestSelectWindowNoQualifyingRun(t *testing.T) {
	// runs of qualifying seats are interrupted before reaching length 3
	seats := seatsWithDurations(3*time.Hour, 3*time.Hour, time.Hour, 3*time.Hour, 3*time.Hour)

	_, err := SelectWindow(seats, 3, threshold)
	assert.ErrorIs(t, err, ErrNotEnoughSeats)
}

func TestSelectWindowRunScanResetsOnShortSeat(t *testing.T) {
	// the consecutive count resets on a short seat; the run must restart
	seats := seatsWithDurations(3*time.Hour, time.Hour, 150*time.Minute, 4*time.Hour)

	window, err := SelectWindow(seats, 2, threshold)
	require.NoError(t, err)
	assert.Equal(t, int64(3), window[0].SeatID)
	assert.Equal(t, int64(4), window[1].SeatID)
}

func TestAnnotateDurations(t *testing.T) {
	start, _ := time.Parse("2006-01-02 15:04:05", "2026-09-01 10:00:00")
	end, _ := time.Parse("2006-01-02 15:04:05", "2026-09-01 13:00:00")
	seats := []*models.Seat{{
		Availabilities: []models.Slot{{StartTime: start, EndTime: end}},
	}}

	AnnotateDurations(seats)
	assert.Equal(t, 3*time.Hour, seats[0].Duration)
}
