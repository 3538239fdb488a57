package service

import (
	"errors"
	"strings"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/models"
)

var (
	// ErrNoSeatFound means no filtered seat meets the minimum duration.
	ErrNoSeatFound = errors.New("no seat matching the criteria was found")

	// ErrNotEnoughSeats means no run of adjacent qualifying seats is long
	// enough for the requested group.
	ErrNotEnoughSeats = errors.New("not enough seats matching the criteria were found")
)

// FilterByPrefix keeps seats whose title starts with name, preserving order.
func FilterByPrefix(seats []*models.Seat, name string) []*models.Seat {
	filtered := make([]*models.Seat, 0, len(seats))
	for _, seat := range seats {
		if strings.HasPrefix(seat.Title, name) {
			filtered = append(filtered, seat)
		}
	}
	return filtered
}

// AnnotateDurations fills each seat's derived Duration field.
func AnnotateDurations(seats []*models.Seat) {
	for _, seat := range seats {
		seat.Duration = seat.Span()
	}
}

// SelectBest returns the seat with the longest available span. Ties keep the
// first seat encountered. Below-threshold maxima count as not found.
func SelectBest(seats []*models.Seat, minDuration time.Duration) (*models.Seat, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeatFound
	}

	best := seats[0]
	for _, seat := range seats {
		if seat.Duration > best.Duration {
			best = seat
		}
	}

	if best.Duration < minDuration {
		return nil, ErrNoSeatFound
	}
	return best, nil
}

// SelectWindow finds the run of group consecutive seats with the highest
// mean span. Seats are in service order, which corresponds to physical
// adjacency. The scan first locates the earliest run of group seats that
// each individually meet the threshold, then slides forward keeping an O(1)
// running mean; a sub-threshold seat only gates entry into the window, it is
// not re-checked once inside. Equal means prefer the later window.
func SelectWindow(seats []*models.Seat, group int, minDuration time.Duration) ([]*models.Seat, error) {
	if group < 1 || len(seats) < group {
		return nil, ErrNotEnoughSeats
	}

	k := -1
	done := 0
	for done != group && k+1 < len(seats) {
		k++
		if seats[k].Duration >= minDuration {
			done++
		} else {
			done = 0
		}
	}
	if done != group {
		return nil, ErrNotEnoughSeats
	}

	mean := 0.0
	for i := k - group + 1; i <= k; i++ {
		mean += float64(seats[i].Duration) / float64(group)
	}

	best := mean
	bestEnd := k
	for i := k + 1; i < len(seats); i++ {
		if seats[i].Duration < minDuration {
			continue
		}
		mean += (float64(seats[i].Duration) - float64(seats[i-group].Duration)) / float64(group)
		if mean >= best {
			best = mean
			bestEnd = i
		}
	}

	return seats[bestEnd-group+1 : bestEnd+1], nil
}
