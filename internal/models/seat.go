package models

import "time"

// Slot is one bookable interval of a seat. Start and End carry the service's
// string timestamps verbatim because booking requests must echo them exactly;
// StartTime and EndTime are their parsed forms in the service timezone.
type Slot struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	StartTime time.Time `json:"-"`
	EndTime   time.Time `json:"-"`
	Checksum  string    `json:"checksum"`
}

// Seat is one bookable resource together with its open intervals for a single
// day. The identifier fields mirror the seat fragments embedded in the
// availability page.
type Seat struct {
	SeatID int64  `json:"seatId"`
	EID    int64  `json:"eid"`
	GID    int64  `json:"gid"`
	LID    int64  `json:"lid"`
	Title  string `json:"title"`

	// StartDate and EndDate bound the queried day (end is exclusive).
	StartDate string `json:"-"`
	EndDate   string `json:"-"`

	// Availabilities holds the seat's open slots in the order the grid
	// emitted them, chronological per seat.
	Availabilities []Slot `json:"-"`

	// Duration is the annotated span used for seat selection.
	Duration time.Duration `json:"-"`
}

// Span is the wall-clock distance from the first open slot's start to the
// last one's end. Gaps between slots count toward the span.
func (s *Seat) Span() time.Duration {
	if len(s.Availabilities) == 0 {
		return 0
	}
	first := s.Availabilities[0].StartTime
	last := s.Availabilities[len(s.Availabilities)-1].EndTime
	return last.Sub(first)
}
