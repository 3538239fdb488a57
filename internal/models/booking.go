package models

import "fmt"

// Booking states. A booking advances strictly forward; each state change is
// authorized by the checksum from the immediately preceding server response.
const (
	StateCandidate = "candidate"
	StateReserved  = "reserved"
	StateExtended  = "extended"
	StateConfirmed = "confirmed"
)

var stateOrder = map[string]int{
	StateCandidate: 0,
	StateReserved:  1,
	StateExtended:  2,
	StateConfirmed: 3,
}

// Booking is the working record of one in-flight reservation, as decoded
// from the booking-add endpoint. Checksum always holds the token from the
// most recent response; Options and OptionChecksums are the alternative end
// times the server is willing to extend the hold to.
type Booking struct {
	ID              string   `json:"id"`
	EID             int64    `json:"eid"`
	SeatID          int64    `json:"seat_id"`
	GID             int64    `json:"gid"`
	LID             int64    `json:"lid"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Checksum        string   `json:"checksum"`
	Options         []string `json:"options"`
	OptionChecksums []string `json:"optionChecksums"`
	State           string   `json:"-"`
}

// Transition advances the booking to the next state. Only the immediate
// successor in the candidate → reserved → extended → confirmed order is
// accepted.
func (b *Booking) Transition(next string) error {
	cur, ok := stateOrder[b.State]
	if !ok {
		cur = stateOrder[StateCandidate]
	}
	want, ok := stateOrder[next]
	if !ok {
		return fmt.Errorf("unknown booking state %q", next)
	}
	if want != cur+1 {
		return fmt.Errorf("invalid booking transition %s -> %s", b.State, next)
	}
	b.State = next
	return nil
}
