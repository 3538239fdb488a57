package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func slotAt(t *testing.T, start, end string) Slot {
	t.Helper()
	st, err := time.Parse("2006-01-02 15:04:05", start)
	assert.NoError(t, err)
	en, err := time.Parse("2006-01-02 15:04:05", end)
	assert.NoError(t, err)
	return Slot{Start: start, End: end, StartTime: st, EndTime: en, Checksum: "cs"}
}

func TestSeatSpan(t *testing.T) {
	t.Run("empty availabilities", func(t *testing.T) {
		s := &Seat{}
		assert.Equal(t, time.Duration(0), s.Span())
	})

	t.Run("single interval", func(t *testing.T) {
		s := &Seat{Availabilities: []Slot{
			slotAt(t, "2026-09-01 10:00:00", "2026-09-01 11:30:00"),
		}}
		assert.Equal(t, 90*time.Minute, s.Span())
	})

	t.Run("gaps count as covered time", func(t *testing.T) {
		s := &Seat{Availabilities: []Slot{
			slotAt(t, "2026-09-01 10:00:00", "2026-09-01 11:00:00"),
			slotAt(t, "2026-09-01 13:00:00", "2026-09-01 14:00:00"),
		}}
		assert.Equal(t, 4*time.Hour, s.Span())
	})
}

func TestBookingTransition(t *testing.T) {
	b := &Booking{State: StateCandidate}

	assert.NoError(t, b.Transition(StateReserved))
	assert.NoError(t, b.Transition(StateExtended))
	assert.NoError(t, b.Transition(StateConfirmed))

	// cannot move past the final state
	assert.Error(t, b.Transition(StateConfirmed))
}

func TestBookingTransitionRejectsSkips(t *testing.T) {
	b := &Booking{State: StateCandidate}
	assert.Error(t, b.Transition(StateExtended))
	assert.Error(t, b.Transition(StateConfirmed))
	assert.Error(t, b.Transition("bogus"))

	// zero-value state behaves as candidate
	fresh := &Booking{}
	assert.NoError(t, fresh.Transition(StateReserved))
}

func TestProfileValidate(t *testing.T) {
	valid := Profile{
		FirstName:     "Jan",
		LastName:      "de Vries",
		Email:         "j.de.vries@student.rug.nl",
		Phone:         "0612345678",
		StudentNumber: "s1234567",
	}

	assert.NoError(t, valid.Validate("@student.rug.nl"))
	assert.Equal(t, "j.de.vries", valid.EmailLocalPart())

	cases := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"missing first name", func(p *Profile) { p.FirstName = "" }},
		{"wrong email domain", func(p *Profile) { p.Email = "jan@gmail.com" }},
		{"empty local part", func(p *Profile) { p.Email = "@student.rug.nl" }},
		{"phone too short", func(p *Profile) { p.Phone = "123456" }},
		{"phone not digits", func(p *Profile) { p.Phone = "06-1234567" }},
		{"bad student number", func(p *Profile) { p.StudentNumber = "1234567" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			assert.Error(t, p.Validate("@student.rug.nl"))
		})
	}
}
