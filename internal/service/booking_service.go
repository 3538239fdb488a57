package service

import (
	"context"
	"fmt"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/config"
	"github.com/clemjvdm/libcal-cli/internal/history"
	"github.com/clemjvdm/libcal-cli/internal/libcal"
	"github.com/clemjvdm/libcal-cli/internal/metrics"
	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/rs/zerolog"
)

// SeatClient is the remote-service surface the engine drives.
type SeatClient interface {
	GetSeats(ctx context.Context, date time.Time) ([]*models.Seat, error)
	BookSeat(ctx context.Context, req libcal.BookingRequest) (*libcal.BookingResult, error)
}

// Journal records booking attempts. Optional; a nil journal disables it.
type Journal interface {
	RecordAttempt(ctx context.Context, a history.Attempt) error
}

// GroupResult is the per-seat outcome of a group booking.
type GroupResult struct {
	Seat   string
	Result *libcal.BookingResult
	Err    error
}

// BookingService orchestrates parser, selector and transactor for one
// booking invocation. Remote calls never overlap: the extend and confirm
// phases depend on server-side checksum state that is not known to tolerate
// concurrent mutation.
type BookingService struct {
	client      SeatClient
	journal     Journal
	minDuration time.Duration
	emailDomain string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewBookingService(client SeatClient, journal Journal, cfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		client:      client,
		journal:     journal,
		minDuration: cfg.MinDuration,
		emailDomain: cfg.EmailDomain,
		logger:      logger.With().Str("component", "booking-service").Logger(),
		now:         time.Now,
	}
}

// candidates loads the seats for the target date, filters them by name
// prefix and annotates their spans.
func (s *BookingService) candidates(ctx context.Context, seatName string, dayOffset int) ([]*models.Seat, error) {
	date := s.now().AddDate(0, 0, dayOffset)

	seats, err := s.client.GetSeats(ctx, date)
	if err != nil {
		return nil, err
	}

	matches := FilterByPrefix(seats, seatName)
	AnnotateDurations(matches)
	return matches, nil
}

// Book reserves the single best seat whose title starts with seatName on
// today+dayOffset. The profile's attempt counter is incremented exactly once
// before the transactor runs; the caller must persist the profile afterwards
// even when the booking failed.
func (s *BookingService) Book(ctx context.Context, seatName string, dayOffset int, p *models.Profile) (*libcal.BookingResult, error) {
	matches, err := s.candidates(ctx, seatName, dayOffset)
	if err != nil {
		return nil, err
	}

	best, err := SelectBest(matches, s.minDuration)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seat", best.Title).
		Dur("span", best.Duration).
		Msg("selected seat")

	return s.attempt(ctx, best, p)
}

// BookGroup reserves a contiguous block of groupSize seats. Seats are booked
// one at a time, in window order; a failed seat is reported and the loop
// moves on, so partial success is possible and visible per seat.
func (s *BookingService) BookGroup(ctx context.Context, seatName string, dayOffset, groupSize int, p *models.Profile) ([]GroupResult, error) {
	matches, err := s.candidates(ctx, seatName, dayOffset)
	if err != nil {
		return nil, err
	}

	window, err := SelectWindow(matches, groupSize, s.minDuration)
	if err != nil {
		return nil, err
	}

	results := make([]GroupResult, 0, len(window))
	for _, seat := range window {
		result, err := s.attempt(ctx, seat, p)
		if err != nil {
			s.logger.Error().Err(err).Str("seat", seat.Title).Msg("group booking seat failed")
		}
		results = append(results, GroupResult{Seat: seat.Title, Result: result, Err: err})
	}
	return results, nil
}

// attempt runs the transactor once for seat, spending one email alias.
func (s *BookingService) attempt(ctx context.Context, seat *models.Seat, p *models.Profile) (*libcal.BookingResult, error) {
	p.Mod++
	alias := fmt.Sprintf("%s+%d%s", p.EmailLocalPart(), p.Mod, s.emailDomain)

	result, err := s.client.BookSeat(ctx, libcal.BookingRequest{
		Seat:          seat,
		EmailLocal:    p.EmailLocalPart(),
		AttemptTag:    p.Mod,
		EmailDomain:   s.emailDomain,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Phone:         p.Phone,
		StudentNumber: p.StudentNumber,
	})

	s.journalAttempt(ctx, seat, alias, result, err)
	if err != nil {
		metrics.IncBooking(history.StatusFailed)
		return nil, err
	}
	metrics.IncBooking(history.StatusConfirmed)
	return result, nil
}

func (s *BookingService) journalAttempt(ctx context.Context, seat *models.Seat, alias string, result *libcal.BookingResult, bookErr error) {
	if s.journal == nil {
		return
	}

	a := history.Attempt{
		Seat:       seat.Title,
		EmailAlias: alias,
		Status:     history.StatusConfirmed,
	}
	if result != nil {
		a.Start = result.Start
		a.End = result.End
	}
	if bookErr != nil {
		a.Status = history.StatusFailed
		a.Error = bookErr.Error()
	}

	if err := s.journal.RecordAttempt(ctx, a); err != nil {
		s.logger.Warn().Err(err).Msg("failed to journal booking attempt")
	}
}
