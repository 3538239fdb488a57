package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/config"
	"github.com/clemjvdm/libcal-cli/internal/history"
	"github.com/clemjvdm/libcal-cli/internal/libcal"
	"github.com/clemjvdm/libcal-cli/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetSeats(ctx context.Context, date time.Time) ([]*models.Seat, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Seat), args.Error(1)
}

func (m *mockClient) BookSeat(ctx context.Context, req libcal.BookingRequest) (*libcal.BookingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*libcal.BookingResult), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) RecordAttempt(ctx context.Context, a history.Attempt) error {
	return m.Called(ctx, a).Error(0)
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		MinDuration: 2 * time.Hour,
		EmailDomain: "@student.rug.nl",
	}
}

func testProfile() *models.Profile {
	return &models.Profile{
		FirstName:     "Jan",
		LastName:      "de Vries",
		Email:         "j.de.vries@student.rug.nl",
		Phone:         "0612345678",
		StudentNumber: "s1234567",
		Mod:           2,
	}
}

func seatRange(durations ...time.Duration) []*models.Seat {
	seats := make([]*models.Seat, len(durations))
	for i, d := range durations {
		start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		seats[i] = &models.Seat{
			SeatID: int64(i + 1),
			Title:  "Floor 2 - Seat",
			Availabilities: []models.Slot{{
				Start:     start.Format("2006-01-02 15:04:05"),
				End:       start.Add(d).Format("2006-01-02 15:04:05"),
				StartTime: start,
				EndTime:   start.Add(d),
				Checksum:  "cs",
			}},
		}
	}
	return seats
}

func newTestService(client SeatClient, journal Journal) *BookingService {
	logger := zerolog.Nop()
	return NewBookingService(client, journal, testBookingConfig(), &logger)
}

func TestBookSelectsLongestSeat(t *testing.T) {
	client := new(mockClient)
	seats := seatRange(time.Hour, 3*time.Hour, 150*time.Minute)
	seats[1].Title = "Floor 2 - Seat B"

	client.On("GetSeats", mock.Anything, mock.Anything).Return(seats, nil)
	client.On("BookSeat", mock.Anything, mock.MatchedBy(func(req libcal.BookingRequest) bool {
		return req.Seat.SeatID == 2 && req.AttemptTag == 3 && req.EmailLocal == "j.de.vries"
	})).Return(&libcal.BookingResult{Seat: "Floor 2 - Seat B", Start: "s", End: "e"}, nil)

	p := testProfile()
	result, err := newTestService(client, nil).Book(context.Background(), "Floor 2", 0, p)

	require.NoError(t, err)
	assert.Equal(t, "Floor 2 - Seat B", result.Seat)
	assert.Equal(t, 3, p.Mod, "counter advances exactly once")
	client.AssertExpectations(t)
}

func TestBookSelectionFailureSkipsTransactor(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(time.Hour, 90*time.Minute), nil)

	p := testProfile()
	_, err := newTestService(client, nil).Book(context.Background(), "Floor 2", 0, p)

	assert.ErrorIs(t, err, ErrNoSeatFound)
	assert.Equal(t, 2, p.Mod, "counter untouched when nothing was attempted")
	client.AssertNotCalled(t, "BookSeat", mock.Anything, mock.Anything)
}

func TestBookCounterAdvancesOnFailedAttempt(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(3*time.Hour), nil)
	client.On("BookSeat", mock.Anything, mock.Anything).Return(nil, errors.New("rejected"))

	p := testProfile()
	_, err := newTestService(client, nil).Book(context.Background(), "Floor 2", 0, p)

	assert.Error(t, err)
	assert.Equal(t, 3, p.Mod, "a failed attempt still spends its alias")
}

func TestSequentialBookingsUseDistinctAliases(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(3*time.Hour), nil)

	var tags []int
	client.On("BookSeat", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		tags = append(tags, args.Get(1).(libcal.BookingRequest).AttemptTag)
	}).Return(&libcal.BookingResult{Seat: "s"}, nil)

	svc := newTestService(client, nil)
	p := testProfile()

	_, err := svc.Book(context.Background(), "Floor 2", 0, p)
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), "Floor 2", 0, p)
	require.NoError(t, err)

	require.Len(t, tags, 2)
	assert.Equal(t, []int{3, 4}, tags)
}

func TestBookGroupSequentialBestEffort(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(3*time.Hour, 3*time.Hour), nil)

	// first seat fails, second succeeds; the loop must continue
	client.On("BookSeat", mock.Anything, mock.MatchedBy(func(req libcal.BookingRequest) bool {
		return req.Seat.SeatID == 1
	})).Return(nil, errors.New("taken"))
	client.On("BookSeat", mock.Anything, mock.MatchedBy(func(req libcal.BookingRequest) bool {
		return req.Seat.SeatID == 2
	})).Return(&libcal.BookingResult{Seat: "Floor 2 - Seat"}, nil)

	p := testProfile()
	results, err := newTestService(client, nil).BookGroup(context.Background(), "Floor 2", 0, 2, p)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 4, p.Mod, "one increment per attempted seat, failures included")
}

func TestBookGroupInsufficientSeats(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(3*time.Hour, 3*time.Hour), nil)

	p := testProfile()
	_, err := newTestService(client, nil).BookGroup(context.Background(), "Floor 2", 0, 3, p)

	assert.ErrorIs(t, err, ErrNotEnoughSeats)
	assert.Equal(t, 2, p.Mod)
	client.AssertNotCalled(t, "BookSeat", mock.Anything, mock.Anything)
}

func TestAttemptsAreJournaled(t *testing.T) {
	client := new(mockClient)
	client.On("GetSeats", mock.Anything, mock.Anything).Return(seatRange(3*time.Hour), nil)
	client.On("BookSeat", mock.Anything, mock.Anything).Return(nil, errors.New("rejected"))

	journal := new(mockJournal)
	journal.On("RecordAttempt", mock.Anything, mock.MatchedBy(func(a history.Attempt) bool {
		return a.Status == history.StatusFailed && a.EmailAlias == "j.de.vries+3@student.rug.nl"
	})).Return(nil)

	p := testProfile()
	_, err := newTestService(client, journal).Book(context.Background(), "Floor 2", 0, p)

	assert.Error(t, err)
	journal.AssertExpectations(t)
}
