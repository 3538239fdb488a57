package libcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clemjvdm/libcal-cli/internal/models"
)

// Field codes of the external booking form. These are service-side
// identifiers, not anything this tool chooses.
const (
	fieldPhone         = "q731"
	fieldStudentNumber = "q749"
	confirmSession     = "1"
	confirmMethod      = "13"
)

// BookingRequest carries the seat to book and the requester identity. The
// attempt tag derives a unique email alias so the service treats repeated
// bookings by the same mailbox as distinct submissions.
type BookingRequest struct {
	Seat          *models.Seat
	EmailLocal    string
	AttemptTag    int
	EmailDomain   string
	FirstName     string
	LastName      string
	Phone         string
	StudentNumber string
}

// BookingResult reports a confirmed reservation.
type BookingResult struct {
	Seat  string
	Start string
	End   string
}

// decodeBookings requires a response whose bookings field is a non-empty
// array; anything else is ErrUnexpectedResponse.
func decodeBookings(body []byte) ([]models.Booking, error) {
	var resp struct {
		Bookings json.RawMessage `json:"bookings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if len(resp.Bookings) == 0 {
		return nil, fmt.Errorf("%w: no bookings field", ErrUnexpectedResponse)
	}

	var bookings []models.Booking
	if err := json.Unmarshal(resp.Bookings, &bookings); err != nil {
		return nil, fmt.Errorf("%w: bookings is not an array: %v", ErrUnexpectedResponse, err)
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("%w: empty bookings array", ErrUnexpectedResponse)
	}
	return bookings, nil
}

// BookSeat runs the three-phase commit for one seat: reserve the first open
// interval, extend the hold to the longest end the server offers, then
// confirm with the requester identity. Each phase authorizes itself with the
// checksum from the immediately preceding response.
func (c *Client) BookSeat(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	seat := req.Seat
	if len(seat.Availabilities) == 0 {
		return nil, fmt.Errorf("seat %q has no open interval", seat.Title)
	}

	booking, err := c.reserve(ctx, seat)
	if err != nil {
		return nil, fmt.Errorf("reserve seat %q: %w", seat.Title, err)
	}
	c.logger.Debug().Str("seat", seat.Title).Str("booking_id", booking.ID).Msg("seat reserved")

	booking, err = c.extend(ctx, seat, booking)
	if err != nil {
		return nil, fmt.Errorf("extend booking for seat %q: %w", seat.Title, err)
	}
	c.logger.Debug().Str("seat", seat.Title).Str("end", booking.End).Msg("hold extended")

	if err := c.confirm(ctx, seat, booking, req); err != nil {
		return nil, fmt.Errorf("confirm booking for seat %q: %w", seat.Title, err)
	}
	c.logger.Info().Str("seat", seat.Title).Str("start", booking.Start).Str("end", booking.End).Msg("booking confirmed")

	return &BookingResult{Seat: seat.Title, Start: booking.Start, End: booking.End}, nil
}

// reserve places a provisional hold on the seat's first open interval using
// the interval's own checksum as the compare-and-swap token.
func (c *Client) reserve(ctx context.Context, seat *models.Seat) (*models.Booking, error) {
	first := seat.Availabilities[0]
	form := url.Values{
		"add[eid]":      {strconv.FormatInt(seat.EID, 10)},
		"add[seat_id]":  {strconv.FormatInt(seat.SeatID, 10)},
		"add[gid]":      {strconv.FormatInt(seat.GID, 10)},
		"add[lid]":      {strconv.FormatInt(seat.LID, 10)},
		"add[start]":    {first.Start},
		"add[checksum]": {first.Checksum},
		"lid":           {strconv.FormatInt(seat.LID, 10)},
		"gid":           {strconv.FormatInt(seat.GID, 10)},
		"start":         {seat.StartDate},
		"end":           {seat.EndDate},
	}

	body, err := c.postForm(ctx, pathBookingAdd, form)
	if err != nil {
		return nil, err
	}

	bookings, err := decodeBookings(body)
	if err != nil {
		return nil, err
	}

	booking := bookings[0]
	if err := booking.Transition(models.StateReserved); err != nil {
		return nil, err
	}
	return &booking, nil
}

// extend advances the hold's end to the last (longest) option the server
// offered, authorized by the matching option checksum, and echoes the full
// booking tuple back as confirmation context.
func (c *Client) extend(ctx context.Context, seat *models.Seat, booking *models.Booking) (*models.Booking, error) {
	if len(booking.Options) == 0 || len(booking.OptionChecksums) == 0 {
		return nil, fmt.Errorf("%w: hold has no extension options", ErrUnexpectedResponse)
	}

	form := url.Values{
		"update[id]":            {booking.ID},
		"update[checksum]":      {booking.OptionChecksums[len(booking.OptionChecksums)-1]},
		"update[end]":           {booking.Options[len(booking.Options)-1]},
		"lid":                   {strconv.FormatInt(booking.LID, 10)},
		"gid":                   {strconv.FormatInt(c.cfg.GroupID, 10)},
		"start":                 {seat.StartDate},
		"end":                   {seat.EndDate},
		"bookings[0][id]":       {booking.ID},
		"bookings[0][eid]":      {strconv.FormatInt(booking.EID, 10)},
		"bookings[0][seat_id]":  {strconv.FormatInt(booking.SeatID, 10)},
		"bookings[0][gid]":      {strconv.FormatInt(booking.GID, 10)},
		"bookings[0][lid]":      {strconv.FormatInt(booking.LID, 10)},
		"bookings[0][start]":    {booking.Start},
		"bookings[0][end]":      {booking.End},
		"bookings[0][checksum]": {booking.Checksum},
	}

	body, err := c.postForm(ctx, pathBookingAdd, form)
	if err != nil {
		return nil, err
	}

	bookings, err := decodeBookings(body)
	if err != nil {
		return nil, err
	}

	// the replacement record inherits the hold's state before advancing
	updated := bookings[0]
	updated.State = booking.State
	if err := updated.Transition(models.StateExtended); err != nil {
		return nil, err
	}
	return &updated, nil
}

// confirm finalizes the hold with the requester identity. The email alias is
// {local}+{tag}{domain}; the return URL uses the global all-seats group id
// rather than the seat's own, matching what the service's own form submits.
func (c *Client) confirm(ctx context.Context, seat *models.Seat, booking *models.Booking, req BookingRequest) error {
	tuple, err := json.Marshal([]struct {
		ID       string `json:"id"`
		EID      int64  `json:"eid"`
		SeatID   int64  `json:"seat_id"`
		GID      int64  `json:"gid"`
		LID      int64  `json:"lid"`
		Start    string `json:"start"`
		End      string `json:"end"`
		Checksum string `json:"checksum"`
	}{{
		ID:       booking.ID,
		EID:      booking.EID,
		SeatID:   booking.SeatID,
		GID:      booking.GID,
		LID:      booking.LID,
		Start:    booking.Start,
		End:      booking.End,
		Checksum: booking.Checksum,
	}})
	if err != nil {
		return err
	}

	returnQuery := url.Values{
		"lid":      {strconv.FormatInt(booking.LID, 10)},
		"gid":      {strconv.FormatInt(c.cfg.GroupID, 10)},
		"zone":     {strconv.FormatInt(c.cfg.Zone, 10)},
		"capacity": {strconv.FormatInt(c.cfg.Capacity, 10)},
		"date":     {seat.StartDate},
		"start":    {""},
		"end":      {""},
	}

	fields := map[string]string{
		"session":          confirmSession,
		"fname":            req.FirstName,
		"lname":            req.LastName,
		"email":            fmt.Sprintf("%s+%d%s", req.EmailLocal, req.AttemptTag, req.EmailDomain),
		fieldPhone:         req.Phone,
		fieldStudentNumber: req.StudentNumber,
		"bookings":         string(tuple),
		"returnUrl":        "/r/new?" + returnQuery.Encode(),
		"pickupHolds":      "",
		"method":           confirmMethod,
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pathConfirm, &buf)
	if err != nil {
		return fmt.Errorf("build confirm request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Origin", c.cfg.BaseURL)
	if referer, ok := c.cfg.Headers["Referer"]; ok {
		httpReq.Header.Set("Referer", referer)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(httpReq)
	if err != nil {
		return fmt.Errorf("confirm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &ConfirmRejectedError{Status: resp.StatusCode, Body: string(body)}
	}

	return booking.Transition(models.StateConfirmed)
}
