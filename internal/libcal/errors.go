package libcal

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse signals a reserve or extend response whose bookings
// collection is missing, not an array, or empty.
var ErrUnexpectedResponse = errors.New("unexpected booking response")

// ParseError reports a seat fragment or grid slot that could not be
// interpreted. Parsing is fail-fast: the first bad record aborts the query.
type ParseError struct {
	Fragment int    // index of the offending markup fragment, -1 when not fragment-related
	SlotKey  string // grid slot key, empty when not slot-related
	Err      error
}

func (e *ParseError) Error() string {
	if e.SlotKey != "" {
		return fmt.Sprintf("parse grid slot %q: %v", e.SlotKey, e.Err)
	}
	return fmt.Sprintf("parse seat fragment %d: %v", e.Fragment, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfirmRejectedError is a confirm request the server refused. Body holds
// the raw response for diagnostics.
type ConfirmRejectedError struct {
	Status int
	Body   string
}

func (e *ConfirmRejectedError) Error() string {
	return fmt.Sprintf("booking confirmation rejected with status %d", e.Status)
}
