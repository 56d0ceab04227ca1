package sipgate

import "errors"

var (
	// ErrUnknownTier is returned by New for an API tier other than team,
	// basic or plus.
	ErrUnknownTier = errors.New("unknown api tier")
	// ErrMalformedResponse reports a reply that lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed response")
)

// Error describes a failed call to the sipgate API: a transport error, an
// XML-RPC fault or a reply without the expected fields.
type Error struct {
	Method string // remote method name
	Err    error  // original cause
}

func (e *Error) Error() string {
	return "sipgate " + e.Method + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
