package smstrade

import "errors"

var (
	ErrTooLong            = errors.New("message too long")
	ErrEncoding           = errors.New("message can not be encoded")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrConfig             = errors.New("invalid configuration")
	ErrHTTPStatus         = errors.New("unexpected http status")
)

// Error describes a failed smstrade operation: a rejected message, a
// transport failure or an unreadable response.
type Error struct {
	Op      string // operation: check, send or balance
	Message string // human readable description
	Err     error  // sentinel or original cause
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "smstrade " + e.Op + ": " + e.Err.Error()
	}
	return "smstrade " + e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }
