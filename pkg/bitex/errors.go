package bitex

import (
	"errors"
	"fmt"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bitex: %s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("bitex: %s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// DecodeError is returned when a response body does not match the expected
// wire shape: malformed JSON, wrong arity, wrong element type, or an order
// discriminator that does not match the requested kind.
type DecodeError struct {
	Target string // record being decoded, e.g. "bid", "transaction"
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "bitex: decode " + e.Target + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(target, reason string, err error) error {
	return &DecodeError{Target: target, Reason: reason, Err: err}
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
