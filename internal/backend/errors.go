package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a successful response carries a body
// that cannot be decoded into the expected shape.
var ErrMalformedResponse = errors.New("malformed response from backend")

// Error describes a failed backend call. StatusCode is zero for transport
// failures, in which case Err holds the cause.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a backend error with the given status.
func IsStatus(err error, status int) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode == status
	}
	return false
}

// errorBody covers the error shapes of the REST, storage and auth services.
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.Msg, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}
