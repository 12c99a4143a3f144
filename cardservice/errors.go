package cardservice

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnrecognizedShape is returned when a list response is neither an array nor an
// object carrying "items" or "data".
var ErrUnrecognizedShape = errors.New("cardservice: unrecognized response shape")

// StatusError is a non-2xx answer from the Card Service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cardservice: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("cardservice: %d: %s", e.Code, e.Message)
}

// Unauthorized reports whether the service refused the caller's credentials.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// NotFound reports a 404.
func (e *StatusError) NotFound() bool { return e.Code == http.StatusNotFound }
