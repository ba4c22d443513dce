package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrNoFile       = errors.New("no file selected")
)

// StatusError is returned for network responses outside 2xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}
