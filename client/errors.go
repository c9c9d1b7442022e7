package client

import (
	"errors"
	"fmt"
	"net/http"

	"photogram/internal/apicode"
)

// Error kinds. Every error returned by AuthClient and PhotoClient matches
// exactly one of these with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrTransport    = errors.New("transport error")
	ErrServer       = errors.New("server error")
)

var (
	ErrAuthInFlight = errors.New("client: authentication already in progress")
	ErrSessionEnded = errors.New("client: signed out before authentication finished")
)

// FallbackMessage is shown when a failure carries no server message.
const FallbackMessage = "request failed"

type APIError struct {
	Kind    error
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Status != 0 {
		return fmt.Sprintf("%v (%d): %s", e.Kind, e.Status, msg)
	}

	if msg == "" {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// UserMessage picks the text to show for err: the server's own message when
// there is one, FallbackMessage otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return FallbackMessage
}

func validationErr(msg string) *APIError {
	return &APIError{Kind: ErrValidation, Message: msg}
}

var errNoToken = &APIError{Kind: ErrUnauthorized, Message: "Not signed in"}

// kindFor maps a response to an error kind. The body code wins over the
// status because ownership failures come back as 401.
func kindFor(status int, code string) error {
	switch code {
	case apicode.Validation, apicode.Conflict:
		return ErrValidation
	case apicode.Unauthorized:
		return ErrUnauthorized
	case apicode.InvalidToken, apicode.Forbidden:
		return ErrForbidden
	case apicode.NotFound:
		return ErrNotFound
	case apicode.ServerError, apicode.RateLimited:
		return ErrServer
	}

	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}
