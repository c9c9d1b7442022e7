package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusBadRequest, "validation", ErrValidation},
		{http.StatusBadRequest, "conflict", ErrValidation},
		{http.StatusUnauthorized, "unauthorized", ErrUnauthorized},
		{http.StatusUnauthorized, "forbidden", ErrForbidden},
		{http.StatusForbidden, "invalid_token", ErrForbidden},
		{http.StatusNotFound, "not_found", ErrNotFound},
		{http.StatusTooManyRequests, "rate_limited", ErrServer},
		{http.StatusBadRequest, "", ErrValidation},
		{http.StatusUnauthorized, "", ErrUnauthorized},
		{http.StatusForbidden, "", ErrForbidden},
		{http.StatusNotFound, "", ErrNotFound},
		{http.StatusBadGateway, "", ErrServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, kindFor(tt.status, tt.code))
		})
	}
}

func TestAPIError_IsAndMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("wrapped: %w", &APIError{Kind: ErrTransport, Err: cause})

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Equal(t, FallbackMessage, UserMessage(err))

	apiErr := &APIError{Kind: ErrValidation, Status: http.StatusBadRequest, Message: "User already exists"}
	assert.Equal(t, "User already exists", UserMessage(apiErr))
	assert.Equal(t, "validation error (400): User already exists", apiErr.Error())

	assert.Equal(t, FallbackMessage, UserMessage(errors.New("boom")))
}
