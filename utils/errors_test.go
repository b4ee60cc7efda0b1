package utils

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewServiceErrorWithCause("TRIP_CREATE_FAILED", "failed to create trip", cause)

	serviceErr, ok := GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "TRIP_CREATE_FAILED", serviceErr.Code)
	assert.ErrorIs(t, err, cause)
}

func TestServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", NewNotFoundError("Trip"), http.StatusNotFound},
		{"forbidden", NewForbiddenError("nope"), http.StatusForbidden},
		{"conflict", NewConflictError("already ended"), http.StatusConflict},
		{"validation", NewValidationError("bad input"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("no token"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceErr, ok := GetServiceError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.status, serviceErr.StatusCode)
		})
	}
}

func TestMapsURL(t *testing.T) {
	url := MapsURL(41.9028, 12.4964)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=41.9028,12.4964", url)
}
