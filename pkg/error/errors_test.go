package error

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/analytics/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app error passes through", NewConflict("stale"), http.StatusConflict, "CONFLICT"},
		{"wrapped app error", fmt.Errorf("refresh: %w", ErrTooManyRequests), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"invalid window", domain.InvalidWindow("unknown range %q", "2y"), http.StatusBadRequest, "INVALID_WINDOW"},
		{"invalid filter", domain.ErrInvalidFilter, http.StatusBadRequest, "INVALID_FILTER"},
		{"data unavailable", domain.DataUnavailable(errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "DATA_UNAVAILABLE"},
		{"invariant violation", domain.InvariantViolation("bad"), http.StatusInternalServerError, "INVARIANT_VIOLATION"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapError(tt.err)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestMapError_HidesCause(t *testing.T) {
	appErr := MapError(domain.DataUnavailable(errors.New("password authentication failed for user analytics")))
	assert.NotContains(t, appErr.Message, "password")
}
