package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/metrics"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(ctx context.Context) error { return nil })
	down := pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "database reachable",
			checks:     []HealthCheck{{Name: "database", Pinger: up}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","checks":{"database":"ok"}}`,
		},
		{
			name:       "database down",
			checks:     []HealthCheck{{Name: "database", Pinger: down}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable","checks":{"database":"down"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewNopLogger()
			handler := NewDashboardHandler(new(MockDashboardService), nil, nil, nil, log)
			router := NewRouter(handler, NewHealthHandler(log, tt.checks...), metrics.NewMetrics(), log)

			rr := serve(router, "GET", "/health", "", nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestHealthHandler_PingHasDeadline(t *testing.T) {
	var hasDeadline bool
	check := pingFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	log := logger.NewNopLogger()
	handler := NewDashboardHandler(new(MockDashboardService), nil, nil, nil, log)
	router := NewRouter(handler, NewHealthHandler(log, HealthCheck{Name: "database", Pinger: check}), nil, log)

	rr := serve(router, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, hasDeadline)
}
