package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/infra/http/middleware"
	"github.com/fixora/analytics/internal/infra/http/response"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/usecase"
	apperr "github.com/fixora/analytics/pkg/error"
)

// DashboardService defines the behavior the handler depends on.
type DashboardService interface {
	Current(ctx context.Context) (*domain.Dashboard, error)
	Refresh(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error)
	Snapshot(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error)
}

// RefreshRequest is the optional JSON body of a refresh
type RefreshRequest struct {
	Range string `json:"range"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// DashboardHandler handles HTTP requests for the analytics dashboard
type DashboardHandler struct {
	service   DashboardService
	auth      *middleware.AuthMiddleware
	rateLimit *middleware.RateLimitMiddleware
	stream    http.HandlerFunc
	logger    logger.Logger
}

// NewDashboardHandler creates a new dashboard handler. auth, rateLimit and
// stream may be nil.
func NewDashboardHandler(
	service DashboardService,
	auth *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	stream http.HandlerFunc,
	log logger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		service:   service,
		auth:      auth,
		rateLimit: rateLimit,
		stream:    stream,
		logger:    log,
	}
}

// RegisterRoutes registers dashboard routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	refresh := h.Refresh
	if h.rateLimit != nil {
		refresh = h.rateLimit.RateLimit("refresh", refresh)
	}
	if h.auth != nil {
		refresh = h.auth.RequireAuth(refresh)
	}

	router.HandleFunc("/api/v1/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/v1/dashboard/refresh", refresh).Methods("POST")
	router.HandleFunc("/api/v1/dashboard/snapshot", h.GetSnapshot).Methods("GET")
	router.HandleFunc("/api/v1/dashboard/export", h.Export).Methods("GET")
	if h.stream != nil {
		router.HandleFunc("/api/v1/dashboard/stream", h.stream).Methods("GET")
	}
}

// GetDashboard returns the dashboard currently served
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Current(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err = selectCategories(d, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Dashboard retrieved successfully", d)
}

// Refresh regenerates the served dashboard
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := RefreshRequest{
		Range: q.Get("range"),
		From:  q.Get("from"),
		To:    q.Get("to"),
	}
	if r.Body != nil && r.ContentLength != 0 {
		var body RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, "Invalid request body")
			return
		}
		if body != (RefreshRequest{}) {
			req = body
		}
	}

	spec, err := domain.ParseWindowSpec(req.Range, req.From, req.To)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields := map[string]interface{}{"range": spec.String()}
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		fields["subject"] = claims.Subject
	}
	h.logger.Info(r.Context(), "Dashboard refresh requested", fields)

	d, err := h.service.Refresh(r.Context(), spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Dashboard refreshed successfully", d)
}

// GetSnapshot builds a fresh dashboard for the requested window without
// replacing the served one
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec, err := domain.ParseWindowSpec(q.Get("range"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err := h.service.Snapshot(r.Context(), spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err = selectCategories(d, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Snapshot generated successfully", d)
}

// Export returns the served dashboard as a downloadable JSON document
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Current(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("dashboard-%s.json", d.Snapshot.GeneratedAt.UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		h.logger.Error(r.Context(), "Failed to write export", err, nil)
	}
}

// selectCategories applies the priority and status query filters
func selectCategories(d *domain.Dashboard, r *http.Request) (*domain.Dashboard, error) {
	q := r.URL.Query()
	priority := strings.TrimSpace(q.Get("priority"))
	status := strings.TrimSpace(q.Get("status"))
	if priority == "" && status == "" {
		return d, nil
	}
	return d.Select(priority, status)
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, usecase.ErrStaleRefresh) {
		err = apperr.NewConflict("Refresh superseded by a newer request")
	}

	appErr := response.FromError(w, err)
	fields := map[string]interface{}{
		"path":   r.URL.Path,
		"status": appErr.Status,
		"code":   appErr.Code,
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Dashboard request failed", err, fields)
	} else {
		h.logger.Warn(r.Context(), "Dashboard request rejected", fields)
	}
}
