// Package httpapi exposes the notification feed over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"assistance_alerts/internal/app"
	"assistance_alerts/internal/domain/notification"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Notifications is the part of the notification service the API needs.
type Notifications interface {
	Current() app.Snapshot
	Refresh(ctx context.Context, trigger string) (app.Snapshot, error)
	Acknowledge(ctx context.Context, source notification.Source, id int64) (app.Snapshot, error)
	AcknowledgeAll(ctx context.Context, loanIDs, campaignIDs []int64) (app.Snapshot, error)
	AcknowledgeVisible(ctx context.Context) (app.Snapshot, error)
	Reset(ctx context.Context) (app.Snapshot, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	notifications Notifications
	checks        map[string]HealthCheck
	logger        *logrus.Entry
}

func NewHandler(n Notifications, checks map[string]HealthCheck, logger *logrus.Entry) *Handler {
	return &Handler{notifications: n, checks: checks, logger: logger}
}

// ListNotifications serves the last published view without refetching.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(h.notifications.Current()))
}

// Refresh refetches both sources. On a fetch failure the previous view is
// returned flagged stale, with 502.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.notifications.Refresh(r.Context(), app.TriggerManual)
	if err != nil {
		resp := toResponse(snap)
		if errors.Is(err, app.ErrSourceFetch) {
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}
		h.logger.WithError(err).Error("Manual refresh failed")
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(snap))
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	source, ok := notification.ParseSource(chi.URLParam(r, "source"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown source, expected loan or campaign")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	snap, err := h.notifications.Acknowledge(r.Context(), source, id)
	h.writeMutation(w, snap, err)
}

// AcknowledgeAll replaces the acknowledged set. With no body it marks the
// currently raised alerts as read, which needs a loaded snapshot (503 before
// the first successful refresh).
func (h *Handler) AcknowledgeAll(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeAllRequest
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	switch {
	case errors.Is(err, io.EOF):
		snap, err := h.notifications.AcknowledgeVisible(r.Context())
		h.writeMutation(w, snap, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// null or {} would silently clear every acknowledgement.
	if req.LoanIDs == nil && req.CampaignIDs == nil {
		writeError(w, http.StatusBadRequest, "loanIds or campaignIds is required")
		return
	}
	snap, err := h.notifications.AcknowledgeAll(r.Context(), req.LoanIDs, req.CampaignIDs)
	h.writeMutation(w, snap, err)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.notifications.Reset(r.Context())
	h.writeMutation(w, snap, err)
}

// writeMutation treats a persistence failure as a warning: the change is
// already visible in the returned view.
func (h *Handler) writeMutation(w http.ResponseWriter, snap app.Snapshot, err error) {
	resp := toResponse(snap)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrAcknowledgementPersistence):
		resp.Warning = err.Error()
	case errors.Is(err, app.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, "acknowledgement failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	snap := h.notifications.Current()
	body := map[string]any{
		"status":       "healthy",
		"dependencies": deps,
		"ready":        snap.Ready,
		"stale":        snap.Stale,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	writeJSON(w, status, body)
}
