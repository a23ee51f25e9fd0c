package handlers

import (
	"net/http"
	"strings"
	"time"

	"educontrol/core/services"
	"educontrol/core/utils"
)

type DashboardHandler struct {
	svc    *services.IncidentsService
	logger *utils.Logger
}

func NewDashboardHandler(svc *services.IncidentsService, logger *utils.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), actorFrom(r))
	if err != nil {
		h.logger.Errorf("dashboard stats: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Calendar returns visible timeline events in a date window. Defaults
// to the current month when no range is given.
func (h *DashboardHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := utils.NowUTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "calendar.badRange", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "calendar.badRange", http.StatusBadRequest)
			return
		}
		to = parsed
	}
	if to.Before(from) {
		http.Error(w, "calendar.badRange", http.StatusBadRequest)
		return
	}
	entries, err := h.svc.Calendar(r.Context(), actorFrom(r), from, to)
	if err != nil {
		h.logger.Errorf("calendar: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []services.CalendarEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
