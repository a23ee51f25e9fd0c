package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"educontrol/core/store"
)

type LogsHandler struct {
	audit store.AuditStore
}

func NewLogsHandler(audit store.AuditStore) *LogsHandler {
	return &LogsHandler{audit: audit}
}

func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
