package handlers

import (
	"net/http"
	"strings"
	"time"

	"educontrol/core/incidents"
	"educontrol/core/services"
	"educontrol/core/utils"
)

type IncidentsHandler struct {
	svc       *services.IncidentsService
	logger    *utils.Logger
	listLimit int
}

func NewIncidentsHandler(svc *services.IncidentsService, logger *utils.Logger, listLimit int) *IncidentsHandler {
	return &IncidentsHandler{svc: svc, logger: logger, listLimit: listLimit}
}

// incidentView serializes the aggregate with the timeline already in
// presentation order. The stored insertion order never leaves the
// service layer.
type incidentView struct {
	incidents.Incident
	Events []incidents.Event `json:"events"`
}

func viewOf(inc *incidents.Incident) incidentView {
	return incidentView{Incident: *inc, Events: inc.SortedEvents()}
}

type createIncidentRequest struct {
	Title         string     `json:"title"`
	Type          string     `json:"type"`
	Priority      string     `json:"priority"`
	StudentID     int64      `json:"student_id"`
	AssignedToIDs []int64    `json:"assigned_to_ids"`
	Deadline      *time.Time `json:"deadline"`
	IsSimple      bool       `json:"is_simple"`
	Description   string     `json:"description"`
}

type eventRequest struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	Agreements  string     `json:"agreements"`
}

type deriveRequest struct {
	UserID int64 `json:"user_id"`
}

// List supports the search box and status tabs: `q` matches title or
// type case-insensitively, `status` is an exact status match.
func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), actorFrom(r))
	if err != nil {
		h.logger.Errorf("incidents list: %v", err)
		writeError(w, err)
		return
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	views := make([]incidentView, 0, len(list))
	for i := range list {
		inc := &list[i]
		if status != "" && string(inc.Status) != status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(inc.Title), q) && !strings.Contains(strings.ToLower(inc.Type), q) {
			continue
		}
		views = append(views, viewOf(inc))
	}
	if h.listLimit > 0 && len(views) > h.listLimit {
		views = views[:h.listLimit]
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "incidents.badPayload", http.StatusBadRequest)
		return
	}
	inc, err := h.svc.Create(r.Context(), actorFrom(r), incidents.Draft{
		Title:              req.Title,
		Type:               req.Type,
		Priority:           incidents.Priority(req.Priority),
		StudentID:          req.StudentID,
		AssignedToIDs:      req.AssignedToIDs,
		Deadline:           req.Deadline,
		IsSimple:           req.IsSimple,
		InitialDescription: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(inc))
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	inc, err := h.svc.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(inc))
}

func (h *IncidentsHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "incidents.badPayload", http.StatusBadRequest)
		return
	}
	ev, err := h.svc.AddEvent(r.Context(), actorFrom(r), id, incidents.EventDraft{
		Type:        incidents.EventType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Agreements:  req.Agreements,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *IncidentsHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	eventID := urlParam(r, "event_id")
	if eventID == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "incidents.badPayload", http.StatusBadRequest)
		return
	}
	ev, err := h.svc.EditEvent(r.Context(), actorFrom(r), id, eventID, incidents.EventPatch{
		Type:        incidents.EventType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Agreements:  req.Agreements,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *IncidentsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	inc, err := h.svc.Close(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(inc))
}

func (h *IncidentsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	inc, err := h.svc.Reopen(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(inc))
}

func (h *IncidentsHandler) Derive(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req deriveRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID <= 0 {
		http.Error(w, "incidents.badPayload", http.StatusBadRequest)
		return
	}
	inc, err := h.svc.Derive(r.Context(), actorFrom(r), id, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(inc))
}
