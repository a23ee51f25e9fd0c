package handlers

import (
	"net/http"
	"strings"

	"educontrol/core/store"
	"educontrol/core/utils"
)

// MastersHandler manages the reference data incidents point at:
// grades, courses and the student roster.
type MastersHandler struct {
	masters store.MastersStore
	audit   store.AuditStore
	logger  *utils.Logger
}

func NewMastersHandler(masters store.MastersStore, audit store.AuditStore, logger *utils.Logger) *MastersHandler {
	return &MastersHandler{masters: masters, audit: audit, logger: logger}
}

type namedRequest struct {
	Name    string `json:"name"`
	GradeID int64  `json:"grade_id"`
}

func (h *MastersHandler) ListGrades(w http.ResponseWriter, r *http.Request) {
	list, err := h.masters.ListGrades(r.Context())
	if err != nil {
		h.logger.Errorf("grades list: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MastersHandler) CreateGrade(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "masters.nameRequired", http.StatusBadRequest)
		return
	}
	id, err := h.masters.CreateGrade(r.Context(), req.Name)
	if err != nil {
		h.logger.Errorf("grade create: %v", err)
		http.Error(w, "masters.createFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.grade.create", req.Name)
	writeJSON(w, http.StatusCreated, store.Grade{ID: id, Name: strings.TrimSpace(req.Name)})
}

func (h *MastersHandler) DeleteGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := h.masters.DeleteGrade(r.Context(), id); err != nil {
		h.logger.Errorf("grade delete: %v", err)
		http.Error(w, "masters.deleteFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.grade.delete", "")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *MastersHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.masters.ListCourses(r.Context())
	if err != nil {
		h.logger.Errorf("courses list: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MastersHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" || req.GradeID <= 0 {
		http.Error(w, "masters.nameGradeRequired", http.StatusBadRequest)
		return
	}
	id, err := h.masters.CreateCourse(r.Context(), req.Name, req.GradeID)
	if err != nil {
		h.logger.Errorf("course create: %v", err)
		http.Error(w, "masters.createFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.course.create", req.Name)
	writeJSON(w, http.StatusCreated, store.Course{ID: id, Name: strings.TrimSpace(req.Name), GradeID: req.GradeID})
}

func (h *MastersHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := h.masters.DeleteCourse(r.Context(), id); err != nil {
		h.logger.Errorf("course delete: %v", err)
		http.Error(w, "masters.deleteFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.course.delete", "")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type studentRequest struct {
	Name          string  `json:"name"`
	GradeID       int64   `json:"grade_id"`
	ParentContact string  `json:"parent_contact"`
	CourseIDs     []int64 `json:"course_ids"`
}

func (h *MastersHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.masters.ListStudents(r.Context())
	if err != nil {
		h.logger.Errorf("students list: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MastersHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" || req.GradeID <= 0 {
		http.Error(w, "masters.nameGradeRequired", http.StatusBadRequest)
		return
	}
	st := &store.Student{Name: req.Name, GradeID: req.GradeID, ParentContact: req.ParentContact, CourseIDs: req.CourseIDs}
	if _, err := h.masters.CreateStudent(r.Context(), st); err != nil {
		h.logger.Errorf("student create: %v", err)
		http.Error(w, "masters.createFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.student.create", st.Name)
	writeJSON(w, http.StatusCreated, st)
}

func (h *MastersHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	existing, err := h.masters.GetStudent(r.Context(), id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req studentRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" || req.GradeID <= 0 {
		http.Error(w, "masters.nameGradeRequired", http.StatusBadRequest)
		return
	}
	st := &store.Student{ID: id, Name: req.Name, GradeID: req.GradeID, ParentContact: req.ParentContact, CourseIDs: req.CourseIDs}
	if err := h.masters.UpdateStudent(r.Context(), st); err != nil {
		h.logger.Errorf("student update: %v", err)
		http.Error(w, "masters.updateFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.student.update", st.Name)
	writeJSON(w, http.StatusOK, st)
}

func (h *MastersHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := h.masters.DeleteStudent(r.Context(), id); err != nil {
		h.logger.Errorf("student delete: %v", err)
		http.Error(w, "masters.deleteFailed", http.StatusBadRequest)
		return
	}
	h.record(r, "masters.student.delete", "")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *MastersHandler) record(r *http.Request, action, details string) {
	actor := actorFrom(r)
	if err := h.audit.Append(r.Context(), actor.Name, action, details); err != nil {
		h.logger.Errorf("audit %s: %v", action, err)
	}
}
