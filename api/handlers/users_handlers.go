package handlers

import (
	"net/http"
	"strings"

	"educontrol/config"
	"educontrol/core/auth"
	"educontrol/core/incidents"
	"educontrol/core/store"
	"educontrol/core/utils"
)

type UsersHandler struct {
	cfg    *config.AppConfig
	users  store.UsersStore
	audit  store.AuditStore
	logger *utils.Logger
}

func NewUsersHandler(cfg *config.AppConfig, users store.UsersStore, audit store.AuditStore, logger *utils.Logger) *UsersHandler {
	return &UsersHandler{cfg: cfg, users: users, audit: audit, logger: logger}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Errorf("users list: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createUserRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	Password      string  `json:"password"`
	CourseIDs     []int64 `json:"course_ids"`
	TutorGradeIDs []int64 `json:"tutor_grade_ids"`
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "users.badPayload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		http.Error(w, "users.nameEmailRequired", http.StatusBadRequest)
		return
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !incidents.ValidRole(role) {
		http.Error(w, "users.unknownRole", http.StatusBadRequest)
		return
	}
	user := &store.User{Name: req.Name, Email: req.Email, Role: role, Active: true}
	if req.Password != "" {
		salt, err := auth.NewSalt()
		if err != nil {
			h.logger.Errorf("salt: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		user.Salt = salt
		user.PasswordHash = auth.HashPassword(req.Password, salt, h.cfg.Pepper)
		user.PasswordSet = true
	}
	id, err := h.users.Create(r.Context(), user)
	if err != nil {
		h.logger.Errorf("users create: %v", err)
		http.Error(w, "users.createFailed", http.StatusBadRequest)
		return
	}
	if role == incidents.RoleTeacher && (len(req.CourseIDs) > 0 || len(req.TutorGradeIDs) > 0) {
		if err := h.users.SetTeacherAssignments(r.Context(), id, req.CourseIDs, req.TutorGradeIDs); err != nil {
			h.logger.Errorf("users assignments: %v", err)
			http.Error(w, "users.assignmentsFailed", http.StatusBadRequest)
			return
		}
	}
	created, err := h.users.Get(r.Context(), id)
	if err != nil || created == nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	actor := actorFrom(r)
	if err := h.audit.Append(r.Context(), actor.Name, "users.create", created.Email); err != nil {
		h.logger.Errorf("audit users create: %v", err)
	}
	writeJSON(w, http.StatusCreated, created)
}

type assignmentsRequest struct {
	CourseIDs     []int64 `json:"course_ids"`
	TutorGradeIDs []int64 `json:"tutor_grade_ids"`
}

func (h *UsersHandler) SetAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req assignmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "users.badPayload", http.StatusBadRequest)
		return
	}
	if err := h.users.SetTeacherAssignments(r.Context(), id, req.CourseIDs, req.TutorGradeIDs); err != nil {
		h.logger.Errorf("users assignments: %v", err)
		http.Error(w, "users.assignmentsFailed", http.StatusBadRequest)
		return
	}
	updated, err := h.users.Get(r.Context(), id)
	if err != nil || updated == nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
