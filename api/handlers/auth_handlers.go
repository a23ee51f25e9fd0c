package handlers

import (
	"net"
	"net/http"
	"strings"

	"educontrol/config"
	"educontrol/core/auth"
	"educontrol/core/store"
	"educontrol/core/utils"
)

const SessionCookie = "educontrol_session"

type AuthHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	sessions *auth.SessionManager
	audit    store.AuditStore
	logger   *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sessions *auth.SessionManager,
	audit store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessions: sessions, audit: audit, logger: logger}
}

type loginRequest struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Login resolves the selected user and opens a session. Accounts
// without a stored password log in by selection alone; accounts with
// one must present it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "auth.badPayload", http.StatusBadRequest)
		return
	}
	var user *store.User
	var err error
	switch {
	case req.UserID > 0:
		user, err = h.users.Get(r.Context(), req.UserID)
	case strings.TrimSpace(req.Email) != "":
		user, err = h.users.FindByEmail(r.Context(), req.Email)
	default:
		http.Error(w, "auth.badPayload", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Errorf("login lookup: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !user.Active {
		http.Error(w, "auth.invalidCredentials", http.StatusUnauthorized)
		return
	}
	if user.PasswordSet && !auth.VerifyPassword(req.Password, user.Salt, h.cfg.Pepper, user.PasswordHash) {
		http.Error(w, "auth.invalidCredentials", http.StatusUnauthorized)
		return
	}
	sess, err := h.sessions.Open(r.Context(), user, clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Errorf("session open: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	if err := h.audit.Append(r.Context(), user.Name, "auth.login", ""); err != nil {
		h.logger.Errorf("audit login: %v", err)
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: user.ID, Name: user.Name, Role: user.Role})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	if sess != nil {
		if err := h.sessions.Close(r.Context(), sess.ID); err != nil {
			h.logger.Errorf("session close: %v", err)
		}
		if err := h.audit.Append(r.Context(), sess.Name, "auth.logout", ""); err != nil {
			h.logger.Errorf("audit logout: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	if sess == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: sess.UserID, Name: sess.Name, Role: sess.Role})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}
