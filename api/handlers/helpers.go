package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"educontrol/core/auth"
	"educontrol/core/incidents"
	"educontrol/core/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// writeError maps domain failures onto HTTP statuses. Forbidden is
// deliberately reported as not-found so callers cannot probe which
// incident ids exist.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrConflict) {
		http.Error(w, "incidents.conflict", http.StatusConflict)
		return
	}
	switch incidents.KindOf(err) {
	case incidents.KindValidation:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case incidents.KindNotFound, incidents.KindForbidden:
		http.Error(w, "not found", http.StatusNotFound)
	case incidents.KindPrecondition, incidents.KindInvalidState:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func actorFrom(r *http.Request) incidents.Actor {
	sess := auth.SessionFrom(r.Context())
	if sess == nil {
		return incidents.Actor{}
	}
	return incidents.Actor{ID: sess.UserID, Name: sess.Name, Role: sess.Role}
}
