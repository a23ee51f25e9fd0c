package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func urlParam(r *http.Request, key string) string {
	if v := chi.URLParam(r, key); v != "" {
		return v
	}
	// Fallback for direct handler tests without chi route context.
	segments := strings.Split(strings.Trim(strings.TrimSpace(r.URL.Path), "/"), "/")
	for _, marker := range markerFor(key) {
		for i := 0; i < len(segments)-1; i++ {
			if segments[i] == marker && strings.TrimSpace(segments[i+1]) != "" {
				return segments[i+1]
			}
		}
	}
	return ""
}

func markerFor(key string) []string {
	switch key {
	case "id":
		return []string{"incidents", "users", "students", "grades", "courses"}
	case "event_id":
		return []string{"events"}
	}
	return nil
}

func urlParamInt64(r *http.Request, key string) (int64, bool) {
	v := strings.TrimSpace(urlParam(r, key))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
