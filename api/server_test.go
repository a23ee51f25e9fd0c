package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"educontrol/api"
	"educontrol/config"
	"educontrol/core/auth"
	"educontrol/core/rbac"
	"educontrol/core/services"
	"educontrol/core/store"
	"educontrol/core/utils"
)

type testEnv struct {
	handler http.Handler
	db      *sql.DB

	adminID   int64
	teacherID int64
	otherID   int64
	studentID int64
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimit(t, 0)
}

func newTestEnvWithLimit(t *testing.T, listLimit int) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBURL:      filepath.Join(t.TempDir(), "api.db"),
		ListenAddr: "127.0.0.1:0",
		Incidents:  config.IncidentsConfig{DefaultEventTitle: "Initial report", ListLimit: listLimit},
	}
	logger := utils.NewLogger()

	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.ApplyMigrations(ctx, db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	users := store.NewUsersStore(db)
	masters := store.NewMastersStore(db)
	sessions := store.NewSessionsStore(db)
	audit := store.NewAuditStore(db)
	incidentsStore := store.NewIncidentsStore(db)

	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	sessionManager := auth.NewSessionManager(sessions, users, cfg.EffectiveSessionTTL(), logger)
	svc := services.NewIncidentsService(incidentsStore, users, masters, audit, logger, cfg.Incidents.DefaultEventTitle)
	server := api.NewServer(cfg, logger, policy, sessionManager, users, masters, audit, svc)

	env := &testEnv{handler: server.Handler(), db: db}

	env.adminID = seedUser(t, users, "Admin One", "admin@school.test", "ADMIN")
	env.teacherID = seedUser(t, users, "Laura Vega", "laura@school.test", "TEACHER")
	env.otherID = seedUser(t, users, "Marco Ruiz", "marco@school.test", "PSYCHOLOGIST")

	gid, err := masters.CreateGrade(ctx, "3rd Grade")
	if err != nil {
		t.Fatalf("seed grade: %v", err)
	}
	st := &store.Student{Name: "Diego P.", GradeID: gid}
	if _, err := masters.CreateStudent(ctx, st); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	env.studentID = st.ID
	return env
}

func seedUser(t *testing.T, users store.UsersStore, name, email, role string) int64 {
	t.Helper()
	id, err := users.Create(context.Background(), &store.User{Name: name, Email: email, Role: role, Active: true})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return id
}

func (e *testEnv) login(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", nil, map[string]any{"user_id": userID})
	if rec.Code != http.StatusOK {
		t.Fatalf("login user=%d: status %d body %s", userID, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "educontrol_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func (e *testEnv) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type incidentResponse struct {
	ID            int64   `json:"id"`
	Status        string  `json:"status"`
	ReporterID    int64   `json:"reporter_id"`
	AssignedToIDs []int64 `json:"assigned_to_ids"`
	Events        []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	} `json:"events"`
}

func createIncident(t *testing.T, e *testEnv, cookie *http.Cookie) incidentResponse {
	return createIncidentWith(t, e, cookie, "Recurring disruption", "BEHAVIORAL", false)
}

func createIncidentWith(t *testing.T, e *testEnv, cookie *http.Cookie, title, incidentType string, simple bool) incidentResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/incidents/", cookie, map[string]any{
		"title":      title,
		"type":       incidentType,
		"student_id": e.studentID,
		"is_simple":  simple,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create incident: status %d body %s", rec.Code, rec.Body.String())
	}
	var inc incidentResponse
	decodeBody(t, rec, &inc)
	return inc
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without session: %d", rec.Code)
	}

	cookie := e.login(t, e.teacherID)
	rec = e.do(t, http.MethodGet, "/api/auth/me", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	decodeBody(t, rec, &me)
	if me.UserID != e.teacherID || me.Role != "TEACHER" {
		t.Fatalf("me = %+v", me)
	}

	rec = e.do(t, http.MethodPost, "/api/auth/logout", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/auth/me", cookie, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", rec.Code)
	}
}

func TestIncidentVisibility(t *testing.T) {
	e := newTestEnv(t)
	reporterCookie := e.login(t, e.teacherID)
	inc := createIncident(t, e, reporterCookie)

	if inc.ReporterID != e.teacherID {
		t.Fatalf("reporter = %d", inc.ReporterID)
	}
	found := false
	for _, id := range inc.AssignedToIDs {
		if id == e.teacherID {
			found = true
		}
	}
	if !found {
		t.Fatalf("reporter missing from responder set: %v", inc.AssignedToIDs)
	}

	path := fmt.Sprintf("/api/incidents/%d", inc.ID)

	// An uninvolved user gets 404, not 403: existence must not leak.
	outsiderCookie := e.login(t, e.otherID)
	rec := e.do(t, http.MethodGet, path, outsiderCookie, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("outsider get: %d, want 404", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/incidents/", outsiderCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("outsider list: %d", rec.Code)
	}
	var list []incidentResponse
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("outsider sees %d incidents", len(list))
	}

	adminCookie := e.login(t, e.adminID)
	rec = e.do(t, http.MethodGet, path, adminCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin get: %d", rec.Code)
	}

	// Derivation grants the outsider access.
	rec = e.do(t, http.MethodPost, path+"/derive", reporterCookie, map[string]any{"user_id": e.otherID})
	if rec.Code != http.StatusOK {
		t.Fatalf("derive: %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodGet, path, outsiderCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("derived user get: %d", rec.Code)
	}
}

func TestIncidentCloseLifecycle(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, e.teacherID)
	inc := createIncident(t, e, cookie)
	path := fmt.Sprintf("/api/incidents/%d", inc.ID)

	rec := e.do(t, http.MethodPost, path+"/close", cookie, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("close with one event: %d, want 409", rec.Code)
	}

	rec = e.do(t, http.MethodPost, path+"/events", cookie, map[string]any{
		"type":  "RESOLUTION",
		"title": "Case resolved with family",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add event: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, path+"/close", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close with two events: %d %s", rec.Code, rec.Body.String())
	}
	var closed incidentResponse
	decodeBody(t, rec, &closed)
	if closed.Status != "CLOSED" {
		t.Fatalf("status = %s", closed.Status)
	}

	rec = e.do(t, http.MethodPost, path+"/events", cookie, map[string]any{"type": "CALL", "title": "late"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("event on closed incident: %d, want 409", rec.Code)
	}

	rec = e.do(t, http.MethodPost, path+"/reopen", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reopen: %d", rec.Code)
	}
	var reopened incidentResponse
	decodeBody(t, rec, &reopened)
	if reopened.Status != "OPEN" {
		t.Fatalf("status after reopen = %s", reopened.Status)
	}
}

func TestEventAuthorImmutableOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	reporterCookie := e.login(t, e.teacherID)
	inc := createIncident(t, e, reporterCookie)
	path := fmt.Sprintf("/api/incidents/%d", inc.ID)

	rec := e.do(t, http.MethodPost, path+"/derive", reporterCookie, map[string]any{"user_id": e.otherID})
	if rec.Code != http.StatusOK {
		t.Fatalf("derive: %d", rec.Code)
	}

	// Another staff member edits the reporter's event; the author
	// snapshot must survive.
	otherCookie := e.login(t, e.otherID)
	eventID := inc.Events[0].ID
	rec = e.do(t, http.MethodPut, path+"/events/"+eventID, otherCookie, map[string]any{
		"type":  "FOLLOW_UP",
		"title": "Edited by someone else",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit event: %d %s", rec.Code, rec.Body.String())
	}
	var ev struct {
		ID         string `json:"id"`
		AuthorName string `json:"author_name"`
		Title      string `json:"title"`
	}
	decodeBody(t, rec, &ev)
	if ev.ID != eventID {
		t.Fatalf("event id changed: %s", ev.ID)
	}
	if ev.AuthorName != "Laura Vega" {
		t.Fatalf("author snapshot changed: %s", ev.AuthorName)
	}
	if ev.Title != "Edited by someone else" {
		t.Fatalf("title not applied: %s", ev.Title)
	}
}

func TestAdminOnlyAreas(t *testing.T) {
	e := newTestEnv(t)
	teacherCookie := e.login(t, e.teacherID)
	adminCookie := e.login(t, e.adminID)

	rec := e.do(t, http.MethodPost, "/api/masters/grades", teacherCookie, map[string]any{"name": "4th Grade"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("teacher create grade: %d, want 403", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/masters/grades", adminCookie, map[string]any{"name": "4th Grade"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create grade: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/logs", teacherCookie, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("teacher logs: %d, want 403", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/logs", adminCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin logs: %d", rec.Code)
	}

	// Reads on master data stay open to all staff.
	rec = e.do(t, http.MethodGet, "/api/masters/grades", teacherCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher list grades: %d", rec.Code)
	}
}

func TestIncidentListFilters(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, e.teacherID)

	open := createIncidentWith(t, e, cookie, "Recurring disruption", "BEHAVIORAL", false)
	closed := createIncidentWith(t, e, cookie, "Uniform policy note", "ADMINISTRATIVE", true)

	listWith := func(query string) []incidentResponse {
		t.Helper()
		rec := e.do(t, http.MethodGet, "/api/incidents/"+query, cookie, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list %q: %d %s", query, rec.Code, rec.Body.String())
		}
		var list []incidentResponse
		decodeBody(t, rec, &list)
		return list
	}

	if got := listWith(""); len(got) != 2 {
		t.Fatalf("unfiltered list = %d incidents, want 2", len(got))
	}
	if got := listWith("?status=CLOSED"); len(got) != 1 || got[0].ID != closed.ID {
		t.Fatalf("status=CLOSED = %+v, want only the simple incident", got)
	}
	if got := listWith("?status=OPEN"); len(got) != 1 || got[0].ID != open.ID {
		t.Fatalf("status=OPEN = %+v, want only the open incident", got)
	}
	// Search matches title and type, case-insensitively.
	if got := listWith("?q=uniform"); len(got) != 1 || got[0].ID != closed.ID {
		t.Fatalf("q=uniform = %+v", got)
	}
	if got := listWith("?q=behavioral"); len(got) != 1 || got[0].ID != open.ID {
		t.Fatalf("q=behavioral = %+v", got)
	}
	if got := listWith("?q=disruption&status=CLOSED"); len(got) != 0 {
		t.Fatalf("combined filters = %+v, want none", got)
	}
	if got := listWith("?q=nomatch"); len(got) != 0 {
		t.Fatalf("q=nomatch = %+v, want none", got)
	}
}

func TestIncidentListLimit(t *testing.T) {
	e := newTestEnvWithLimit(t, 1)
	cookie := e.login(t, e.teacherID)
	createIncidentWith(t, e, cookie, "First case", "BEHAVIORAL", false)
	createIncidentWith(t, e, cookie, "Second case", "BEHAVIORAL", false)

	rec := e.do(t, http.MethodGet, "/api/incidents/", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var list []incidentResponse
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("capped list = %d incidents, want 1", len(list))
	}
}

type statsResponse struct {
	Open     int            `json:"open"`
	Urgent   int            `json:"urgent"`
	Assigned int            `json:"assigned"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Recent   []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"recent"`
	Upcoming []struct {
		IncidentID int64 `json:"incident_id"`
		Event      struct {
			Title string `json:"title"`
		} `json:"event"`
	} `json:"upcoming"`
}

func TestDashboardAndCalendar(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, e.teacherID)
	inc := createIncident(t, e, cookie)

	// A future-dated event feeds the upcoming list.
	future := time.Now().UTC().Add(48 * time.Hour)
	rec := e.do(t, http.MethodPost, fmt.Sprintf("/api/incidents/%d/events", inc.ID), cookie, map[string]any{
		"type":  "MEETING",
		"title": "Scheduled family meeting",
		"date":  future.Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add future event: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/dashboard/stats", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	var stats statsResponse
	decodeBody(t, rec, &stats)
	if stats.Total != 1 || stats.Open != 1 || stats.ByStatus["OPEN"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Urgent != 0 {
		t.Fatalf("urgent = %d, want 0 for MEDIUM priority", stats.Urgent)
	}
	if stats.Assigned != 1 {
		t.Fatalf("assigned = %d, want 1 (reporter is always a responder)", stats.Assigned)
	}
	if len(stats.Recent) != 1 || stats.Recent[0].ID != inc.ID {
		t.Fatalf("recent = %+v", stats.Recent)
	}
	if len(stats.Upcoming) != 1 || stats.Upcoming[0].Event.Title != "Scheduled family meeting" {
		t.Fatalf("upcoming = %+v", stats.Upcoming)
	}

	// Other users see empty stats for the same data set.
	otherCookie := e.login(t, e.otherID)
	rec = e.do(t, http.MethodGet, "/api/dashboard/stats", otherCookie, nil)
	decodeBody(t, rec, &stats)
	if stats.Total != 0 || stats.Assigned != 0 || len(stats.Recent) != 0 || len(stats.Upcoming) != 0 {
		t.Fatalf("outsider stats = %+v", stats)
	}

	// An explicit range covering both events; the default current-month
	// window may cut off the meeting near a month boundary.
	rangeQuery := fmt.Sprintf("?from=%s&to=%s",
		time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
		future.Add(time.Hour).Format(time.RFC3339))
	rec = e.do(t, http.MethodGet, "/api/calendar/events"+rangeQuery, cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar: %d %s", rec.Code, rec.Body.String())
	}
	var entries []struct {
		IncidentID int64 `json:"incident_id"`
	}
	decodeBody(t, rec, &entries)
	if len(entries) != 2 {
		t.Fatalf("calendar entries = %d, want 2", len(entries))
	}
}
