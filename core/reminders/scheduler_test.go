package reminders

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"educontrol/config"
	"educontrol/core/incidents"
	"educontrol/core/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: "sqlite", DBURL: filepath.Join(t.TempDir(), "reminders.db")}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func TestRunOnceRecordsOverdueIncidents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users := store.NewUsersStore(db)
	masters := store.NewMastersStore(db)
	uid, err := users.Create(ctx, &store.User{Name: "Laura Vega", Email: "laura@school.test", Role: "TEACHER", Active: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	gid, err := masters.CreateGrade(ctx, "3rd Grade")
	if err != nil {
		t.Fatalf("seed grade: %v", err)
	}
	st := &store.Student{Name: "Diego P.", GradeID: gid}
	if _, err := masters.CreateStudent(ctx, st); err != nil {
		t.Fatalf("seed student: %v", err)
	}

	incidentsStore := store.NewIncidentsStore(db)
	actor := incidents.Actor{ID: uid, Name: "Laura Vega", Role: "TEACHER"}
	past := time.Now().UTC().Add(-48 * time.Hour)
	inc, err := incidents.New(incidents.Draft{Title: "Stalled case", StudentID: st.ID, Deadline: &past}, actor, time.Now().UTC())
	if err != nil {
		t.Fatalf("incidents.New: %v", err)
	}
	if _, err := incidentsStore.Create(ctx, inc); err != nil {
		t.Fatalf("create incident: %v", err)
	}

	sessions := store.NewSessionsStore(db)
	audit := store.NewAuditStore(db)
	s := NewScheduler(config.RemindersConfig{Spec: "0 7 * * *"}, incidentsStore, sessions, audit, nil)
	if err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	entries, err := audit.List(ctx, 10)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == "incidents.deadline.overdue" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no overdue entry recorded, entries=%+v", entries)
	}
}

func TestRunOncePurgesExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users := store.NewUsersStore(db)
	uid, err := users.Create(ctx, &store.User{Name: "Laura Vega", Email: "laura@school.test", Role: "TEACHER", Active: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	sessions := store.NewSessionsStore(db)
	expired := time.Now().UTC().Add(-time.Hour)
	rec := &store.SessionRecord{
		ID: "expired-session", UserID: uid, Role: "TEACHER",
		CreatedAt: expired.Add(-time.Hour), LastSeenAt: expired, ExpiresAt: expired,
	}
	if err := sessions.Insert(ctx, rec); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	s := NewScheduler(config.RemindersConfig{Spec: "0 7 * * *"}, store.NewIncidentsStore(db), sessions, store.NewAuditStore(db), nil)
	if err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, err := sessions.Get(ctx, "expired-session")
	if err != nil {
		t.Fatalf("sessions get: %v", err)
	}
	if got != nil {
		t.Fatal("expired session not purged")
	}
}
