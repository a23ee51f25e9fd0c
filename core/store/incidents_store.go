package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"educontrol/core/incidents"
)

// ErrConflict signals a lost optimistic-concurrency race: the incident
// row changed under us since it was loaded.
var ErrConflict = errors.New("conflict")

// IncidentsStore persists whole incident aggregates. Save applies the
// version check that gives us single-writer-per-incident semantics.
type IncidentsStore interface {
	Create(ctx context.Context, inc *incidents.Incident) (int64, error)
	Get(ctx context.Context, id int64) (*incidents.Incident, error)
	List(ctx context.Context) ([]incidents.Incident, error)
	ListOpenWithDeadlineBefore(ctx context.Context, cutoff time.Time) ([]incidents.Incident, error)
	Save(ctx context.Context, inc *incidents.Incident) error
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

func (s *incidentsStore) Create(ctx context.Context, inc *incidents.Incident) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO incidents(title, incident_type, priority, status, student_id, reporter_id, deadline, is_simple, created_at, updated_at, version)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		inc.Title, inc.Type, string(inc.Priority), string(inc.Status), inc.StudentID, inc.ReporterID,
		nullableTime(inc.Deadline), boolToInt(inc.IsSimple), inc.CreatedAt, inc.UpdatedAt, inc.Version)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	id, _ := res.LastInsertId()
	if err := insertChildren(ctx, tx, id, inc); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	inc.ID = id
	return id, nil
}

// Save writes the aggregate back. Children are replaced wholesale
// inside the same transaction as the version bump.
func (s *incidentsStore) Save(ctx context.Context, inc *incidents.Incident) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE incidents
		SET title=?, incident_type=?, priority=?, status=?, student_id=?, reporter_id=?, deadline=?, is_simple=?, updated_at=?, version=version+1
		WHERE id=? AND version=?`,
		inc.Title, inc.Type, string(inc.Priority), string(inc.Status), inc.StudentID, inc.ReporterID,
		nullableTime(inc.Deadline), boolToInt(inc.IsSimple), inc.UpdatedAt, inc.ID, inc.Version)
	if err != nil {
		tx.Rollback()
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if n == 0 {
		tx.Rollback()
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM incident_assignees WHERE incident_id=?`, inc.ID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM incident_events WHERE incident_id=?`, inc.ID); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertChildren(ctx, tx, inc.ID, inc); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	inc.Version++
	return nil
}

func (s *incidentsStore) Get(ctx context.Context, id int64) (*incidents.Incident, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, incident_type, priority, status, student_id, reporter_id, deadline, is_simple, created_at, updated_at, version
		FROM incidents WHERE id=?`, id)
	inc, err := scanIncident(row)
	if err != nil || inc == nil {
		return inc, err
	}
	if err := s.loadChildren(ctx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

func (s *incidentsStore) List(ctx context.Context) ([]incidents.Incident, error) {
	return s.listWhere(ctx, ``, nil)
}

func (s *incidentsStore) ListOpenWithDeadlineBefore(ctx context.Context, cutoff time.Time) ([]incidents.Incident, error) {
	return s.listWhere(ctx, `WHERE status='OPEN' AND deadline IS NOT NULL AND deadline < ?`, []any{cutoff})
}

func (s *incidentsStore) listWhere(ctx context.Context, where string, args []any) ([]incidents.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, incident_type, priority, status, student_id, reporter_id, deadline, is_simple, created_at, updated_at, version
		FROM incidents `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []incidents.Incident
	for rows.Next() {
		var inc incidents.Incident
		var deadline sql.NullTime
		var isSimple int
		var priority, status string
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Type, &priority, &status, &inc.StudentID, &inc.ReporterID,
			&deadline, &isSimple, &inc.CreatedAt, &inc.UpdatedAt, &inc.Version); err != nil {
			return nil, err
		}
		inc.Priority = incidents.Priority(priority)
		inc.Status = incidents.Status(status)
		inc.IsSimple = isSimple == 1
		if deadline.Valid {
			t := deadline.Time
			inc.Deadline = &t
		}
		res = append(res, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if err := s.loadChildren(ctx, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *incidentsStore) loadChildren(ctx context.Context, inc *incidents.Incident) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM incident_assignees WHERE incident_id=? ORDER BY position`, inc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	inc.AssignedToIDs = nil
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		inc.AssignedToIDs = append(inc.AssignedToIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	evRows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, title, description, event_date, author_id, author_name, agreements, report_generated, created_at
		FROM incident_events WHERE incident_id=? ORDER BY position`, inc.ID)
	if err != nil {
		return err
	}
	defer evRows.Close()
	inc.Events = nil
	for evRows.Next() {
		var ev incidents.Event
		var evType string
		var reportGenerated int
		if err := evRows.Scan(&ev.ID, &evType, &ev.Title, &ev.Description, &ev.Date, &ev.AuthorID, &ev.AuthorName,
			&ev.Agreements, &reportGenerated, &ev.CreatedAt); err != nil {
			return err
		}
		ev.Type = incidents.EventType(evType)
		ev.ReportGenerated = reportGenerated == 1
		inc.Events = append(inc.Events, ev)
	}
	return evRows.Err()
}

func insertChildren(ctx context.Context, tx *sql.Tx, incidentID int64, inc *incidents.Incident) error {
	for pos, uid := range inc.AssignedToIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incident_assignees(incident_id, user_id, position) VALUES(?,?,?)`,
			incidentID, uid, pos); err != nil {
			return err
		}
	}
	for pos, ev := range inc.Events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incident_events(id, incident_id, event_type, title, description, event_date, author_id, author_name, agreements, report_generated, position, created_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			ev.ID, incidentID, string(ev.Type), ev.Title, ev.Description, ev.Date, ev.AuthorID, ev.AuthorName,
			ev.Agreements, boolToInt(ev.ReportGenerated), pos, ev.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func scanIncident(row *sql.Row) (*incidents.Incident, error) {
	var inc incidents.Incident
	var deadline sql.NullTime
	var isSimple int
	var priority, status string
	err := row.Scan(&inc.ID, &inc.Title, &inc.Type, &priority, &status, &inc.StudentID, &inc.ReporterID,
		&deadline, &isSimple, &inc.CreatedAt, &inc.UpdatedAt, &inc.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inc.Priority = incidents.Priority(priority)
	inc.Status = incidents.Status(status)
	inc.IsSimple = isSimple == 1
	if deadline.Valid {
		t := deadline.Time
		inc.Deadline = &t
	}
	return &inc, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
