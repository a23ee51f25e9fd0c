package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"educontrol/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed pgmigrations/*.sql
var pgMigrations embed.FS

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		salt TEXT NOT NULL DEFAULT '',
		password_set INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		ip TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS grades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		grade_id INTEGER NOT NULL,
		FOREIGN KEY(grade_id) REFERENCES grades(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		grade_id INTEGER NOT NULL,
		parent_contact TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(grade_id) REFERENCES grades(id)
	);`,
	`CREATE TABLE IF NOT EXISTS student_courses (
		student_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		PRIMARY KEY (student_id, course_id),
		FOREIGN KEY(student_id) REFERENCES students(id) ON DELETE CASCADE,
		FOREIGN KEY(course_id) REFERENCES courses(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS teacher_grades (
		user_id INTEGER NOT NULL,
		grade_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, grade_id),
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY(grade_id) REFERENCES grades(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS teacher_courses (
		user_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, course_id),
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY(course_id) REFERENCES courses(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS teacher_tutor_grades (
		user_id INTEGER NOT NULL,
		grade_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, grade_id),
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY(grade_id) REFERENCES grades(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		incident_type TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'MEDIUM',
		status TEXT NOT NULL DEFAULT 'OPEN',
		student_id INTEGER NOT NULL,
		reporter_id INTEGER NOT NULL,
		deadline TIMESTAMP,
		is_simple INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY(student_id) REFERENCES students(id),
		FOREIGN KEY(reporter_id) REFERENCES users(id)
	);`,
	`CREATE TABLE IF NOT EXISTS incident_assignees (
		incident_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (incident_id, user_id),
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS incident_events (
		id TEXT PRIMARY KEY,
		incident_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		event_date TIMESTAMP NOT NULL,
		author_id INTEGER NOT NULL,
		author_name TEXT NOT NULL,
		agreements TEXT NOT NULL DEFAULT '',
		report_generated INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_student ON incidents(student_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_reporter ON incidents(reporter_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_deadline ON incidents(deadline);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_assignees_user ON incident_assignees(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_events_incident ON incident_events(incident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_events_date ON incident_events(event_date);`,
	`CREATE INDEX IF NOT EXISTS idx_courses_grade ON courses(grade_id);`,
	`CREATE INDEX IF NOT EXISTS idx_students_grade ON students(grade_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`,
}

// ApplyMigrations brings the schema up to date. sqlite runs the inline
// statement list; postgres goes through goose with the embedded SQL.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	if isPG {
		return applyGooseMigrations(ctx, db, logger)
	}
	return applySQLiteMigrations(ctx, db, logger)
}

func applySQLiteMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	if logger != nil {
		logger.Printf("sqlite migrations applied")
	}
	return nil
}

func applyGooseMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "pgmigrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	if logger != nil {
		logger.Printf("postgres migrations applied")
	}
	return nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err == nil {
		return false, nil
	}
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(version), "postgres"), nil
}
