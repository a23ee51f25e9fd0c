package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	PasswordHash  string    `json:"-"`
	Salt          string    `json:"-"`
	PasswordSet   bool      `json:"password_set"`
	Active        bool      `json:"active"`
	GradeIDs      []int64   `json:"grade_ids,omitempty"`
	CourseIDs     []int64   `json:"course_ids,omitempty"`
	TutorGradeIDs []int64   `json:"tutor_grade_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	Get(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetTeacherAssignments(ctx context.Context, userID int64, courseIDs, tutorGradeIDs []int64) error
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users(name, email, role, password_hash, salt, password_set, active, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		strings.TrimSpace(user.Name), strings.ToLower(strings.TrimSpace(user.Email)), strings.ToUpper(strings.TrimSpace(user.Role)),
		user.PasswordHash, user.Salt, boolToInt(user.PasswordSet), boolToInt(user.Active), now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return id, nil
}

func (s *usersStore) Get(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, password_hash, salt, password_set, active, created_at, updated_at
		FROM users WHERE id=?`, id)
	return s.scanUser(ctx, row)
}

func (s *usersStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, password_hash, salt, password_set, active, created_at, updated_at
		FROM users WHERE email=?`, strings.ToLower(strings.TrimSpace(email)))
	return s.scanUser(ctx, row)
}

func (s *usersStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, password_hash, salt, password_set, active, created_at, updated_at
		FROM users WHERE active=1 ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		var pwSet, active int
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.Salt, &pwSet, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.PasswordSet = pwSet == 1
		u.Active = active == 1
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *usersStore) SetTeacherAssignments(ctx context.Context, userID int64, courseIDs, tutorGradeIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, tbl := range []string{"teacher_courses", "teacher_grades", "teacher_tutor_grades"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE user_id=?`, userID); err != nil {
			tx.Rollback()
			return err
		}
	}
	gradeSeen := map[int64]struct{}{}
	for _, cid := range courseIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO teacher_courses(user_id, course_id) VALUES(?,?)`, userID, cid); err != nil {
			tx.Rollback()
			return err
		}
		var gid int64
		if err := tx.QueryRowContext(ctx, `SELECT grade_id FROM courses WHERE id=?`, cid).Scan(&gid); err == nil {
			if _, ok := gradeSeen[gid]; !ok {
				gradeSeen[gid] = struct{}{}
				if _, err := tx.ExecContext(ctx, `INSERT INTO teacher_grades(user_id, grade_id) VALUES(?,?)`, userID, gid); err != nil {
					tx.Rollback()
					return err
				}
			}
		}
	}
	for _, gid := range tutorGradeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO teacher_tutor_grades(user_id, grade_id) VALUES(?,?)`, userID, gid); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *usersStore) scanUser(ctx context.Context, row *sql.Row) (*User, error) {
	var u User
	var pwSet, active int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.Salt, &pwSet, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.PasswordSet = pwSet == 1
	u.Active = active == 1
	if err := s.loadTeacherAssignments(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *usersStore) loadTeacherAssignments(ctx context.Context, u *User) error {
	collect := func(query string) ([]int64, error) {
		rows, err := s.db.QueryContext(ctx, query, u.ID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}
	var err error
	if u.GradeIDs, err = collect(`SELECT grade_id FROM teacher_grades WHERE user_id=? ORDER BY grade_id`); err != nil {
		return err
	}
	if u.CourseIDs, err = collect(`SELECT course_id FROM teacher_courses WHERE user_id=? ORDER BY course_id`); err != nil {
		return err
	}
	if u.TutorGradeIDs, err = collect(`SELECT grade_id FROM teacher_tutor_grades WHERE user_id=? ORDER BY grade_id`); err != nil {
		return err
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
