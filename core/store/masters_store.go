package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type Grade struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	GradeID int64  `json:"grade_id"`
}

type Student struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	GradeID       int64   `json:"grade_id"`
	ParentContact string  `json:"parent_contact"`
	CourseIDs     []int64 `json:"course_ids,omitempty"`
}

// MastersStore holds the reference data incidents hang off: grades,
// the courses inside them and the student roster.
type MastersStore interface {
	CreateGrade(ctx context.Context, name string) (int64, error)
	ListGrades(ctx context.Context) ([]Grade, error)
	DeleteGrade(ctx context.Context, id int64) error

	CreateCourse(ctx context.Context, name string, gradeID int64) (int64, error)
	ListCourses(ctx context.Context) ([]Course, error)
	DeleteCourse(ctx context.Context, id int64) error

	CreateStudent(ctx context.Context, st *Student) (int64, error)
	GetStudent(ctx context.Context, id int64) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, st *Student) error
	DeleteStudent(ctx context.Context, id int64) error
}

type mastersStore struct {
	db *sql.DB
}

func NewMastersStore(db *sql.DB) MastersStore {
	return &mastersStore{db: db}
}

func (s *mastersStore) CreateGrade(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO grades(name) VALUES(?)`, strings.TrimSpace(name))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *mastersStore) ListGrades(ctx context.Context) ([]Grade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM grades ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (s *mastersStore) DeleteGrade(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM grades WHERE id=?`, id)
	return err
}

func (s *mastersStore) CreateCourse(ctx context.Context, name string, gradeID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO courses(name, grade_id) VALUES(?,?)`, strings.TrimSpace(name), gradeID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *mastersStore) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, grade_id FROM courses ORDER BY grade_id, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.GradeID); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *mastersStore) DeleteCourse(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id=?`, id)
	return err
}

func (s *mastersStore) CreateStudent(ctx context.Context, st *Student) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO students(name, grade_id, parent_contact) VALUES(?,?,?)`,
		strings.TrimSpace(st.Name), st.GradeID, strings.TrimSpace(st.ParentContact))
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	id, _ := res.LastInsertId()
	if err := insertStudentCourses(ctx, tx, id, st.CourseIDs); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	st.ID = id
	return id, nil
}

func (s *mastersStore) GetStudent(ctx context.Context, id int64) (*Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, `SELECT id, name, grade_id, parent_contact FROM students WHERE id=?`, id).
		Scan(&st.ID, &st.Name, &st.GradeID, &st.ParentContact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	st.CourseIDs, err = s.studentCourses(ctx, id)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *mastersStore) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, grade_id, parent_contact FROM students ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.GradeID, &st.ParentContact); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].CourseIDs, err = s.studentCourses(ctx, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *mastersStore) UpdateStudent(ctx context.Context, st *Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE students SET name=?, grade_id=?, parent_contact=? WHERE id=?`,
		strings.TrimSpace(st.Name), st.GradeID, strings.TrimSpace(st.ParentContact), st.ID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_courses WHERE student_id=?`, st.ID); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertStudentCourses(ctx, tx, st.ID, st.CourseIDs); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *mastersStore) DeleteStudent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id=?`, id)
	return err
}

func (s *mastersStore) studentCourses(ctx context.Context, studentID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT course_id FROM student_courses WHERE student_id=? ORDER BY course_id`, studentID)
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

func insertStudentCourses(ctx context.Context, tx *sql.Tx, studentID int64, courseIDs []int64) error {
	for _, cid := range courseIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO student_courses(student_id, course_id) VALUES(?,?)`, studentID, cid); err != nil {
			return err
		}
	}
	return nil
}
