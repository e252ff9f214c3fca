package repository

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"registrar/internal/model"
	"registrar/internal/patch"
)

func (s *Store) Students() *Table[model.Student] {
	return &Table[model.Student]{
		store: s,
		def: patch.Table{
			Name:       "students",
			ConflictOn: "student_number",
			Returning: []string{
				"id", "student_number", "name", "gender", "age", "major",
				"class_name", "contact", "notes", "created_at", "updated_at",
			},
		},
		search: []string{"student_number", "name", "major"},
		scan:   scanStudent,
	}
}

func (s *Store) Courses() *Table[model.Course] {
	return &Table[model.Course]{
		store: s,
		def: patch.Table{
			Name:       "courses",
			ConflictOn: "course_code",
			Returning: []string{
				"id", "course_code", "name", "credit_hours", "teacher",
				"description", "created_at", "updated_at",
			},
		},
		search: []string{"course_code", "name"},
		scan:   scanCourse,
	}
}

func (s *Store) Teachers() *Table[model.Teacher] {
	return &Table[model.Teacher]{
		store: s,
		def: patch.Table{
			Name:       "teachers",
			ConflictOn: "teacher_code",
			Returning: []string{
				"id", "teacher_code", "name", "title", "email", "phone",
				"department", "created_at", "updated_at",
			},
		},
		search: []string{"teacher_code", "name", "department"},
		scan:   scanTeacher,
	}
}

func scanStudent(row pgx.Row) (model.Student, error) {
	var (
		st model.Student
		id pgtype.UUID
	)
	err := row.Scan(
		&id,
		&st.StudentNumber,
		&st.Name,
		&st.Gender,
		&st.Age,
		&st.Major,
		&st.ClassName,
		&st.Contact,
		&st.Notes,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	st.ID = uuidString(id)
	return st, err
}

func scanCourse(row pgx.Row) (model.Course, error) {
	var (
		c  model.Course
		id pgtype.UUID
	)
	err := row.Scan(&id, &c.CourseCode, &c.Name, &c.CreditHours, &c.Teacher, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	c.ID = uuidString(id)
	return c, err
}

func scanTeacher(row pgx.Row) (model.Teacher, error) {
	var (
		t  model.Teacher
		id pgtype.UUID
	)
	err := row.Scan(&id, &t.TeacherCode, &t.Name, &t.Title, &t.Email, &t.Phone, &t.Department, &t.CreatedAt, &t.UpdatedAt)
	t.ID = uuidString(id)
	return t, err
}
