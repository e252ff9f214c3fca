package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registrar/internal/apperr"
	"registrar/internal/model"
	"registrar/internal/patch"
	"registrar/internal/repository"
)

type payload interface {
	fields() []patch.Field
}

// resource serves list/get/create/update/delete for one entity table.
type resource[T any] struct {
	single     string
	plural     string
	notFound   string
	conflict   string
	required   string
	missingID  string
	store      EntityStore[T]
	newPayload func() payload
}

func mountResource[T any](r chi.Router, s *Server, path string, rs *resource[T]) {
	r.Route(path, func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.NotFound(notFound)
		r.MethodNotAllowed(methodNotAllowed)

		r.Get("/", s.handle(rs.list))
		r.Post("/", s.handle(rs.create))
		r.Put("/", s.handle(rs.requireID))
		r.Delete("/", s.handle(rs.requireID))

		r.Get("/{id}", s.handle(rs.get))
		r.Put("/{id}", s.handle(rs.update))
		r.Delete("/{id}", s.handle(rs.delete))
	})
}

func (rs *resource[T]) storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(rs.notFound)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(rs.conflict)
	default:
		return err
	}
}

func (rs *resource[T]) requireID(http.ResponseWriter, *http.Request) error {
	return apperr.Validation(rs.missingID)
}

func (rs *resource[T]) list(w http.ResponseWriter, r *http.Request) error {
	items, err := rs.store.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return rs.storeError(err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{rs.plural: items})
	return nil
}

func (rs *resource[T]) get(w http.ResponseWriter, r *http.Request) error {
	item, err := rs.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return rs.storeError(err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{rs.single: item})
	return nil
}

func (rs *resource[T]) create(w http.ResponseWriter, r *http.Request) error {
	body := rs.newPayload()
	if err := decodeJSON(w, r, body); err != nil {
		return err
	}
	set, err := patch.ResolveCreate(body.fields(), rs.required)
	if err != nil {
		return err
	}
	item, err := rs.store.Create(r.Context(), set)
	if err != nil {
		return rs.storeError(err)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{rs.single: item})
	return nil
}

func (rs *resource[T]) update(w http.ResponseWriter, r *http.Request) error {
	body := rs.newPayload()
	if err := decodeJSON(w, r, body); err != nil {
		return err
	}
	set, err := patch.ResolveUpdate(body.fields())
	if err != nil {
		return err
	}
	item, err := rs.store.Update(r.Context(), chi.URLParam(r, "id"), set)
	if err != nil {
		return rs.storeError(err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{rs.single: item})
	return nil
}

func (rs *resource[T]) delete(w http.ResponseWriter, r *http.Request) error {
	if err := rs.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return rs.storeError(err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

type studentPayload struct {
	StudentNumber patch.Value `json:"studentNumber"`
	Name          patch.Value `json:"name"`
	Gender        patch.Value `json:"gender"`
	Age           patch.Value `json:"age"`
	Major         patch.Value `json:"major"`
	ClassName     patch.Value `json:"className"`
	Contact       patch.Value `json:"contact"`
	Notes         patch.Value `json:"notes"`
}

func (p *studentPayload) fields() []patch.Field {
	return []patch.Field{
		patch.Text("student_number", "Student number", p.StudentNumber).Required(),
		patch.Text("name", "Name", p.Name).Required(),
		patch.Text("gender", "Gender", p.Gender),
		patch.Integer("age", "Age", p.Age, 0, 120),
		patch.Text("major", "Major", p.Major),
		patch.Text("class_name", "Class name", p.ClassName),
		patch.Text("contact", "Contact", p.Contact),
		patch.Text("notes", "Notes", p.Notes),
	}
}

func studentResource(store EntityStore[model.Student]) *resource[model.Student] {
	return &resource[model.Student]{
		single:     "student",
		plural:     "students",
		notFound:   "Student not found.",
		conflict:   "Student number already exists.",
		required:   "Student number and name are required.",
		missingID:  "Student ID is required in the path.",
		store:      store,
		newPayload: func() payload { return &studentPayload{} },
	}
}

type coursePayload struct {
	CourseCode  patch.Value `json:"courseCode"`
	Name        patch.Value `json:"name"`
	CreditHours patch.Value `json:"creditHours"`
	Teacher     patch.Value `json:"teacher"`
	Description patch.Value `json:"description"`
}

func (p *coursePayload) fields() []patch.Field {
	return []patch.Field{
		patch.Text("course_code", "Course code", p.CourseCode).Required(),
		patch.Text("name", "Name", p.Name).Required(),
		patch.Integer("credit_hours", "Credit hours", p.CreditHours, 0, 20),
		patch.Text("teacher", "Teacher", p.Teacher),
		patch.Text("description", "Description", p.Description),
	}
}

func courseResource(store EntityStore[model.Course]) *resource[model.Course] {
	return &resource[model.Course]{
		single:     "course",
		plural:     "courses",
		notFound:   "Course not found.",
		conflict:   "Course code already exists.",
		required:   "Course code and name are required.",
		missingID:  "Course ID is required in the path.",
		store:      store,
		newPayload: func() payload { return &coursePayload{} },
	}
}

type teacherPayload struct {
	TeacherCode patch.Value `json:"teacherCode"`
	Name        patch.Value `json:"name"`
	Title       patch.Value `json:"title"`
	Email       patch.Value `json:"email"`
	Phone       patch.Value `json:"phone"`
	Department  patch.Value `json:"department"`
}

func (p *teacherPayload) fields() []patch.Field {
	return []patch.Field{
		patch.Text("teacher_code", "Teacher code", p.TeacherCode).Required(),
		patch.Text("name", "Name", p.Name).Required(),
		patch.Text("title", "Title", p.Title),
		patch.Text("email", "Email", p.Email).Check(patch.EmailFormat("Email format is invalid.")),
		patch.Text("phone", "Phone", p.Phone).Check(patch.MaxLength(20, "Phone number is too long.")),
		patch.Text("department", "Department", p.Department),
	}
}

func teacherResource(store EntityStore[model.Teacher]) *resource[model.Teacher] {
	return &resource[model.Teacher]{
		single:     "teacher",
		plural:     "teachers",
		notFound:   "Teacher not found.",
		conflict:   "Teacher code already exists.",
		required:   "Teacher code and name are required.",
		missingID:  "Teacher ID is required in the path.",
		store:      store,
		newPayload: func() payload { return &teacherPayload{} },
	}
}
