package http

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"registrar/internal/model"
	"registrar/internal/patch"
	"registrar/internal/repository"
)

type row map[string]any

type memRow struct {
	id      string
	seq     int
	values  row
	created time.Time
	updated time.Time
}

// memTable is an in-memory EntityStore keyed by a natural-key column.
type memTable[T any] struct {
	mu       sync.Mutex
	key      string
	search   []string
	rows     map[string]*memRow
	seq      int
	calls    int
	lastTerm string
	fail     error
	build    func(id string, values row, created, updated time.Time) T
}

func newMemTable[T any](key string, search []string, build func(string, row, time.Time, time.Time) T) *memTable[T] {
	return &memTable[T]{key: key, search: search, rows: map[string]*memRow{}, build: build}
}

func (m *memTable[T]) enter() error {
	m.calls++
	return m.fail
}

func (m *memTable[T]) List(_ context.Context, term string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	m.lastTerm = term
	term = strings.ToLower(strings.TrimSpace(term))

	var matched []*memRow
	for _, r := range m.rows {
		if term == "" || m.matches(r, term) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	out := []T{}
	for _, r := range matched {
		out = append(out, m.build(r.id, r.values, r.created, r.updated))
	}
	return out, nil
}

func (m *memTable[T]) matches(r *memRow, term string) bool {
	for _, col := range m.search {
		if s, ok := r.values[col].(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func (m *memTable[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.enter(); err != nil {
		return zero, err
	}
	r, ok := m.rows[id]
	if !ok {
		return zero, repository.ErrNotFound
	}
	return m.build(r.id, r.values, r.created, r.updated), nil
}

func (m *memTable[T]) keyTaken(value any, except string) bool {
	for id, r := range m.rows {
		if id != except && r.values[m.key] == value {
			return true
		}
	}
	return false
}

func (m *memTable[T]) Create(_ context.Context, set []patch.Assignment) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.enter(); err != nil {
		return zero, err
	}
	values := row{}
	for _, a := range set {
		values[a.Column] = a.Value
	}
	if m.keyTaken(values[m.key], "") {
		return zero, repository.ErrConflict
	}
	m.seq++
	now := time.Now().UTC()
	r := &memRow{id: uuid.NewString(), seq: m.seq, values: values, created: now, updated: now}
	m.rows[r.id] = r
	return m.build(r.id, r.values, r.created, r.updated), nil
}

func (m *memTable[T]) Update(_ context.Context, id string, set []patch.Assignment) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.enter(); err != nil {
		return zero, err
	}
	r, ok := m.rows[id]
	if !ok {
		return zero, repository.ErrNotFound
	}
	next := row{}
	for k, v := range r.values {
		next[k] = v
	}
	for _, a := range set {
		next[a.Column] = a.Value
	}
	if m.keyTaken(next[m.key], id) {
		return zero, repository.ErrConflict
	}
	r.values = next
	r.updated = time.Now().UTC()
	return m.build(r.id, r.values, r.created, r.updated), nil
}

func (m *memTable[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func text(values row, col string) string {
	s, _ := values[col].(string)
	return s
}

func textPtr(values row, col string) *string {
	s, ok := values[col].(string)
	if !ok {
		return nil
	}
	return &s
}

func intPtr(values row, col string) *int32 {
	n, ok := values[col].(int)
	if !ok {
		return nil
	}
	v := int32(n)
	return &v
}

func buildStudent(id string, v row, created, updated time.Time) model.Student {
	return model.Student{
		ID:            id,
		StudentNumber: text(v, "student_number"),
		Name:          text(v, "name"),
		Gender:        textPtr(v, "gender"),
		Age:           intPtr(v, "age"),
		Major:         textPtr(v, "major"),
		ClassName:     textPtr(v, "class_name"),
		Contact:       textPtr(v, "contact"),
		Notes:         textPtr(v, "notes"),
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}

func buildCourse(id string, v row, created, updated time.Time) model.Course {
	return model.Course{
		ID:          id,
		CourseCode:  text(v, "course_code"),
		Name:        text(v, "name"),
		CreditHours: intPtr(v, "credit_hours"),
		Teacher:     textPtr(v, "teacher"),
		Description: textPtr(v, "description"),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

func buildTeacher(id string, v row, created, updated time.Time) model.Teacher {
	return model.Teacher{
		ID:          id,
		TeacherCode: text(v, "teacher_code"),
		Name:        text(v, "name"),
		Title:       textPtr(v, "title"),
		Email:       textPtr(v, "email"),
		Phone:       textPtr(v, "phone"),
		Department:  textPtr(v, "department"),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

type memAdmins struct {
	mu     sync.Mutex
	admins []model.Administrator
	calls  int
	// staleCount makes CountAdministrators report an empty table, as seen by
	// a register request that lost the bootstrap race.
	staleCount bool
}

func (m *memAdmins) CountAdministrators(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.staleCount {
		return 0, nil
	}
	return len(m.admins), nil
}

func (m *memAdmins) GetAdministratorByUsername(_ context.Context, username string) (model.Administrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, a := range m.admins {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Administrator{}, repository.ErrNotFound
}

func (m *memAdmins) GetAdministrator(_ context.Context, id string) (model.Administrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, a := range m.admins {
		if a.ID == id {
			a.PasswordHash = ""
			return a, nil
		}
	}
	return model.Administrator{}, repository.ErrNotFound
}

func (m *memAdmins) insert(username, hash string) (model.Administrator, error) {
	for _, a := range m.admins {
		if a.Username == username {
			return model.Administrator{}, repository.ErrConflict
		}
	}
	admin := model.Administrator{ID: uuid.NewString(), Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	m.admins = append(m.admins, admin)
	admin.PasswordHash = ""
	return admin, nil
}

func (m *memAdmins) CreateAdministrator(_ context.Context, username, hash string) (model.Administrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.insert(username, hash)
}

func (m *memAdmins) CreateFirstAdministrator(_ context.Context, username, hash string) (model.Administrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.admins) > 0 {
		return model.Administrator{}, repository.ErrRegistrationClosed
	}
	return m.insert(username, hash)
}

type fakeStores struct {
	admins   *memAdmins
	students *memTable[model.Student]
	courses  *memTable[model.Course]
	teachers *memTable[model.Teacher]
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		admins:   &memAdmins{},
		students: newMemTable("student_number", []string{"student_number", "name", "major"}, buildStudent),
		courses:  newMemTable("course_code", []string{"course_code", "name"}, buildCourse),
		teachers: newMemTable("teacher_code", []string{"teacher_code", "name", "department"}, buildTeacher),
	}
}

func (f *fakeStores) stores() Stores {
	return Stores{Admins: f.admins, Students: f.students, Courses: f.courses, Teachers: f.teachers}
}

func (f *fakeStores) calls() int {
	return f.admins.calls + f.students.calls + f.courses.calls + f.teachers.calls
}
