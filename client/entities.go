package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"registrar/internal/model"
)

// Fields is a sparse payload: a missing key leaves the field alone, a nil
// value or "" clears it, anything else sets it.
type Fields map[string]interface{}

func fetchList[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	var resp map[string][]T
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	items := resp[key]
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func saveOne[T any](ctx context.Context, c *Client, path, key, id string, fields Fields) (T, error) {
	method, target := http.MethodPost, path
	if id != "" {
		method, target = http.MethodPut, path+"/"+url.PathEscape(id)
	}
	var resp map[string]T
	if err := c.do(ctx, method, target, fields, &resp); err != nil {
		var zero T
		return zero, err
	}
	return resp[key], nil
}

func deleteOne(ctx context.Context, c *Client, path, id string) error {
	return c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

func without[T any](items []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}

func (c *Client) LoadStudents(ctx context.Context) error {
	items, err := fetchList[model.Student](ctx, c, "/api/students", "students")
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.students = items
	c.mu.Unlock()
	return nil
}

// SaveStudent creates a student when id is empty and updates it otherwise,
// then reloads the list.
func (c *Client) SaveStudent(ctx context.Context, id string, fields Fields) (model.Student, error) {
	st, err := saveOne[model.Student](ctx, c, "/api/students", "student", id, fields)
	if err != nil {
		return st, err
	}
	c.Edit("students", "")
	return st, c.LoadStudents(ctx)
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	if err := deleteOne(ctx, c, "/api/students", id); err != nil {
		return err
	}
	c.mu.Lock()
	c.students = without(c.students, id, func(s model.Student) string { return s.ID })
	c.mu.Unlock()
	return nil
}

// Students returns the loaded students whose number, name or major contains term.
func (c *Client) Students(term string) []model.Student {
	term = strings.ToLower(strings.TrimSpace(term))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Student{}
	for _, s := range c.students {
		if term == "" || matches(term, s.StudentNumber, s.Name, deref(s.Major)) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Client) LoadCourses(ctx context.Context) error {
	items, err := fetchList[model.Course](ctx, c, "/api/courses", "courses")
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.courses = items
	c.mu.Unlock()
	return nil
}

func (c *Client) SaveCourse(ctx context.Context, id string, fields Fields) (model.Course, error) {
	course, err := saveOne[model.Course](ctx, c, "/api/courses", "course", id, fields)
	if err != nil {
		return course, err
	}
	c.Edit("courses", "")
	return course, c.LoadCourses(ctx)
}

func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	if err := deleteOne(ctx, c, "/api/courses", id); err != nil {
		return err
	}
	c.mu.Lock()
	c.courses = without(c.courses, id, func(co model.Course) string { return co.ID })
	c.mu.Unlock()
	return nil
}

// Courses returns the loaded courses whose code or name contains term.
func (c *Client) Courses(term string) []model.Course {
	term = strings.ToLower(strings.TrimSpace(term))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Course{}
	for _, co := range c.courses {
		if term == "" || matches(term, co.CourseCode, co.Name) {
			out = append(out, co)
		}
	}
	return out
}

func (c *Client) LoadTeachers(ctx context.Context) error {
	items, err := fetchList[model.Teacher](ctx, c, "/api/teachers", "teachers")
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.teachers = items
	c.mu.Unlock()
	return nil
}

func (c *Client) SaveTeacher(ctx context.Context, id string, fields Fields) (model.Teacher, error) {
	t, err := saveOne[model.Teacher](ctx, c, "/api/teachers", "teacher", id, fields)
	if err != nil {
		return t, err
	}
	c.Edit("teachers", "")
	return t, c.LoadTeachers(ctx)
}

func (c *Client) DeleteTeacher(ctx context.Context, id string) error {
	if err := deleteOne(ctx, c, "/api/teachers", id); err != nil {
		return err
	}
	c.mu.Lock()
	c.teachers = without(c.teachers, id, func(t model.Teacher) string { return t.ID })
	c.mu.Unlock()
	return nil
}

// Teachers returns the loaded teachers whose code, name or department contains term.
func (c *Client) Teachers(term string) []model.Teacher {
	term = strings.ToLower(strings.TrimSpace(term))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Teacher{}
	for _, t := range c.teachers {
		if term == "" || matches(term, t.TeacherCode, t.Name, deref(t.Department)) {
			out = append(out, t)
		}
	}
	return out
}
