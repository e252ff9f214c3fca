// Package client is a Go client for the registrar API. It keeps the signed-in
// session and local copies of the three entity lists, mirroring the web
// console: lists are loaded on login, reloaded after a save and trimmed
// locally after a delete.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"registrar/internal/model"
)

// ErrSessionExpired matches any *APIError with status 401.
var ErrSessionExpired = errors.New("session expired, sign in again")

var ErrNotSignedIn = errors.New("not signed in")

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registrar: %d %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrSessionExpired && e.Status == http.StatusUnauthorized
}

type Session struct {
	Token string
	Admin model.Administrator
}

type Client struct {
	baseURL string
	http    *http.Client

	mu       sync.RWMutex
	session  *Session
	students []model.Student
	courses  []model.Course
	teachers []model.Teacher
	editing  map[string]string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		editing: map[string]string{},
	}
}

func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Logout drops the session and every loaded list.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.students, c.courses, c.teachers = nil, nil, nil
	c.editing = map[string]string{}
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// do sends a JSON request. A 204 leaves out untouched; a 401 clears the session.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.Logout()
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login signs in and loads all three lists.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string              `json:"token"`
		Admin model.Administrator `json:"admin"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = &Session{Token: resp.Token, Admin: resp.Admin}
	c.mu.Unlock()
	return c.LoadAll(ctx)
}

// Resume restores a saved session token: it resolves the administrator and
// loads all three lists. Any failure drops the session.
func (c *Client) Resume(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotSignedIn
	}
	c.mu.Lock()
	c.session = &Session{Token: token}
	c.mu.Unlock()

	if _, err := c.Me(ctx); err != nil {
		c.Logout()
		return err
	}
	if err := c.LoadAll(ctx); err != nil {
		c.Logout()
		return err
	}
	return nil
}

// Register creates an administrator. Without a session it only succeeds for
// the very first one.
func (c *Client) Register(ctx context.Context, username, password string) (model.Administrator, error) {
	var resp struct {
		Admin model.Administrator `json:"admin"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	return resp.Admin, err
}

// Me refreshes the signed-in administrator.
func (c *Client) Me(ctx context.Context) (model.Administrator, error) {
	if c.token() == "" {
		return model.Administrator{}, ErrNotSignedIn
	}
	var resp struct {
		Admin model.Administrator `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return model.Administrator{}, err
	}
	c.mu.Lock()
	if c.session != nil {
		c.session.Admin = resp.Admin
	}
	c.mu.Unlock()
	return resp.Admin, nil
}

func (c *Client) LoadAll(ctx context.Context) error {
	if err := c.LoadStudents(ctx); err != nil {
		return err
	}
	if err := c.LoadCourses(ctx); err != nil {
		return err
	}
	return c.LoadTeachers(ctx)
}

// Edit records which record of a resource ("students", "courses", "teachers")
// is open for editing. An empty id closes the editor.
func (c *Client) Edit(resource, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		delete(c.editing, resource)
		return
	}
	c.editing[resource] = id
}

func (c *Client) Editing(resource string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.editing[resource]
}

// matches reports whether any field contains term. term must already be
// trimmed and lower-cased.
func matches(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
