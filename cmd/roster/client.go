package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// errDaemonDown is returned when the daemon does not answer.
var errDaemonDown = errors.New("daemon is not running (start it with 'roster start')")

// apiError mirrors the daemon's error body.
type apiError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *apiError) Error() string {
	return e.Message
}

// client talks to rosterd over its HTTP API.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errDaemonDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil || wrapped.Error == nil {
			return &apiError{Status: resp.StatusCode, Message: resp.Status}
		}
		wrapped.Error.Status = resp.StatusCode
		return wrapped.Error
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (c *client) Login(ctx context.Context, username, password string) (loginResponse, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	return resp, err
}

func (c *client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

func (c *client) List(ctx context.Context) ([]domain.Student, error) {
	var resp struct {
		Students []domain.Student `json:"students"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/students", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Students, nil
}

func (c *client) Get(ctx context.Context, id string) (domain.Student, error) {
	var student domain.Student
	err := c.do(ctx, http.MethodGet, "/v1/students/"+id, nil, &student)
	return student, err
}

func (c *client) Add(ctx context.Context, draft domain.Draft) (domain.Student, error) {
	var student domain.Student
	err := c.do(ctx, http.MethodPost, "/v1/students", draft, &student)
	return student, err
}

func (c *client) Update(ctx context.Context, id string, draft domain.Draft) (domain.Student, error) {
	var student domain.Student
	err := c.do(ctx, http.MethodPut, "/v1/students/"+id, draft, &student)
	return student, err
}

func (c *client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/students/"+id, nil, nil)
}

type statusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Students int    `json:"students"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
	Events   *struct {
		Published int64 `json:"published"`
		Failed    int64 `json:"failed"`
		Dropped   int64 `json:"dropped"`
	} `json:"events,omitempty"`
}

func (c *client) Status(ctx context.Context) (statusResponse, error) {
	var resp statusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &resp)
	return resp, err
}

func (c *client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil) == nil
}

// describeError renders daemon errors for the terminal, listing each
// failing field on its own line.
func describeError(err error) string {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Status {
	case http.StatusUnauthorized:
		if apiErr.Message == "not authenticated" {
			return "not logged in (run 'roster login')"
		}
	case http.StatusUnprocessableEntity:
		var b bytes.Buffer
		b.WriteString(apiErr.Message)
		for _, field := range []string{domain.FieldNome, domain.FieldMatricula, domain.FieldEmail, domain.FieldDataNascimento} {
			if msg, ok := apiErr.Details[field]; ok {
				fmt.Fprintf(&b, "\n  %s: %s", field, msg)
			}
		}
		return b.String()
	}
	return apiErr.Message
}
