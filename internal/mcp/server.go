// Package mcp exposes the roster as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/roster/internal/auth"
	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
)

// Server wraps the MCP server with roster tools. It holds one session for
// the life of the process.
type Server struct {
	mcpServer *server.Server
	store     *roster.Store
	session   *auth.Session
}

// Config contains configuration for the MCP server
type Config struct {
	Store    *roster.Store
	Verifier auth.Verifier
	Version  string
}

// NewServer creates a new MCP server for the roster
func NewServer(cfg Config) *Server {
	s := &Server{
		store:   cfg.Store,
		session: auth.NewSession(cfg.Verifier),
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "roster",
		Version: version,
	}, server.WithInstructions(`
Roster manages a list of students (nome, matricula, email, dataNascimento).

Call roster_login first; every other tool fails until a login succeeds.

Available tools:
- roster_login: Authenticate with username and password
- roster_logout: End the session
- roster_list: List students in insertion order
- roster_add: Add a student
- roster_update: Replace the fields of a student by id
- roster_remove: Delete a student by id

Matricula values are unique. dataNascimento uses YYYY-MM-DD.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("roster_login").
		Description("Authenticate this MCP session.").
		Handler(s.handleLogin)

	s.mcpServer.Tool("roster_logout").
		Description("End the current session.").
		Handler(s.handleLogout)

	s.mcpServer.Tool("roster_list").
		Description("List all students in insertion order.").
		Handler(s.handleList)

	s.mcpServer.Tool("roster_add").
		Description("Add a student. Fails on invalid fields or a matricula already in use.").
		Handler(s.handleAdd)

	s.mcpServer.Tool("roster_update").
		Description("Replace every field of a student except its id.").
		Handler(s.handleUpdate)

	s.mcpServer.Tool("roster_remove").
		Description("Delete a student by id.").
		Handler(s.handleRemove)
}

// Input/Output types for tools

type LoginInput struct {
	Username string `json:"username" jsonschema:"description=Account name"`
	Password string `json:"password" jsonschema:"description=Account password"`
}

type LoginOutput struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type LogoutInput struct{}

type MessageOutput struct {
	Message string `json:"message"`
}

type ListInput struct{}

type ListOutput struct {
	Students []domain.Student `json:"students"`
	Count    int              `json:"count"`
}

type StudentInput struct {
	Nome           string `json:"nome" jsonschema:"description=Full name (3 to 100 characters)"`
	Matricula      string `json:"matricula" jsonschema:"description=Enrollment number, unique in the roster"`
	Email          string `json:"email" jsonschema:"description=E-mail address"`
	DataNascimento string `json:"dataNascimento" jsonschema:"description=Birth date as YYYY-MM-DD"`
}

func (in StudentInput) draft() domain.Draft {
	return domain.Draft{
		Nome:           in.Nome,
		Matricula:      in.Matricula,
		Email:          in.Email,
		DataNascimento: in.DataNascimento,
	}
}

// UpdateInput replaces every editable field of the student with ID.
type UpdateInput struct {
	ID      string       `json:"id" jsonschema:"description=Student id from roster_list"`
	Student StudentInput `json:"student" jsonschema:"description=Replacement values for every editable field"`
}

type RemoveInput struct {
	ID string `json:"id" jsonschema:"description=Student id from roster_list"`
}

// Tool handlers

func (s *Server) handleLogin(ctx context.Context, input LoginInput) (LoginOutput, error) {
	ok, err := s.session.Login(ctx, input.Username, input.Password)
	if err != nil {
		return LoginOutput{}, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return LoginOutput{}, domain.ErrInvalidCredentials
	}

	return LoginOutput{
		Username: s.session.Username(),
		Message:  "Logged in",
	}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ LogoutInput) (MessageOutput, error) {
	s.session.Logout()
	return MessageOutput{Message: "Logged out"}, nil
}

func (s *Server) handleList(ctx context.Context, _ ListInput) (ListOutput, error) {
	if err := s.requireLogin(); err != nil {
		return ListOutput{}, err
	}

	students := s.store.List(ctx)
	return ListOutput{Students: students, Count: len(students)}, nil
}

func (s *Server) handleAdd(ctx context.Context, input StudentInput) (domain.Student, error) {
	if err := s.requireLogin(); err != nil {
		return domain.Student{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	student, err := s.store.Add(ctx, input.draft())
	if err != nil {
		return domain.Student{}, fmt.Errorf("add student: %w", err)
	}
	return student, nil
}

func (s *Server) handleUpdate(ctx context.Context, input UpdateInput) (domain.Student, error) {
	if err := s.requireLogin(); err != nil {
		return domain.Student{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	student, err := s.store.Update(ctx, input.ID, input.Student.draft())
	if err != nil {
		return domain.Student{}, fmt.Errorf("update student: %w", err)
	}
	return student, nil
}

func (s *Server) handleRemove(ctx context.Context, input RemoveInput) (MessageOutput, error) {
	if err := s.requireLogin(); err != nil {
		return MessageOutput{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.store.Remove(ctx, input.ID); err != nil {
		return MessageOutput{}, fmt.Errorf("remove student: %w", err)
	}
	return MessageOutput{Message: fmt.Sprintf("Student %s removed", input.ID)}, nil
}

func (s *Server) requireLogin() error {
	if !s.session.IsAuthenticated() {
		return fmt.Errorf("%w: call roster_login first", domain.ErrUnauthenticated)
	}
	return nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}
