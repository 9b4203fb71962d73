package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2000-01-31", "31/01/2000"},
		{"1999-12-05T00:00:00Z", "05/12/1999"},
		{"not a date", "not a date"},
	}

	for _, tt := range tests {
		got := formatDate(domain.Student{DataNascimento: tt.in})
		if got != tt.want {
			t.Errorf("formatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintStudents(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		printStudents(&buf, nil)
		if !strings.Contains(buf.String(), "Nenhum aluno cadastrado") {
			t.Errorf("output = %q, want empty notice", buf.String())
		}
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		printStudents(&buf, []domain.Student{
			{ID: "1", Nome: "Ana Silva", Matricula: "A1", Email: "ana@x.com", DataNascimento: "2000-01-31"},
			{ID: "2", Nome: "Bruno Lima", Matricula: "B2", Email: "bruno@x.com", DataNascimento: "2001-02-03"},
		})

		out := buf.String()
		for _, want := range []string{"Ana Silva", "31/01/2000", "Bruno Lima", "03/02/2001", "2 aluno(s)"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if strings.Index(out, "Ana Silva") > strings.Index(out, "Bruno Lima") {
			t.Error("rows are not in roster order")
		}
	})
}

func TestFormatEvent(t *testing.T) {
	event := roster.Event{
		Type:       roster.EventStudentCreated,
		Student:    domain.Student{ID: "id-1", Nome: "Ana Silva", Matricula: "A1"},
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	out := formatEvent(event)
	for _, want := range []string{"student.created", "id-1", "Ana Silva", "A1"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatEvent() = %q, missing %q", out, want)
		}
	}
}
