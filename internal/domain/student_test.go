package domain

import (
	"errors"
	"strings"
	"testing"
)

func validDraft() Draft {
	return Draft{
		Nome:           "Ana Silva",
		Matricula:      "A1",
		Email:          "ana@x.com",
		DataNascimento: "2000-01-01",
	}
}

func TestDraft_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *Draft)
		wantField string
	}{
		{"valid", func(d *Draft) {}, ""},
		{"nome too short", func(d *Draft) { d.Nome = "Al" }, FieldNome},
		{"nome empty", func(d *Draft) { d.Nome = "" }, FieldNome},
		{"nome at minimum", func(d *Draft) { d.Nome = "Ana" }, ""},
		{"nome at maximum", func(d *Draft) { d.Nome = strings.Repeat("a", 100) }, ""},
		{"nome too long", func(d *Draft) { d.Nome = strings.Repeat("a", 101) }, FieldNome},
		{"nome counts runes", func(d *Draft) { d.Nome = "Zoë" }, ""},
		{"matricula empty", func(d *Draft) { d.Matricula = "" }, FieldMatricula},
		{"matricula at maximum", func(d *Draft) { d.Matricula = strings.Repeat("1", 50) }, ""},
		{"matricula too long", func(d *Draft) { d.Matricula = strings.Repeat("1", 51) }, FieldMatricula},
		{"email empty", func(d *Draft) { d.Email = "" }, FieldEmail},
		{"email malformed", func(d *Draft) { d.Email = "ana.x.com" }, FieldEmail},
		{"email too long", func(d *Draft) { d.Email = strings.Repeat("a", 250) + "@x.com" }, FieldEmail},
		{"birth date empty", func(d *Draft) { d.DataNascimento = "" }, FieldDataNascimento},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field(tt.wantField) == "" {
				t.Errorf("Fields = %v, want entry for %q", verr.Fields, tt.wantField)
			}
			if len(verr.Fields) != 1 {
				t.Errorf("Fields = %v, want only %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestDraft_Validate_ReportsAllFields(t *testing.T) {
	err := Draft{}.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	for _, f := range []string{FieldNome, FieldMatricula, FieldEmail, FieldDataNascimento} {
		if verr.Field(f) == "" {
			t.Errorf("missing message for %q in %v", f, verr.Fields)
		}
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false, want true")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		FieldNome:  "must have at least 3 characters",
		FieldEmail: "must be a valid e-mail address",
	}}

	want := "validation failed: email: must be a valid e-mail address; nome: must have at least 3 characters"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStudent_DraftRoundTrip(t *testing.T) {
	d := validDraft()
	s := d.WithID("id-1")

	if s.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", s.ID)
	}
	if s.Draft() != d {
		t.Errorf("Draft() = %+v, want %+v", s.Draft(), d)
	}
}

func TestStudent_BirthDate(t *testing.T) {
	tests := []struct {
		value  string
		wantOK bool
		want   string
	}{
		{"2000-01-31", true, "2000-01-31"},
		{"2000-01-31T00:00:00Z", true, "2000-01-31"},
		{"31/01/2000", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		s := Student{DataNascimento: tt.value}
		got, ok := s.BirthDate()
		if ok != tt.wantOK {
			t.Errorf("BirthDate(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.want {
			t.Errorf("BirthDate(%q) = %v, want %s", tt.value, got, tt.want)
		}
	}
}
