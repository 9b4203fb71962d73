package domain

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Field names as they appear in JSON and in ValidationError.Fields.
const (
	FieldNome           = "nome"
	FieldMatricula      = "matricula"
	FieldEmail          = "email"
	FieldDataNascimento = "dataNascimento"
)

// Student is a roster record. ID is assigned by the roster store on creation
// and never changes afterwards.
type Student struct {
	ID             string `json:"id"`
	Nome           string `json:"nome"`
	Matricula      string `json:"matricula"`
	Email          string `json:"email"`
	DataNascimento string `json:"dataNascimento"`
}

// Draft holds the editable fields of a student, used for both creation and
// edits.
type Draft struct {
	Nome           string `json:"nome" validate:"min=3,max=100"`
	Matricula      string `json:"matricula" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email,max=255"`
	DataNascimento string `json:"dataNascimento" validate:"required"`
}

// Draft returns the editable part of the student.
func (s Student) Draft() Draft {
	return Draft{
		Nome:           s.Nome,
		Matricula:      s.Matricula,
		Email:          s.Email,
		DataNascimento: s.DataNascimento,
	}
}

// WithID builds a Student from the draft.
func (d Draft) WithID(id string) Student {
	return Student{
		ID:             id,
		Nome:           d.Nome,
		Matricula:      d.Matricula,
		Email:          d.Email,
		DataNascimento: d.DataNascimento,
	}
}

// BirthDate parses DataNascimento. Date inputs send "2006-01-02"; full RFC 3339
// timestamps are accepted as well.
func (s Student) BirthDate() (time.Time, bool) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s.DataNascimento); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field rule and returns a *ValidationError listing all
// failing fields, or nil. It performs no I/O.
func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := jsonName(fe.StructField())
		if _, seen := verr.Fields[name]; seen {
			continue
		}
		verr.Fields[name] = message(name, fe.Tag())
	}
	return verr
}

func jsonName(structField string) string {
	switch structField {
	case "Nome":
		return FieldNome
	case "Matricula":
		return FieldMatricula
	case "Email":
		return FieldEmail
	case "DataNascimento":
		return FieldDataNascimento
	}
	return structField
}

var messages = map[string]map[string]string{
	FieldNome: {
		"min": "must have at least 3 characters",
		"max": "must have at most 100 characters",
	},
	FieldMatricula: {
		"required": "is required",
		"max":      "must have at most 50 characters",
	},
	FieldEmail: {
		"required": "must be a valid e-mail address",
		"email":    "must be a valid e-mail address",
		"max":      "must have at most 255 characters",
	},
	FieldDataNascimento: {
		"required": "is required",
	},
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return "is invalid"
}
