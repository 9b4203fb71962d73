package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// formatDate renders a birth date as dd/mm/yyyy, or returns it unchanged
// if it does not parse.
func formatDate(s domain.Student) string {
	t, ok := s.BirthDate()
	if !ok {
		return s.DataNascimento
	}
	return t.Format("02/01/2006")
}

func printStudents(w io.Writer, students []domain.Student) {
	if len(students) == 0 {
		fmt.Fprintln(w, "Nenhum aluno cadastrado.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOME\tMATRÍCULA\tEMAIL\tNASCIMENTO")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Nome, s.Matricula, s.Email, formatDate(s))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d aluno(s)\n", len(students))
}

func printStudent(w io.Writer, s domain.Student) {
	fmt.Fprintf(w, "ID:         %s\n", s.ID)
	fmt.Fprintf(w, "Nome:       %s\n", s.Nome)
	fmt.Fprintf(w, "Matrícula:  %s\n", s.Matricula)
	fmt.Fprintf(w, "Email:      %s\n", s.Email)
	fmt.Fprintf(w, "Nascimento: %s\n", formatDate(s))
}
