package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// cmdLogin opens a session and saves its token
func cmdLogin(args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		username = prompt(reader, os.Stdout, "Username", "admin")
	}
	password := prompt(reader, os.Stdout, "Password", "")

	resp, err := newClient(daemonURL(), "").Login(context.Background(), username, password)
	if err != nil {
		return err
	}
	if err := saveToken(resp.Token); err != nil {
		return err
	}

	fmt.Printf("✓ Logged in as %s\n", resp.Username)
	return nil
}

// cmdLogout ends the session and forgets the token
func cmdLogout() error {
	c, err := authedClient()
	if errors.Is(err, errNotLoggedIn) {
		fmt.Println("Not logged in")
		return nil
	}
	if err != nil {
		return err
	}

	err = c.Logout(context.Background())
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
		return err
	}

	if err := removeToken(); err != nil {
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

func cmdList() error {
	c, err := authedClient()
	if err != nil {
		return err
	}

	students, err := c.List(context.Background())
	if err != nil {
		return err
	}
	printStudents(os.Stdout, students)
	return nil
}

// draftFlags binds the student fields to a flag set.
type draftFlags struct {
	fs    *flag.FlagSet
	draft domain.Draft
}

func newDraftFlags(name string) *draftFlags {
	f := &draftFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.StringVar(&f.draft.Nome, "nome", "", "full name")
	f.fs.StringVar(&f.draft.Matricula, "matricula", "", "enrollment number")
	f.fs.StringVar(&f.draft.Email, "email", "", "e-mail address")
	f.fs.StringVar(&f.draft.DataNascimento, "nascimento", "", "birth date (YYYY-MM-DD)")
	return f
}

// set reports which fields were given on the command line.
func (f *draftFlags) set() map[string]bool {
	seen := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { seen[fl.Name] = true })
	return seen
}

// complete prompts for every field not given as a flag, offering base as
// the default.
func (f *draftFlags) complete(r *bufio.Reader, w io.Writer, base domain.Draft) domain.Draft {
	seen := f.set()
	out := f.draft

	if !seen["nome"] {
		out.Nome = prompt(r, w, "Nome", base.Nome)
	}
	if !seen["matricula"] {
		out.Matricula = prompt(r, w, "Matrícula", base.Matricula)
	}
	if !seen["email"] {
		out.Email = prompt(r, w, "Email", base.Email)
	}
	if !seen["nascimento"] {
		out.DataNascimento = prompt(r, w, "Nascimento (YYYY-MM-DD)", base.DataNascimento)
	}
	return out
}

// merge overlays the given flags on base without prompting.
func (f *draftFlags) merge(base domain.Draft) domain.Draft {
	seen := f.set()
	out := base
	if seen["nome"] {
		out.Nome = f.draft.Nome
	}
	if seen["matricula"] {
		out.Matricula = f.draft.Matricula
	}
	if seen["email"] {
		out.Email = f.draft.Email
	}
	if seen["nascimento"] {
		out.DataNascimento = f.draft.DataNascimento
	}
	return out
}

// splitID parses args of the form "<id> [flags]" or "[flags] <id>".
func splitID(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() == 0 {
		return "", errors.New("student id required")
	}
	id := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return id, nil
}

func cmdAdd(args []string) error {
	f := newDraftFlags("add")
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	c, err := authedClient()
	if err != nil {
		return err
	}

	draft := f.complete(bufio.NewReader(os.Stdin), os.Stdout, domain.Draft{})
	student, err := c.Add(context.Background(), draft)
	if err != nil {
		return err
	}

	fmt.Println("✓ Aluno cadastrado")
	printStudent(os.Stdout, student)
	return nil
}

func cmdEdit(args []string) error {
	f := newDraftFlags("edit")
	id, err := splitID(f.fs, args)
	if err != nil {
		return err
	}

	c, err := authedClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	current, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	var draft domain.Draft
	if len(f.set()) == 0 {
		draft = f.complete(bufio.NewReader(os.Stdin), os.Stdout, current.Draft())
	} else {
		draft = f.merge(current.Draft())
	}

	student, err := c.Update(ctx, id, draft)
	if err != nil {
		return err
	}

	fmt.Println("✓ Aluno atualizado")
	printStudent(os.Stdout, student)
	return nil
}

func cmdRemove(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	yes := fs.Bool("y", false, "skip confirmation")
	id, err := splitID(fs, args)
	if err != nil {
		return err
	}

	c, err := authedClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	student, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	if !*yes {
		question := fmt.Sprintf("Excluir %s (%s)?", student.Nome, student.Matricula)
		if !confirm(bufio.NewReader(os.Stdin), os.Stdout, question) {
			fmt.Println("Cancelado")
			return nil
		}
	}

	if err := c.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Println("✓ Aluno excluído")
	return nil
}
