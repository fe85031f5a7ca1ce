package cli

import (
	"errors"
	"fmt"

	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/render"
)

// Exit codes reported by the guildq binaries.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitConflict   = 4
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// ExitCode picks the process exit code for err. Explicit codes win, then
// resolution error kinds are mapped.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return ExitValidation
	case domain.KindNotFound:
		return ExitNotFound
	case domain.KindConflict:
		return ExitConflict
	}
	return ExitError
}

// outputFormat resolves the effective format from the configured default and
// the per-command --json/--yaml switches.
func outputFormat(configured string, asJSON, asYAML bool) render.Format {
	switch {
	case asJSON:
		return render.FormatJSON
	case asYAML:
		return render.FormatYAML
	}
	return render.ParseFormat(configured)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func optionalString(s *string) string {
	if s == nil {
		return "-"
	}
	return dash(*s)
}

func countLabel(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
