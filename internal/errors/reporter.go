package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a diagnostic the obfuscation core
// emits. Every failure mode in spec.md §7 converts into one of these —
// nothing throws past the pass boundary.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
)

// Diagnostic is a single structured line the core reports about one
// function/pass/global: the non-fatal skips and fatal rollbacks of
// spec.md §7, plus informational notes about what a pass did.
type Diagnostic struct {
	Level    Level
	Code     string // a code from codes.go, or "" for a plain note
	Pass     string // e.g. "chakravyuha-control-flow-flatten"
	Function string // empty for module-level diagnostics
	Message  string
}

func (d Diagnostic) String() string {
	scope := d.Pass
	if d.Function != "" {
		scope = fmt.Sprintf("%s: %s", d.Pass, d.Function)
	}
	if d.Code != "" {
		return fmt.Sprintf("%s[%s] %s: %s", d.Level, d.Code, scope, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Level, scope, d.Message)
}

// Reporter accumulates diagnostics across one driver run, the way the
// teacher's ErrorReporter accumulates parse diagnostics across one
// file (internal/errors/reporter.go in the teacher repo).
type Reporter struct {
	diagnostics []Diagnostic
}

// NewReporter creates an empty diagnostic reporter.
func NewReporter() *Reporter { return &Reporter{} }

// Add records a diagnostic.
func (r *Reporter) Add(d Diagnostic) { r.diagnostics = append(r.diagnostics, d) }

// Errorf records an Error-level diagnostic with code.
func (r *Reporter) Errorf(code, pass, function, format string, args ...interface{}) {
	r.Add(Diagnostic{Level: Error, Code: code, Pass: pass, Function: function, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a Warning-level diagnostic with code.
func (r *Reporter) Warnf(code, pass, function, format string, args ...interface{}) {
	r.Add(Diagnostic{Level: Warning, Code: code, Pass: pass, Function: function, Message: fmt.Sprintf(format, args...)})
}

// Notef records an informational Note with no error code.
func (r *Reporter) Notef(pass, function, format string, args ...interface{}) {
	r.Add(Diagnostic{Level: Note, Pass: pass, Function: function, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns every diagnostic recorded so far, in order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diagnostics }

// HasErrors reports whether any Error-level diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diagnostics {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// Render formats every diagnostic for terminal display, colorized the
// same way the teacher's CLI colorizes parse errors: red for Error,
// yellow for Warning, blue for Note.
func (r *Reporter) Render() string {
	var out strings.Builder
	for _, d := range r.diagnostics {
		out.WriteString(colorFor(d.Level)(d.String()))
		out.WriteString("\n")
	}
	return out.String()
}

func colorFor(level Level) func(format string, args ...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintfFunc()
	case Warning:
		return color.New(color.FgYellow).SprintfFunc()
	default:
		return color.New(color.FgBlue).SprintfFunc()
	}
}
