// Package lint defines the rule and diagnostic model shared by every
// checker: a Rule inspects one function at a time through a Pass and
// returns Diagnostics. Rules hold no state between functions.
package lint

import (
	"sort"

	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Diagnostic is one finding of a rule.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Span     ir.Span
	Message  string
	// Note optionally points at a second location, e.g. the CPI a stale
	// read relates to.
	Note     string
	NoteSpan ir.Span
}

// Rule is a single checker. Check receives the per-function pass and
// returns its findings; it must not retain the pass.
type Rule struct {
	Name     string
	Doc      string
	Severity Severity
	Check    func(*Pass) []Diagnostic
}

// Pass carries everything a rule may inspect for one function: the
// decoded program, the function, and the shared analysis kernel.
type Pass struct {
	Program  *ir.Program
	Fn       *ir.Function
	Analyzer *analyzer.Analyzer
}

// Report builds a diagnostic for this pass's rule invocation.
func (p *Pass) Report(rule *Rule, span ir.Span, msg string) Diagnostic {
	return Diagnostic{
		Rule:     rule.Name,
		Severity: rule.Severity,
		Span:     span,
		Message:  msg,
	}
}

// SortDiagnostics orders findings by file, line, column, then rule name,
// so output is stable across runs.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := &diags[i], &diags[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}
		if a.Span.Line != b.Span.Line {
			return a.Span.Line < b.Span.Line
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Rule < b.Rule
	})
}
