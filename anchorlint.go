// Package anchorlint detects common account-validation and CPI mistakes
// in Anchor programs by analyzing a lowered program dump.
//
// The dump carries the program's functions in a simplified IR together
// with struct definition tables and source files. The driver runs every
// registered rule over every analyzable function and reports findings
// with stable ordering.
package anchorlint

import (
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/internal/config"
	"github.com/anchorsec/anchorlint/internal/directive"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
	"github.com/anchorsec/anchorlint/lints/arbitrarycpi"
	"github.com/anchorsec/anchorlint/lints/cpiresult"
	"github.com/anchorsec/anchorlint/lints/dupmutable"
	"github.com/anchorsec/anchorlint/lints/fieldinit"
	"github.com/anchorsec/anchorlint/lints/ownercheck"
	"github.com/anchorsec/anchorlint/lints/pdaoverlap"
	"github.com/anchorsec/anchorlint/lints/reloadcheck"
	"github.com/anchorsec/anchorlint/lints/signercheck"
)

// Rules returns the full registry in registration order.
func Rules() []*lint.Rule {
	return []*lint.Rule{
		arbitrarycpi.Rule,
		cpiresult.Rule,
		dupmutable.Rule,
		fieldinit.Rule,
		ownercheck.Rule,
		pdaoverlap.Rule,
		reloadcheck.Rule,
		signercheck.Rule,
	}
}

// UnusedDirectiveRule names the diagnostic reported for ignore
// directives that suppressed nothing. It is not a registered rule but
// can be disabled through configuration like one.
const UnusedDirectiveRule = "unused-directive"

// Options configures one driver run.
type Options struct {
	Config config.Config
	// Rules overrides the registry; nil means Rules().
	Rules []*lint.Rule
}

// Run executes the selected rules over every function of the dump and
// returns the surviving diagnostics sorted by position.
//
// Functions produced by macro expansion and functions without a body are
// skipped. Findings at lines carrying an ignore directive are dropped.
func Run(prog *ir.Program, opts Options) []lint.Diagnostic {
	rules := opts.Rules
	if rules == nil {
		rules = Rules()
	}
	selected := make([]*lint.Rule, 0, len(rules))
	for _, r := range rules {
		if opts.Config.RuleEnabled(r.Name) {
			selected = append(selected, r)
		}
	}

	ignores := directive.BuildIndex(prog)

	var diags []lint.Diagnostic
	for _, fn := range prog.Functions {
		if fn.FromExpansion || fn.Body == nil {
			continue
		}
		a := analyzer.New(prog, fn)
		pass := &lint.Pass{Program: prog, Fn: fn, Analyzer: a}
		for _, r := range selected {
			for _, d := range r.Check(pass) {
				if ignores.ShouldIgnore(d.Span, d.Rule) {
					continue
				}
				if name, ok := opts.Config.SeverityOverrides[d.Rule]; ok {
					if sev, valid := ParseSeverity(name); valid {
						d.Severity = sev
					}
				}
				diags = append(diags, d)
			}
		}
	}
	if opts.Config.RuleEnabled(UnusedDirectiveRule) {
		for _, loc := range ignores.Unused() {
			diags = append(diags, lint.Diagnostic{
				Rule:     UnusedDirectiveRule,
				Severity: lint.SeverityNote,
				Span:     ir.Span{File: loc.File, Line: loc.Line},
				Message:  "unused anchorlint:ignore directive",
			})
		}
	}
	lint.SortDiagnostics(diags)
	return diags
}

// ParseSeverity maps a configuration string to a severity.
func ParseSeverity(name string) (lint.Severity, bool) {
	switch name {
	case "error":
		return lint.SeverityError, true
	case "warning":
		return lint.SeverityWarning, true
	case "note":
		return lint.SeverityNote, true
	}
	return lint.SeverityNote, false
}

// FailsThreshold reports whether any diagnostic reaches the fail-on
// severity. An empty or unknown threshold never fails.
func FailsThreshold(diags []lint.Diagnostic, failOn string) bool {
	threshold, ok := ParseSeverity(failOn)
	if !ok {
		return false
	}
	for _, d := range diags {
		if d.Severity >= threshold {
			return true
		}
	}
	return false
}
