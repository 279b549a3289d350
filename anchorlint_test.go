package anchorlint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorsec/anchorlint"
	"github.com/anchorsec/anchorlint/internal/config"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

func trivialBody() *ir.Body {
	return &ir.Body{Blocks: []ir.BasicBlock{{Terminator: ir.Terminator{Kind: ir.TermReturn}}}}
}

func fixtureProgram() *ir.Program {
	return &ir.Program{
		Name: "fixture",
		Functions: []*ir.Function{
			{
				DefPath: "vault::vault::deposit",
				Name:    "deposit",
				Span:    ir.Span{File: "lib.rs", Line: 10},
				Body:    trivialBody(),
			},
			{
				DefPath:       "vault::vault::__expanded",
				Name:          "__expanded",
				Span:          ir.Span{File: "lib.rs", Line: 1},
				FromExpansion: true,
				Body:          trivialBody(),
			},
			{
				DefPath: "vault::vault::extern_decl",
				Name:    "extern_decl",
				Span:    ir.Span{File: "lib.rs", Line: 30},
			},
		},
	}
}

// reportEveryFn flags every function it visits at the function's span.
func reportEveryFn(name string, sev lint.Severity) *lint.Rule {
	r := &lint.Rule{Name: name, Doc: "test rule", Severity: sev}
	r.Check = func(pass *lint.Pass) []lint.Diagnostic {
		return []lint.Diagnostic{pass.Report(r, pass.Fn.Span, "flagged")}
	}
	return r
}

func TestRunSkipsExpansionAndBodylessFunctions(t *testing.T) {
	rule := reportEveryFn("stub", lint.SeverityWarning)
	diags := anchorlint.Run(fixtureProgram(), anchorlint.Options{Rules: []*lint.Rule{rule}})

	require.Len(t, diags, 1)
	assert.Equal(t, "stub", diags[0].Rule)
	assert.Equal(t, 10, diags[0].Span.Line)
}

func TestRunHonorsIgnoreDirectives(t *testing.T) {
	prog := fixtureProgram()
	prog.Files = []*ir.SourceFile{{
		Name: "lib.rs",
		Content: "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\n" +
			"// anchorlint:ignore:stub\npub fn deposit() {}\n",
	}}

	rule := reportEveryFn("stub", lint.SeverityWarning)
	diags := anchorlint.Run(prog, anchorlint.Options{Rules: []*lint.Rule{rule}})
	assert.Empty(t, diags, "directive on line 9 should cover the finding on line 10")

	other := reportEveryFn("other", lint.SeverityWarning)
	diags = anchorlint.Run(prog, anchorlint.Options{Rules: []*lint.Rule{other}})
	assert.Len(t, diags, 1, "scoped directive must not suppress other rules")
}

func TestRunReportsUnusedDirectives(t *testing.T) {
	prog := fixtureProgram()
	prog.Files = []*ir.SourceFile{{
		Name:    "lib.rs",
		Content: "// anchorlint:ignore:stub\npub mod vault;\n",
	}}

	rule := reportEveryFn("stub", lint.SeverityWarning)
	diags := anchorlint.Run(prog, anchorlint.Options{Rules: []*lint.Rule{rule}})

	require.Len(t, diags, 2, "the finding on line 10 plus the unused directive on line 1")
	assert.Equal(t, anchorlint.UnusedDirectiveRule, diags[0].Rule)
	assert.Equal(t, 1, diags[0].Span.Line)
	assert.Equal(t, lint.SeverityNote, diags[0].Severity)
	assert.Equal(t, "stub", diags[1].Rule)

	opts := anchorlint.Options{
		Config: config.Config{Disable: []string{anchorlint.UnusedDirectiveRule}},
		Rules:  []*lint.Rule{rule},
	}
	diags = anchorlint.Run(prog, opts)
	require.Len(t, diags, 1)
	assert.Equal(t, "stub", diags[0].Rule)
}

func TestRunConfigFiltering(t *testing.T) {
	a := reportEveryFn("rule-a", lint.SeverityWarning)
	b := reportEveryFn("rule-b", lint.SeverityWarning)
	opts := anchorlint.Options{
		Config: config.Config{Enable: []string{"rule-a", "rule-b"}, Disable: []string{"rule-b"}},
		Rules:  []*lint.Rule{a, b},
	}

	diags := anchorlint.Run(fixtureProgram(), opts)
	require.Len(t, diags, 1)
	assert.Equal(t, "rule-a", diags[0].Rule)
}

func TestRunSeverityOverride(t *testing.T) {
	rule := reportEveryFn("stub", lint.SeverityWarning)
	opts := anchorlint.Options{
		Config: config.Config{SeverityOverrides: map[string]string{"stub": "error"}},
		Rules:  []*lint.Rule{rule},
	}

	diags := anchorlint.Run(fixtureProgram(), opts)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.SeverityError, diags[0].Severity)
}

func TestRunStableOrdering(t *testing.T) {
	// Registration order differs from position order; output must follow
	// positions.
	early := &lint.Rule{Name: "zz-early", Severity: lint.SeverityWarning}
	early.Check = func(pass *lint.Pass) []lint.Diagnostic {
		return []lint.Diagnostic{pass.Report(early, ir.Span{File: "lib.rs", Line: 3}, "early")}
	}
	late := &lint.Rule{Name: "aa-late", Severity: lint.SeverityWarning}
	late.Check = func(pass *lint.Pass) []lint.Diagnostic {
		return []lint.Diagnostic{pass.Report(late, ir.Span{File: "lib.rs", Line: 7}, "late")}
	}

	opts := anchorlint.Options{Rules: []*lint.Rule{late, early}}
	first := anchorlint.Run(fixtureProgram(), opts)
	second := anchorlint.Run(fixtureProgram(), opts)

	require.Len(t, first, 2)
	assert.Equal(t, "zz-early", first[0].Rule)
	assert.Equal(t, first, second)
}

func TestRulesRegistry(t *testing.T) {
	rules := anchorlint.Rules()
	require.Len(t, rules, 8)

	seen := map[string]bool{}
	for _, r := range rules {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Doc)
		assert.NotNil(t, r.Check)
		assert.False(t, seen[r.Name], "duplicate rule name %s", r.Name)
		seen[r.Name] = true
	}
}

func TestFailsThreshold(t *testing.T) {
	diags := []lint.Diagnostic{
		{Rule: "a", Severity: lint.SeverityNote},
		{Rule: "b", Severity: lint.SeverityWarning},
	}

	tests := []struct {
		failOn string
		want   bool
	}{
		{"note", true},
		{"warning", true},
		{"error", false},
		{"", false},
		{"bogus", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, anchorlint.FailsThreshold(diags, tt.failOn), "fail-on %q", tt.failOn)
	}
}
