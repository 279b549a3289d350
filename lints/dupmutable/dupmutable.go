// Package dupmutable flags context structs that declare two or more
// mutable accounts of the same type without a key comparison keeping them
// apart. Passing one account in both positions aliases mutable state.
package dupmutable

import (
	"fmt"
	"regexp"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "duplicate-mutable-accounts",
	Doc:      "detect duplicate mutable accounts",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

// keyCompareRe matches `a.key() != b.key()` inside a constraint
// expression.
var keyCompareRe = regexp.MustCompile(`(\w+)\.key\(\)\s*!=\s*(\w+)\.key\(\)`)

// manualCompareRe matches key comparisons written in the handler body,
// with the accounts reached through the context.
var manualCompareRe = regexp.MustCompile(`(?:\w+\.)?accounts\.(\w+)\.key\(\)\s*(?:==|!=)\s*(?:\w+\.)?accounts\.(\w+)\.key\(\)`)

type mutableAccount struct {
	name  string
	span  ir.Span
	seeds []string
}

type accountGroup struct {
	typeKey  string
	accounts []mutableAccount
}

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	if pass.Fn.FromExpansion {
		return nil
	}
	info := a.ContextInfo
	if info == nil {
		return nil
	}
	def := pass.Program.StructFor(info.AccountsType)
	if def == nil {
		return nil
	}

	// comparisons holds "a:b" pairs established by a constraint or a
	// manual key check, recorded in both orders.
	comparisons := map[string]bool{}
	var hasOneTargets []string

	var groups []accountGroup
	grouped := map[string]int{}

	for _, field := range def.Fields {
		c := anchor.ExtractConstraint(field)
		for _, expr := range c.Constraints {
			addKeyComparisons(comparisons, keyCompareRe, expr)
		}
		hasOneTargets = append(hasOneTargets, c.HasOne...)

		if !c.Mutable {
			continue
		}
		inner := anchor.UnwrapBox(field.Type)
		if _, ok := inner.AdtDefPath(); !ok {
			continue
		}

		key := anchor.UnwrapBox(field.Type).String()
		idx, ok := grouped[key]
		if !ok {
			idx = len(groups)
			grouped[key] = idx
			groups = append(groups, accountGroup{typeKey: key})
		}
		groups[idx].accounts = append(groups[idx].accounts, mutableAccount{
			name:  field.Name,
			span:  field.Span,
			seeds: c.Seeds,
		})
	}

	addManualComparisons(pass.Program, pass.Fn, comparisons)

	var diags []lint.Diagnostic
	reported := map[string]bool{}
	for _, group := range groups {
		for i := 0; i < len(group.accounts); i++ {
			for j := i + 1; j < len(group.accounts); j++ {
				first, second := &group.accounts[i], &group.accounts[j]
				if !shouldReport(first, second, reported, comparisons, hasOneTargets) {
					continue
				}
				d := pass.Report(Rule, def.Span, "duplicate mutable account found")
				d.Note = fmt.Sprintf(
					"`%s` and `%s` may refer to the same account. "+
						"Consider adding a constraint like `#[account(constraint = %s.key() != %s.key())]`.",
					first.name, second.name, first.name, second.name)
				d.NoteSpan = first.span
				diags = append(diags, d)
			}
		}
	}
	return diags
}

func addKeyComparisons(out map[string]bool, re *regexp.Regexp, text string) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out[m[1]+":"+m[2]] = true
		out[m[2]+":"+m[1]] = true
	}
}

// addManualComparisons scans the handler's source text for explicit key
// comparisons guarding the accounts.
func addManualComparisons(prog *ir.Program, fn *ir.Function, out map[string]bool) {
	src, ok := prog.Snippet(fn.Span)
	if !ok {
		return
	}
	for _, m := range manualCompareRe.FindAllStringSubmatch(src, -1) {
		out[m[1]+":"+m[2]] = true
		out[m[2]+":"+m[1]] = true
	}
}

// shouldReport decides whether a same-typed mutable pair is flagged. A
// recorded key comparison, distinct seed derivations, or a has_one tie on
// either account all rule the pair out.
func shouldReport(first, second *mutableAccount, reported, comparisons map[string]bool, hasOneTargets []string) bool {
	pair := first.name + ":" + second.name
	if reported[pair] {
		return false
	}
	if comparisons[pair] {
		reported[pair] = true
		reported[second.name+":"+first.name] = true
		return false
	}
	if distinctSeeds(first.seeds, second.seeds) {
		return false
	}
	for _, target := range hasOneTargets {
		if target == first.name || target == second.name {
			return false
		}
	}
	reported[pair] = true
	reported[second.name+":"+first.name] = true
	return true
}

// distinctSeeds reports whether both accounts are PDAs derived from
// different seeds, which cannot alias.
func distinctSeeds(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
