// Package ownercheck flags unchecked accounts whose data is read without
// a detectable owner validation. Without one, a caller can pass an
// account owned by an unexpected program and have its data deserialized
// as if it were trusted state.
package ownercheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "missing-owner-check",
	Doc:      "account data accessed without a detectable owner check",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	if a.Body == nil || pass.Fn.FromExpansion {
		return nil
	}
	if a.ContextInfo == nil {
		a.UpdateContextAccounts()
	}
	info := a.ContextInfo
	if info == nil {
		return nil
	}

	candidates := accountsNeedingOwnerCheck(pass.Program, info)
	if len(candidates) == 0 {
		return nil
	}

	accessed, cpiPrograms := accountsWithDataAccess(a)

	var names []string
	for name := range candidates {
		if accessed[name] && !cpiPrograms[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var diags []lint.Diagnostic
	for _, name := range names {
		diags = append(diags, pass.Report(Rule, candidates[name], fmt.Sprintf(
			"account `%s` has its data accessed but no owner validation detected: "+
				"add `#[account(owner = <program>)]` or use `Account<'info, T>`",
			name)))
	}
	return diags
}

// accountsNeedingOwnerCheck collects the context's unchecked account
// fields that carry no constraint standing in for an owner check. Seeds
// and address constraints pin the account, so they count as validation.
func accountsNeedingOwnerCheck(prog *ir.Program, info *analyzer.ContextInfo) map[string]ir.Span {
	candidates := map[string]ir.Span{}
	def := prog.StructFor(info.AccountsType)
	if def == nil {
		return candidates
	}
	for _, field := range def.Fields {
		inner := anchor.UnwrapBox(field.Type)
		if !anchor.IsUncheckedAccount(inner) &&
			!anchor.IsOptionUncheckedAccount(inner) &&
			!anchor.IsAccountInfo(inner) {
			continue
		}
		c := anchor.ExtractConstraint(field)
		if c.HasOwner || c.HasAddress || len(c.Seeds) > 0 {
			continue
		}
		candidates[field.Name] = field.Span
	}
	return candidates
}

// accountsWithDataAccess scans the body for borrow and deserialize calls
// and names the accounts they read. Accounts handed to a CPI builder are
// collected separately: those reads target the program account, which the
// invocation itself validates.
func accountsWithDataAccess(a *analyzer.Analyzer) (accessed, cpiPrograms map[string]bool) {
	accessed = map[string]bool{}
	cpiPrograms = map[string]bool{}

	for bi := range a.Body.Blocks {
		term := &a.Body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}
		callee := term.Callee

		if anchor.IsDerefMethod(callee) || anchor.IsKeyMethod(callee) ||
			callee.Name() == "to_account_info" {
			continue
		}

		if strings.Contains(callee.DefPath, "CpiBuilder") {
			for i := range term.Args {
				if name, ok := accountFromOperand(a, &term.Args[i]); ok {
					cpiPrograms[name] = true
				}
			}
			continue
		}

		switch {
		case isBorrowFn(callee):
			if len(term.Args) > 0 {
				if name, ok := accountFromOperand(a, &term.Args[0]); ok {
					accessed[name] = true
				}
			}
		case isDeserializeFn(callee):
			for i := range term.Args {
				if name, ok := accountFromOperand(a, &term.Args[i]); ok {
					accessed[name] = true
					break
				}
			}
		}
	}
	return accessed, cpiPrograms
}

func isBorrowFn(f *ir.FuncRef) bool {
	switch f.Name() {
	case "borrow", "borrow_mut":
		return true
	}
	return false
}

func isDeserializeFn(f *ir.FuncRef) bool {
	name := f.Name()
	return strings.Contains(name, "deserialize") || name == "try_from_slice"
}

// accountFromOperand recovers the bare account name behind an operand's
// local.
func accountFromOperand(a *analyzer.Analyzer, op *ir.Operand) (string, bool) {
	local, ok := a.LocalFromOperand(op)
	if !ok {
		return "", false
	}
	names := a.AccountNamesForLocal(local, true)
	if len(names) == 0 {
		return "", false
	}
	name := names[0].AccountName
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}
