// Package pdaoverlap flags mutable user-controlled accounts passed to a
// CPI that signs with a PDA. If the callee expects such an account to be
// uninitialized, a caller can hand it the PDA signer itself and have the
// PDA initialized out from under the program.
package pdaoverlap

import (
	"fmt"
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "pda-signer-account-overlap",
	Doc:      "user-controlled account passed to a CPI with a PDA signer",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

// maxNestedDepth bounds recursion into same-crate helper functions.
const maxNestedDepth = 2

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

	unsafeAccounts, pdaSigners := a.ExtractUnsafeAccountsAndPDAs()
	if len(unsafeAccounts) == 0 || len(pdaSigners) == 0 {
		return nil
	}

	var diags []lint.Diagnostic
	visited := map[string]bool{pass.Fn.DefPath: true}
	scanBody(pass, a, info, unsafeAccounts, pdaSigners, visited, 0, &diags)
	return diags
}

// scanBody walks the body's call terminators for PDA-signed CPIs and
// follows same-crate helpers the context accounts are handed to.
func scanBody(pass *lint.Pass, a *analyzer.Analyzer, info *analyzer.ContextInfo,
	unsafeAccounts []analyzer.UnsafeAccount, pdaSigners []anchor.PDASigner,
	visited map[string]bool, depth int, out *[]lint.Diagnostic) {

	for bi := range a.Body.Blocks {
		term := &a.Body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}

		switch {
		case anchor.IsNewWithSigner(term.Callee) && anchor.IsCpiContext(term.Callee.Return) &&
			len(term.Args) >= 3:
			passed := accountsPassedToCpi(a, info, term.Args)
			reportOverlaps(pass, term.Span, unsafeAccounts, pdaSigners, passed, out)

		case isInvokeSigned(term.Callee):
			passed := map[string]bool{}
			if len(term.Args) > 1 {
				for _, acct := range a.CollectAccountsFromAccountInfosArg(&term.Args[1], true) {
					passed[acct.AccountName] = true
				}
			}
			reportOverlaps(pass, term.Span, unsafeAccounts, pdaSigners, passed, out)

		default:
			followNestedCall(pass, a, info, term, unsafeAccounts, pdaSigners, visited, depth, out)
		}
	}
}

func isInvokeSigned(f *ir.FuncRef) bool {
	return anchor.IsInvoke(f) && strings.HasPrefix(f.Name(), "invoke_signed")
}

// accountsPassedToCpi resolves the CPI-accounts aggregate behind the
// constructor's second argument to the declared accounts it was built
// from.
func accountsPassedToCpi(a *analyzer.Analyzer, info *analyzer.ContextInfo, args []ir.Operand) map[string]bool {
	passed := map[string]bool{}
	accountsLocal, ok := args[1].AsLocal()
	if !ok {
		return passed
	}
	fields, ok := a.FindCpiAccountsStruct(accountsLocal)
	if !ok {
		return passed
	}
	for _, fieldLocal := range fields {
		if acc, ok := a.IsFromCpiContext(fieldLocal, info); ok {
			passed[acc.AccountName] = true
		}
	}
	return passed
}

// reportOverlaps reports each mutable unchecked account that reaches the
// CPI together with a PDA signer. One finding per unchecked account;
// additional signers in the same call describe the same overlap.
func reportOverlaps(pass *lint.Pass, span ir.Span, unsafeAccounts []analyzer.UnsafeAccount,
	pdaSigners []anchor.PDASigner, passed map[string]bool, out *[]lint.Diagnostic) {

	for i := range unsafeAccounts {
		ua := &unsafeAccounts[i]
		if !ua.IsMutable || !passed[ua.AccountName] {
			continue
		}
		for _, pda := range pdaSigners {
			if !passed[pda.AccountName] || pda.AccountName == ua.AccountName {
				continue
			}
			if constraintPreventsOverlap(ua.Constraints, ua.AccountName, pda.AccountName) {
				continue
			}
			d := pass.Report(Rule, span, "user-controlled account passed to CPI with PDA signer")
			d.Note = fmt.Sprintf(
				"account `%s` is user-controlled and passed to a CPI with PDA `%s` as signer, "+
					"verify on the callee side whether the account is expected to be uninitialized",
				ua.AccountName, pda.AccountName)
			d.NoteSpan = ua.Span
			*out = append(*out, d)
			break
		}
	}
}

// constraintPreventsOverlap reports whether a key-inequality constraint
// mentions both accounts.
func constraintPreventsOverlap(constraints []string, account, pda string) bool {
	for _, c := range constraints {
		if strings.Contains(c, account) && strings.Contains(c, pda) && strings.Contains(c, "!=") {
			return true
		}
	}
	return false
}

// followNestedCall descends into same-crate helpers that receive the
// context, its accounts struct, or individual declared accounts.
func followNestedCall(pass *lint.Pass, a *analyzer.Analyzer, info *analyzer.ContextInfo,
	term *ir.Terminator, unsafeAccounts []analyzer.UnsafeAccount, pdaSigners []anchor.PDASigner,
	visited map[string]bool, depth int, out *[]lint.Diagnostic) {

	if depth >= maxNestedDepth || visited[term.Callee.DefPath] {
		return
	}
	crate := cratePrefix(pass.Fn.DefPath)
	if crate == "" || cratePrefix(term.Callee.DefPath) != crate {
		return
	}
	if _, ok := a.NestedFnArguments(term.Args, info); !ok {
		return
	}
	calleeFn := pass.Program.Function(term.Callee.DefPath)
	if calleeFn == nil || calleeFn.Body == nil {
		return
	}
	visited[term.Callee.DefPath] = true
	nested := analyzer.New(pass.Program, calleeFn)
	scanBody(pass, nested, info, unsafeAccounts, pdaSigners, visited, depth+1, out)
}

func cratePrefix(defPath string) string {
	crate, _, found := strings.Cut(defPath, "::")
	if !found {
		return ""
	}
	return crate
}
