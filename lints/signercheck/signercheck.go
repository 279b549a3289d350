// Package signercheck flags CPI calls whose required signer account is
// neither declared as a Signer nor marked #[account(signer)], and is not
// signed through PDA seeds via a new_with_signer context.
package signercheck

import (
	"fmt"
	"sort"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "missing-signer-validation",
	Doc:      "CPI signer account not validated as signer or PDA signer",
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

	declared := signerDeclaredAccounts(pass.Program, info)

	// Accounts whose key must sign the recognized CPIs in this body.
	used := map[string]ir.Span{}

	for bi := range a.Body.Blocks {
		bb := ir.BlockID(bi)
		term := &a.Body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}
		kind := anchor.DetectCpiKind(term.Callee.DefPath)
		if kind == anchor.CpiUnknown {
			continue
		}
		rule, ok := anchor.GetCpiRule(kind)
		if !ok {
			continue
		}

		switch rule.Source {
		case anchor.SignerFromContext:
			if len(term.Args) == 0 {
				break
			}
			if ctxLocal, ok := term.Args[0].AsLocal(); ok {
				merge(used, accountsFromContext(a, bb, ctxLocal, rule))
			}
		case anchor.SignerFromArg:
			signerFromArg(a, term.Args, rule.ArgIndex, used)
		}
	}

	var diags []lint.Diagnostic
	for _, name := range sortedNames(used) {
		if declared[name] {
			continue
		}
		diags = append(diags, pass.Report(Rule, used[name], fmt.Sprintf(
			"account `%s` is used as a signer but lacks signer validation: add `#[account(signer)]`",
			name)))
	}
	return diags
}

// signerFromArg records the account passed directly at idx as a signer.
func signerFromArg(a *analyzer.Analyzer, args []ir.Operand, idx int, out map[string]ir.Span) {
	if idx >= len(args) {
		return
	}
	local, ok := args[idx].AsLocal()
	if !ok {
		return
	}
	span, ok := a.SpanOfLocal(local)
	if !ok {
		return
	}
	for _, acct := range a.AccountNamesForLocal(local, true) {
		out[acct.AccountName] = span
	}
}

// accountsFromContext finds the context construction feeding the CPI at
// cpiBlock and pulls the rule's signer field out of the accounts
// aggregate. PDA-signed contexts built with new_with_signer are skipped.
func accountsFromContext(a *analyzer.Analyzer, cpiBlock ir.BlockID, ctxLocal ir.Local, rule anchor.CpiRule) map[string]ir.Span {
	found := map[string]ir.Span{}
	for bi := range a.Body.Blocks {
		bb := ir.BlockID(bi)
		term := &a.Body.Blocks[bi].Terminator
		if term.Kind == ir.TermCall && term.Callee != nil &&
			anchor.IsCpiContext(term.Callee.Return) {

			if anchor.IsNewWithSigner(term.Callee) && len(term.Args) >= 3 {
				// PDA seeds stand in for the signer.
				if bb == cpiBlock {
					break
				}
				continue
			}

			accountsLocal, okAccounts := ir.Local(-1), false
			if len(term.Args) > 1 {
				accountsLocal, okAccounts = term.Args[1].AsLocal()
			}
			dest, okDest := term.Destination.AsLocal()
			if okAccounts && okDest && a.LocalsRelated(dest, ctxLocal) {
				merge(found, accountsFromAggregate(a, bb, accountsLocal, rule))
				break
			}
		}
		if bb == cpiBlock {
			break
		}
	}
	return found
}

// accountsFromAggregate walks up to the context block looking for the
// CPI-accounts struct aggregate and resolves the signer field's account
// name by its declared position.
func accountsFromAggregate(a *analyzer.Analyzer, ctxBlock ir.BlockID, accountsLocal ir.Local, rule anchor.CpiRule) map[string]ir.Span {
	found := map[string]ir.Span{}
	for bi := range a.Body.Blocks {
		bb := ir.BlockID(bi)
		block := &a.Body.Blocks[bi]
		if block.Terminator.Kind == ir.TermCall {
			for si := range block.Statements {
				stmt := &block.Statements[si]
				if stmt.Kind != ir.StmtAssign || stmt.Rvalue.Kind != ir.RvalueAggregate {
					continue
				}
				dest, ok := stmt.Place.AsLocal()
				if !ok {
					continue
				}
				if !a.LocalsRelated(dest, accountsLocal) {
					continue
				}

				def := a.Program.StructFor(stmt.Rvalue.AggregateType)
				if def != nil {
					if idx := fieldIndex(def, rule.FieldName); idx >= 0 && idx < len(stmt.Rvalue.Operands) {
						if local, ok := stmt.Rvalue.Operands[idx].AsLocal(); ok {
							for _, acct := range a.AccountNamesForLocal(local, true) {
								found[acct.AccountName] = stmt.Span
							}
						}
					}
				}
				break
			}
		}
		if bb == ctxBlock {
			break
		}
	}
	return found
}

func fieldIndex(def *ir.StructDef, name string) int {
	for i, f := range def.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// signerDeclaredAccounts collects the context accounts that carry signer
// validation, either by Signer type or by a signer attribute.
func signerDeclaredAccounts(prog *ir.Program, info *analyzer.ContextInfo) map[string]bool {
	declared := map[string]bool{}
	def := prog.StructFor(info.AccountsType)
	if def == nil {
		return declared
	}
	for _, field := range def.Fields {
		if anchor.IsSigner(field.Type) || anchor.ExtractConstraint(field).HasSigner {
			declared[field.Name] = true
		}
	}
	return declared
}

func merge(dst, src map[string]ir.Span) {
	for name, span := range src {
		dst[name] = span
	}
}

func sortedNames(m map[string]ir.Span) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
