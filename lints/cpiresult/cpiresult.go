// Package cpiresult flags CPI calls whose Result is neither propagated
// nor inspected. A failed invocation would then go unnoticed and the
// handler would keep running on a state it believes was changed.
package cpiresult

import (
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "cpi-no-result",
	Doc:      "CPI call result is not properly handled",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	body := a.Body
	if body == nil || pass.Fn.FromExpansion {
		return nil
	}

	var diags []lint.Diagnostic
	for bi := range body.Blocks {
		term := &body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}
		if !isCpiCall(a, term) {
			continue
		}

		// Returned directly to the caller.
		if dest, ok := term.Destination.AsLocal(); ok && dest == ir.ReturnPlace {
			continue
		}
		// Discarded with `let _ = ...`: an explicit decision, not an
		// oversight.
		if dest, ok := term.Destination.AsLocal(); ok && localNeverRead(body, dest) {
			continue
		}
		// Propagated or inspected in the continuation block.
		if term.Target != ir.NoBlock && resultHandled(body, term.Target, term.Destination) {
			continue
		}

		diags = append(diags, pass.Report(Rule, term.Span,
			"CPI call result is not handled. Consider using `?` operator or explicit error handling."))
	}
	return diags
}

// isCpiCall recognizes raw invocations and calls consuming a CpiContext.
// Builder methods that return a CpiContext are not invocations.
func isCpiCall(a *analyzer.Analyzer, term *ir.Terminator) bool {
	if anchor.IsInvoke(term.Callee) {
		return true
	}
	if !a.TakesCpiContext(term.Args) {
		return false
	}
	if anchor.IsCpiContext(term.Callee.Return) {
		return false
	}
	if len(term.Args) == 0 {
		return false
	}
	local, ok := term.Args[0].AsLocal()
	if !ok {
		return false
	}
	return anchor.IsCpiContext(a.TypeOfLocal(local))
}

// resultHandled checks the call's continuation block for the lowering of
// `?`, unwrap/expect/is_err, or a match on the Result discriminant.
func resultHandled(body *ir.Body, target ir.BlockID, dest ir.Place) bool {
	destLocal, _ := dest.AsLocal()
	return isTryBranch(body, target) ||
		isUnwrapOrExpect(body, target) ||
		isSwitchOnResult(body, target, destLocal)
}

// isTryBranch reports whether the block calls the Try::branch lowering of
// the `?` operator.
func isTryBranch(body *ir.Body, bb ir.BlockID) bool {
	block := body.Block(bb)
	if block == nil {
		return false
	}
	term := &block.Terminator
	return term.Kind == ir.TermCall && term.Callee != nil &&
		term.Callee.Name() == "branch" &&
		strings.Contains(term.Callee.DefPath, "ops::")
}

func isUnwrapOrExpect(body *ir.Body, bb ir.BlockID) bool {
	block := body.Block(bb)
	if block == nil {
		return false
	}
	term := &block.Terminator
	if term.Kind != ir.TermCall || term.Callee == nil {
		return false
	}
	if !strings.Contains(term.Callee.DefPath, "result::Result") {
		return false
	}
	switch term.Callee.Name() {
	case "unwrap", "expect", "is_err":
		return true
	case "ok":
		if term.Target != ir.NoBlock {
			destLocal, _ := term.Destination.AsLocal()
			return isSwitchOnResult(body, term.Target, destLocal)
		}
	default:
		if term.Target != ir.NoBlock {
			return isTryBranch(body, term.Target)
		}
	}
	return false
}

// isSwitchOnResult reports whether the block reads the result's
// discriminant and switches over the Ok/Err variants.
func isSwitchOnResult(body *ir.Body, bb ir.BlockID, resultLocal ir.Local) bool {
	block := body.Block(bb)
	if block == nil {
		return false
	}
	term := &block.Terminator
	if term.Kind != ir.TermSwitchInt {
		return false
	}
	discrLocal, ok := term.Discr.AsLocal()
	if !ok {
		return false
	}
	for si := range block.Statements {
		stmt := &block.Statements[si]
		if stmt.Kind != ir.StmtAssign || stmt.Rvalue.Kind != ir.RvalueDiscriminant {
			continue
		}
		src, srcOK := stmt.Rvalue.Place.AsLocal()
		dst, dstOK := stmt.Place.AsLocal()
		if !srcOK || !dstOK || src != resultLocal || dst != discrLocal {
			continue
		}
		for _, t := range term.Targets {
			if t.Value == 0 || t.Value == 1 {
				return true
			}
		}
	}
	return false
}

// localNeverRead reports whether no statement or terminator reads the
// local.
func localNeverRead(body *ir.Body, local ir.Local) bool {
	for bi := range body.Blocks {
		block := &body.Blocks[bi]
		for si := range block.Statements {
			stmt := &block.Statements[si]
			if stmt.Kind != ir.StmtAssign {
				continue
			}
			if rvalueUsesLocal(&stmt.Rvalue, local) {
				return false
			}
		}
		if terminatorUsesLocal(&block.Terminator, local) {
			return false
		}
	}
	return true
}

func rvalueUsesLocal(rv *ir.Rvalue, local ir.Local) bool {
	switch rv.Kind {
	case ir.RvalueUse, ir.RvalueCast:
		if l, ok := rv.Operand.AsLocal(); ok {
			return l == local
		}
	case ir.RvalueRef, ir.RvalueCopyForDeref, ir.RvalueDiscriminant:
		if l, ok := rv.Place.AsLocal(); ok {
			return l == local
		}
	case ir.RvalueAggregate:
		for i := range rv.Operands {
			if l, ok := rv.Operands[i].AsLocal(); ok && l == local {
				return true
			}
		}
	}
	return false
}

func terminatorUsesLocal(term *ir.Terminator, local ir.Local) bool {
	switch term.Kind {
	case ir.TermCall:
		for i := range term.Args {
			if l, ok := term.Args[i].AsLocal(); ok && l == local {
				return true
			}
		}
	case ir.TermSwitchInt:
		if l, ok := term.Discr.AsLocal(); ok {
			return l == local
		}
	}
	return false
}
