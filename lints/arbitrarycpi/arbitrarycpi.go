// Package arbitrarycpi flags cross-program invocations whose target
// program id may be chosen by the caller. A CPI context built from a
// parameter-derived (or untraceable) Pubkey is reported when an
// invocation on that context is reachable and no dominating equality
// check pins the program id to a known value.
package arbitrarycpi

import (
	"sort"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "arbitrary-cpi",
	Doc:      "CPI target program id may be user-controlled",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

// cpiCall is an invocation consuming a CPI context or instruction.
type cpiCall struct {
	span  ir.Span
	local ir.Local
}

// cpiContext is a context construction with a suspect program id.
type cpiContext struct {
	ctxLocal       ir.Local
	programIDLocal ir.Local
}

type cmp struct {
	lhs, rhs, ret ir.Local
	isEq          bool
}

// ifThen is a switch on a bool discriminant, normalized so that a truthy
// value leads to then.
type ifThen struct {
	discr     ir.Local
	then, els ir.BlockID
}

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	body := a.Body
	if body == nil || pass.Fn.FromExpansion {
		return nil
	}

	calls := map[ir.BlockID]cpiCall{}
	contexts := map[ir.BlockID]cpiContext{}
	var switches []ifThen
	var cmps []cmp

	// Instruction aggregates whose first field is a Pubkey local, for the
	// raw-invocation path.
	instructionProgramIDs := map[ir.Local]instructionInfo{}

	for bi := range body.Blocks {
		bb := ir.BlockID(bi)
		block := &body.Blocks[bi]

		for si := range block.Statements {
			recordInstructionCreation(a, bb, &block.Statements[si], instructionProgramIDs)
		}

		term := &block.Terminator
		switch term.Kind {
		case ir.TermCall:
			classifyCall(a, bb, term, calls, contexts, &cmps, instructionProgramIDs)
		case ir.TermSwitchInt:
			if sw, ok := boolSwitch(a, term); ok {
				switches = append(switches, sw)
			}
		}
	}

	var diags []lint.Diagnostic
	for _, bb := range sortedBlocks(contexts) {
		ctx := contexts[bb]
		callBB, ok := reachableCpiCall(body, bb, calls)
		if !ok {
			continue
		}
		call := calls[callBB]
		if !a.DerivesFrom(ctx.ctxLocal, call.local) && ctx.ctxLocal != call.local {
			continue
		}
		if checkedButNotDominating(a, callBB, ctx.programIDLocal, cmps, switches) ||
			!programIDCompared(a, ctx.programIDLocal, cmps) {
			diags = append(diags, pass.Report(Rule, call.span,
				"arbitrary CPI detected: program id appears user-controlled"))
		}
	}
	return diags
}

type instructionInfo struct {
	programIDLocal ir.Local
	block          ir.BlockID
}

// recordInstructionCreation remembers aggregates of the raw Instruction
// type together with the Pubkey local their program-id field came from.
func recordInstructionCreation(a *analyzer.Analyzer, bb ir.BlockID, stmt *ir.Statement, out map[ir.Local]instructionInfo) {
	if stmt.Kind != ir.StmtAssign || stmt.Rvalue.Kind != ir.RvalueAggregate {
		return
	}
	dest, ok := stmt.Place.AsLocal()
	if !ok {
		return
	}
	if !anchor.IsInstruction(a.TypeOfLocal(dest)) {
		return
	}
	if len(stmt.Rvalue.Operands) == 0 {
		return
	}
	pid, ok := stmt.Rvalue.Operands[0].AsLocal()
	if !ok || !a.IsPubkeyLocal(pid) {
		return
	}
	out[dest] = instructionInfo{programIDLocal: pid, block: bb}
}

func classifyCall(
	a *analyzer.Analyzer,
	bb ir.BlockID,
	term *ir.Terminator,
	calls map[ir.BlockID]cpiCall,
	contexts map[ir.BlockID]cpiContext,
	cmps *[]cmp,
	instructions map[ir.Local]instructionInfo,
) {
	callee := term.Callee
	if callee == nil {
		return
	}

	switch {
	case a.TakesCpiContext(term.Args) && !anchor.IsCpiContext(callee.Return):
		// Invocation consuming a context.
		if len(term.Args) == 0 {
			return
		}
		if ctxLocal, ok := term.Args[0].AsLocal(); ok &&
			anchor.IsCpiContext(a.TypeOfLocal(ctxLocal)) {
			calls[bb] = cpiCall{span: term.Span, local: ctxLocal}
		}

	case anchor.IsCpiContext(callee.Return):
		// Context construction: first argument is the program account.
		if len(term.Args) == 0 {
			return
		}
		pid, ok := a.PubkeyOperandToLocal(&term.Args[0])
		if !ok {
			return
		}
		dest, ok := term.Destination.AsLocal()
		if !ok {
			return
		}
		if origin := a.OriginOfOperand(&term.Args[0]); origin == analyzer.OriginParameter || origin == analyzer.OriginUnknown {
			contexts[bb] = cpiContext{ctxLocal: dest, programIDLocal: pid}
		}

	case anchor.IsInvoke(callee):
		trackInstructionInvoke(a, bb, term, calls, contexts, instructions)

	case isPubkeyEq(callee):
		if lhs, rhs, ok := a.ArgsAsPubkeyLocals(term.Args); ok {
			if ret, ok := term.Destination.AsLocal(); ok {
				*cmps = append(*cmps, cmp{lhs: lhs, rhs: rhs, ret: ret, isEq: true})
			}
		}

	case isPubkeyNe(callee):
		if lhs, rhs, ok := a.ArgsAsPubkeyLocals(term.Args); ok {
			if ret, ok := term.Destination.AsLocal(); ok {
				*cmps = append(*cmps, cmp{lhs: lhs, rhs: rhs, ret: ret, isEq: false})
			}
		}

	case isContainsCheck(a, callee, term):
		// A membership test over an allowlist counts as an equality guard
		// on the tested pubkey.
		pid, _ := a.PubkeyOperandToLocal(&term.Args[1])
		if ret, ok := term.Destination.AsLocal(); ok {
			*cmps = append(*cmps, cmp{lhs: pid, rhs: pid, ret: ret, isEq: true})
		}
	}
}

// trackInstructionInvoke handles program::invoke and friends: the first
// argument is the Instruction whose program-id origin decides whether the
// call is suspect.
func trackInstructionInvoke(
	a *analyzer.Analyzer,
	bb ir.BlockID,
	term *ir.Terminator,
	calls map[ir.BlockID]cpiCall,
	contexts map[ir.BlockID]cpiContext,
	instructions map[ir.Local]instructionInfo,
) {
	if len(term.Args) == 0 {
		return
	}
	instrLocal, ok := term.Args[0].AsLocal()
	if !ok {
		return
	}
	resolved := a.ResolveToOriginalLocal(instrLocal)

	info, found := instructions[instrLocal]
	if !found {
		info, found = instructions[resolved]
	}
	if !found {
		for _, candidate := range sortedInstructionLocals(instructions) {
			if a.LocalsRelated(candidate, instrLocal) || a.LocalsRelated(candidate, resolved) {
				info, found = instructions[candidate], true
				break
			}
		}
	}
	if !found {
		return
	}

	origin := a.OriginOf(info.programIDLocal)
	if origin != analyzer.OriginParameter && origin != analyzer.OriginUnknown {
		return
	}
	calls[bb] = cpiCall{span: term.Span, local: instrLocal}
	contexts[info.block] = cpiContext{ctxLocal: instrLocal, programIDLocal: info.programIDLocal}
}

func isPubkeyEq(f *ir.FuncRef) bool {
	return f.Name() == "eq"
}

func isPubkeyNe(f *ir.FuncRef) bool {
	return f.Name() == "ne"
}

func isContainsCheck(a *analyzer.Analyzer, f *ir.FuncRef, term *ir.Terminator) bool {
	if f.Name() != "contains" || len(term.Args) != 2 {
		return false
	}
	if !f.Return.IsBool() {
		return false
	}
	_, ok := a.PubkeyOperandToLocal(&term.Args[1])
	return ok
}

// boolSwitch normalizes a SwitchInt over a bool discriminant into an
// if/then/else pair.
func boolSwitch(a *analyzer.Analyzer, term *ir.Terminator) (ifThen, bool) {
	discr, ok := term.Discr.AsLocal()
	if !ok {
		return ifThen{}, false
	}
	if !a.TypeOfLocal(discr).IsBool() {
		return ifThen{}, false
	}
	then, els, ok := term.AsStaticIf()
	if !ok {
		return ifThen{}, false
	}
	return ifThen{discr: discr, then: then, els: els}, true
}

// reachableCpiCall finds the first CPI call block reachable from the
// context construction block.
func reachableCpiCall(body *ir.Body, from ir.BlockID, calls map[ir.BlockID]cpiCall) (ir.BlockID, bool) {
	return body.FirstReachable(from, func(bb ir.BlockID) bool {
		_, ok := calls[bb]
		return ok
	})
}

// knownPubkeyBlocks returns the blocks where pk's value is established by
// a comparison feeding a bool switch.
func knownPubkeyBlocks(a *analyzer.Analyzer, pk ir.Local, cmps []cmp, switches []ifThen) []ir.BlockID {
	related := func(l ir.Local) bool {
		if l == pk {
			return true
		}
		for _, dests := range a.TransitiveReverseMap {
			if containsLocal(dests, l) && containsLocal(dests, pk) {
				return true
			}
		}
		return false
	}

	var blocks []ir.BlockID
	for _, c := range cmps {
		if !related(c.lhs) && !related(c.rhs) {
			continue
		}
		for _, sw := range switches {
			if sw.discr != c.ret {
				continue
			}
			if c.isEq {
				blocks = append(blocks, sw.then)
			} else {
				blocks = append(blocks, sw.els)
			}
		}
	}
	return blocks
}

// checkedButNotDominating reports whether pk is compared somewhere, but
// no truthy branch of that comparison dominates the call block: the guard
// exists yet does not protect this invocation.
func checkedButNotDominating(a *analyzer.Analyzer, callBlock ir.BlockID, pk ir.Local, cmps []cmp, switches []ifThen) bool {
	for _, bb := range knownPubkeyBlocks(a, pk, cmps, switches) {
		if !a.Dominators.Dominates(bb, callBlock) {
			return true
		}
	}
	return false
}

// programIDCompared reports whether any comparison touches the program id
// local, a local related to it, or the same context account.
func programIDCompared(a *analyzer.Analyzer, pid ir.Local, cmps []cmp) bool {
	references := map[ir.Local]bool{pid: true}
	for src, dests := range a.TransitiveReverseMap {
		if src == pid || containsLocal(dests, pid) {
			references[src] = true
			for _, d := range dests {
				references[d] = true
			}
		}
	}

	for _, c := range cmps {
		if references[c.lhs] || references[c.rhs] {
			return true
		}
		if a.AreSameAccount(c.lhs, pid) || a.AreSameAccount(c.rhs, pid) {
			return true
		}
	}
	return false
}

func containsLocal(locals []ir.Local, l ir.Local) bool {
	for _, x := range locals {
		if x == l {
			return true
		}
	}
	return false
}

func sortedInstructionLocals(m map[ir.Local]instructionInfo) []ir.Local {
	locals := make([]ir.Local, 0, len(m))
	for l := range m {
		locals = append(locals, l)
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i] < locals[j] })
	return locals
}

func sortedBlocks(m map[ir.BlockID]cpiContext) []ir.BlockID {
	blocks := make([]ir.BlockID, 0, len(m))
	for bb := range m {
		blocks = append(blocks, bb)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}
