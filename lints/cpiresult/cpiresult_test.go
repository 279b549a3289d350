package cpiresult

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var (
	resultType = &ir.Type{Kind: ir.TypeAdt, DefPath: "core::result::Result"}
	cpiCtxType = &ir.Type{Kind: ir.TypeAdt, DefPath: "anchor_lang::context::CpiContext"}
)

func placeOf(l int) ir.Place { return ir.Place{Local: ir.Local(l)} }

func copyOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandCopy, Place: placeOf(l)}
}

func moveOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandMove, Place: placeOf(l)}
}

func invokeTerm(dest, target int, line int) ir.Terminator {
	return ir.Terminator{
		Kind:        ir.TermCall,
		Callee:      &ir.FuncRef{DefPath: "solana_program::program::invoke", Return: resultType},
		Destination: placeOf(dest),
		Target:      ir.BlockID(target),
		Span:        ir.Span{File: "lib.rs", Line: line},
	}
}

func returnBlock(stmts ...ir.Statement) ir.BasicBlock {
	return ir.BasicBlock{Statements: stmts, Terminator: ir.Terminator{Kind: ir.TermReturn}}
}

func runOn(t *testing.T, body *ir.Body) []lint.Diagnostic {
	t.Helper()
	prog := &ir.Program{Name: "fixture"}
	fn := &ir.Function{DefPath: "vault::vault::pay", Name: "pay", Body: body}
	pass := &lint.Pass{Program: prog, Fn: fn, Analyzer: analyzer.New(prog, fn)}
	return Rule.Check(pass)
}

func TestFlagsReadButUnhandledResult(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 4),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(2, 1, 7)},
			returnBlock(ir.Statement{
				Kind:   ir.StmtAssign,
				Place:  placeOf(3),
				Rvalue: ir.Rvalue{Kind: ir.RvalueUse, Operand: copyOp(2)},
			}),
		},
	}

	diags := runOn(t, body)
	assert.Len(t, diags, 1)
	assert.Equal(t, "cpi-no-result", diags[0].Rule)
	assert.Equal(t, 7, diags[0].Span.Line)
}

func TestSkipsResultReturnedToCaller(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 2),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(0, 1, 7)},
			returnBlock(),
		},
	}
	assert.Empty(t, runOn(t, body))
}

func TestSkipsExplicitlyDiscardedResult(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 3),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(2, 1, 7)},
			returnBlock(),
		},
	}
	assert.Empty(t, runOn(t, body))
}

func TestSkipsTryPropagation(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 4),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(2, 1, 7)},
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "core::ops::try_trait::Try::branch"},
				Args:        []ir.Operand{moveOp(2)},
				Destination: placeOf(3),
				Target:      2,
			}},
			returnBlock(),
		},
	}
	assert.Empty(t, runOn(t, body))
}

func TestSkipsUnwrap(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 4),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(2, 1, 7)},
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "core::result::Result::unwrap"},
				Args:        []ir.Operand{moveOp(2)},
				Destination: placeOf(3),
				Target:      2,
			}},
			returnBlock(),
		},
	}
	assert.Empty(t, runOn(t, body))
}

func TestSkipsMatchOnResult(t *testing.T) {
	body := &ir.Body{
		ArgCount: 0,
		Locals:   make([]ir.LocalDecl, 4),
		Blocks: []ir.BasicBlock{
			{Terminator: invokeTerm(2, 1, 7)},
			{
				Statements: []ir.Statement{{
					Kind:   ir.StmtAssign,
					Place:  placeOf(3),
					Rvalue: ir.Rvalue{Kind: ir.RvalueDiscriminant, Place: placeOf(2)},
				}},
				Terminator: ir.Terminator{
					Kind:      ir.TermSwitchInt,
					Discr:     copyOp(3),
					Targets:   []ir.SwitchTarget{{Value: 0, Block: 2}},
					Otherwise: 3,
				},
			},
			returnBlock(),
			returnBlock(),
		},
	}
	assert.Empty(t, runOn(t, body))
}

func TestFlagsWrapperCpiCall(t *testing.T) {
	locals := make([]ir.LocalDecl, 4)
	locals[1].Type = cpiCtxType
	body := &ir.Body{
		ArgCount: 0,
		Locals:   locals,
		Blocks: []ir.BasicBlock{
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "anchor_spl::token::transfer", Return: resultType},
				Args:        []ir.Operand{moveOp(1)},
				Destination: placeOf(2),
				Target:      1,
				Span:        ir.Span{File: "lib.rs", Line: 12},
			}},
			returnBlock(ir.Statement{
				Kind:   ir.StmtAssign,
				Place:  placeOf(3),
				Rvalue: ir.Rvalue{Kind: ir.RvalueUse, Operand: copyOp(2)},
			}),
		},
	}

	diags := runOn(t, body)
	assert.Len(t, diags, 1)
	assert.Equal(t, 12, diags[0].Span.Line)
}

func TestSkipsCpiContextBuilder(t *testing.T) {
	locals := make([]ir.LocalDecl, 4)
	locals[1].Type = cpiCtxType
	body := &ir.Body{
		ArgCount: 0,
		Locals:   locals,
		Blocks: []ir.BasicBlock{
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "anchor_lang::context::CpiContext::with_signer", Return: cpiCtxType},
				Args:        []ir.Operand{moveOp(1)},
				Destination: placeOf(2),
				Target:      1,
			}},
			returnBlock(ir.Statement{
				Kind:   ir.StmtAssign,
				Place:  placeOf(3),
				Rvalue: ir.Rvalue{Kind: ir.RvalueUse, Operand: copyOp(2)},
			}),
		},
	}
	assert.Empty(t, runOn(t, body))
}
