package pdaoverlap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var (
	cpiCtxType    = &ir.Type{Kind: ir.TypeAdt, DefPath: "anchor_lang::context::CpiContext"}
	transferAgg   = &ir.Type{Kind: ir.TypeAdt, DefPath: "anchor_spl::token::Transfer"}
	uncheckedType = adt("anchor_lang::prelude::UncheckedAccount")
	ctxType       = adt("anchor_lang::context::Context", adt("vault::LockNft"))
)

func adt(defPath string, args ...*ir.Type) *ir.Type {
	return &ir.Type{Kind: ir.TypeAdt, DefPath: defPath, Args: args}
}

func placeOf(l int) ir.Place { return ir.Place{Local: ir.Local(l)} }

func copyOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandCopy, Place: placeOf(l)}
}

func moveOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandMove, Place: placeOf(l)}
}

func spanOf(src, sub string, line int) ir.Span {
	start := strings.Index(src, sub)
	return ir.Span{File: "lib.rs", Start: start, End: start + len(sub), Line: line}
}

const fixtureSrc = "let mint = ctx.accounts.nft_mint.to_account_info();\n" +
	"let auth = ctx.accounts.pool_authority.to_account_info();\n" +
	"let infos = vec![ctx.accounts.nft_mint.to_account_info(), ctx.accounts.pool_authority.to_account_info()];\n"

// fixtureProgram declares a context with one mutable unchecked account
// and one seeds-derived PDA authority.
func fixtureProgram(mintAttrs []string) *ir.Program {
	return &ir.Program{
		Name: "vault",
		Structs: []*ir.StructDef{{
			DefPath: "vault::LockNft",
			Fields: []*ir.FieldDef{
				{
					Name:  "nft_mint",
					Type:  uncheckedType,
					Span:  ir.Span{File: "lib.rs", Line: 20},
					Attrs: mintAttrs,
				},
				{
					Name:  "pool_authority",
					Type:  uncheckedType,
					Span:  ir.Span{File: "lib.rs", Line: 22},
					Attrs: []string{`#[account(seeds = [b"pool"], bump)]`},
				},
			},
		}},
		Files: []*ir.SourceFile{{Name: "lib.rs", Content: fixtureSrc}},
	}
}

// locals: 1 ctx, 2 nft_mint info, 3 pool_authority info, 4 accounts
// aggregate, 5 signer seeds, 6 cpi context, 7 token program, 8 result.
func fixtureLocals() []ir.LocalDecl {
	locals := make([]ir.LocalDecl, 9)
	locals[1].Type = ctxType
	locals[2].Type = uncheckedType
	locals[2].Span = spanOf(fixtureSrc, "ctx.accounts.nft_mint", 1)
	locals[3].Type = uncheckedType
	locals[3].Span = spanOf(fixtureSrc, "ctx.accounts.pool_authority", 2)
	locals[6].Type = cpiCtxType
	return locals
}

func accountsAggStmt(operands ...ir.Operand) ir.Statement {
	return ir.Statement{
		Kind:  ir.StmtAssign,
		Place: placeOf(4),
		Rvalue: ir.Rvalue{
			Kind:          ir.RvalueAggregate,
			AggregateType: transferAgg,
			Operands:      operands,
		},
	}
}

func signedCtorBody(operands ...ir.Operand) *ir.Body {
	return &ir.Body{
		ArgCount: 1,
		Locals:   fixtureLocals(),
		Blocks: []ir.BasicBlock{
			{
				Statements: []ir.Statement{accountsAggStmt(operands...)},
				Terminator: ir.Terminator{
					Kind:        ir.TermCall,
					Callee:      &ir.FuncRef{DefPath: "anchor_lang::context::CpiContext::new_with_signer", Return: cpiCtxType},
					Args:        []ir.Operand{copyOp(7), moveOp(4), copyOp(5)},
					Destination: placeOf(6),
					Target:      1,
					Span:        ir.Span{File: "lib.rs", Line: 12},
				},
			},
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "anchor_spl::token::transfer"},
				Args:        []ir.Operand{moveOp(6)},
				Destination: placeOf(8),
				Target:      2,
			}},
			{Terminator: ir.Terminator{Kind: ir.TermReturn}},
		},
	}
}

func runOn(t *testing.T, prog *ir.Program, fn *ir.Function) []lint.Diagnostic {
	t.Helper()
	pass := &lint.Pass{Program: prog, Fn: fn, Analyzer: analyzer.New(prog, fn)}
	return Rule.Check(pass)
}

func handlerFn(body *ir.Body) *ir.Function {
	return &ir.Function{
		DefPath: "vault::vault::lock_nft",
		Name:    "lock_nft",
		Params:  []*ir.Param{{Name: "ctx", Type: ctxType}},
		Body:    body,
	}
}

func TestFlagsOverlapInNewWithSigner(t *testing.T) {
	prog := fixtureProgram([]string{"#[account(mut)]"})
	body := signedCtorBody(copyOp(2), copyOp(3), copyOp(3))

	diags := runOn(t, prog, handlerFn(body))
	require.Len(t, diags, 1)
	assert.Equal(t, "pda-signer-account-overlap", diags[0].Rule)
	assert.Equal(t, 12, diags[0].Span.Line)
	assert.Contains(t, diags[0].Note, "`nft_mint`")
	assert.Contains(t, diags[0].Note, "`pool_authority`")
	assert.Equal(t, 20, diags[0].NoteSpan.Line)
}

func TestKeyInequalityConstraintSuppresses(t *testing.T) {
	prog := fixtureProgram([]string{
		"#[account(mut, constraint = nft_mint.key() != pool_authority.key())]",
	})
	body := signedCtorBody(copyOp(2), copyOp(3), copyOp(3))

	assert.Empty(t, runOn(t, prog, handlerFn(body)))
}

func TestPlainConstructorNotFlagged(t *testing.T) {
	prog := fixtureProgram([]string{"#[account(mut)]"})
	body := signedCtorBody(copyOp(2), copyOp(3), copyOp(3))
	body.Blocks[0].Terminator.Callee = &ir.FuncRef{
		DefPath: "anchor_lang::context::CpiContext::new",
		Return:  cpiCtxType,
	}
	body.Blocks[0].Terminator.Args = []ir.Operand{copyOp(7), moveOp(4)}

	assert.Empty(t, runOn(t, prog, handlerFn(body)))
}

func TestUncheckedAccountNotPassedQuiet(t *testing.T) {
	prog := fixtureProgram([]string{"#[account(mut)]"})
	body := signedCtorBody(copyOp(3), copyOp(3), copyOp(3))

	assert.Empty(t, runOn(t, prog, handlerFn(body)))
}

func TestFlagsInvokeSignedAccountInfos(t *testing.T) {
	prog := fixtureProgram([]string{"#[account(mut)]"})
	vecStart := strings.Index(fixtureSrc, "vec![")
	vecEnd := strings.Index(fixtureSrc, "];") + 1

	locals := fixtureLocals()
	locals[5].Type = adt("alloc::vec::Vec")
	locals[5].Span = ir.Span{File: "lib.rs", Start: vecStart, End: vecEnd, Line: 3}
	body := &ir.Body{
		ArgCount: 1,
		Locals:   locals,
		Blocks: []ir.BasicBlock{
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "solana_program::program::invoke_signed"},
				Args:        []ir.Operand{copyOp(7), copyOp(5), copyOp(4)},
				Destination: placeOf(8),
				Target:      1,
				Span:        ir.Span{File: "lib.rs", Line: 14},
			}},
			{Terminator: ir.Terminator{Kind: ir.TermReturn}},
		},
	}

	diags := runOn(t, prog, handlerFn(body))
	require.Len(t, diags, 1)
	assert.Equal(t, 14, diags[0].Span.Line)
}

func TestNestedHelperAnalyzed(t *testing.T) {
	prog := fixtureProgram([]string{"#[account(mut)]"})

	helper := &ir.Function{
		DefPath: "vault::helpers::lock",
		Name:    "lock",
		Body:    signedCtorBody(copyOp(2), copyOp(3), copyOp(3)),
	}
	prog.Functions = append(prog.Functions, helper)

	callerLocals := make([]ir.LocalDecl, 4)
	callerLocals[1].Type = ctxType
	caller := handlerFn(&ir.Body{
		ArgCount: 1,
		Locals:   callerLocals,
		Blocks: []ir.BasicBlock{
			{Terminator: ir.Terminator{
				Kind:        ir.TermCall,
				Callee:      &ir.FuncRef{DefPath: "vault::helpers::lock"},
				Args:        []ir.Operand{copyOp(1)},
				Destination: placeOf(3),
				Target:      1,
			}},
			{Terminator: ir.Terminator{Kind: ir.TermReturn}},
		},
	})
	prog.Functions = append(prog.Functions, caller)

	diags := runOn(t, prog, caller)
	require.Len(t, diags, 1)
	assert.Equal(t, 12, diags[0].Span.Line)
	assert.Contains(t, diags[0].Note, "`nft_mint`")
}
