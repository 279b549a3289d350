package analyzer

import (
	"github.com/anchorsec/anchorlint/ir"
)

// Builders for hand-written IR bodies used across the kernel tests.

func adt(defPath string, args ...*ir.Type) *ir.Type {
	return &ir.Type{Kind: ir.TypeAdt, DefPath: defPath, Args: args}
}

func refOf(t *ir.Type) *ir.Type {
	return &ir.Type{Kind: ir.TypeRef, Elem: t}
}

func placeOf(l int) ir.Place {
	return ir.Place{Local: ir.Local(l)}
}

func copyOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandCopy, Place: placeOf(l)}
}

func moveOp(l int) ir.Operand {
	return ir.Operand{Kind: ir.OperandMove, Place: placeOf(l)}
}

func constOp(t *ir.Type, value string) ir.Operand {
	return ir.Operand{Kind: ir.OperandConstant, Const: &ir.Const{Type: t, Value: value}}
}

func assign(dest int, rv ir.Rvalue) ir.Statement {
	return ir.Statement{Kind: ir.StmtAssign, Place: placeOf(dest), Rvalue: rv}
}

func useRv(op ir.Operand) ir.Rvalue {
	return ir.Rvalue{Kind: ir.RvalueUse, Operand: op}
}

func refRv(l int) ir.Rvalue {
	return ir.Rvalue{Kind: ir.RvalueRef, Place: placeOf(l)}
}

func castRv(op ir.Operand) ir.Rvalue {
	return ir.Rvalue{Kind: ir.RvalueCast, Operand: op}
}

func aggregateRv(t *ir.Type, ops ...ir.Operand) ir.Rvalue {
	return ir.Rvalue{Kind: ir.RvalueAggregate, AggregateType: t, Operands: ops}
}

func returnBlock(stmts ...ir.Statement) ir.BasicBlock {
	return ir.BasicBlock{
		Statements: stmts,
		Terminator: ir.Terminator{Kind: ir.TermReturn},
	}
}

// singleBlockBody wraps statements into a one-block body with locals
// 0..nLocals-1, the first argCount of which (after the return place)
// are parameters.
func singleBlockBody(argCount, nLocals int, stmts ...ir.Statement) *ir.Body {
	locals := make([]ir.LocalDecl, nLocals)
	return &ir.Body{
		Blocks:   []ir.BasicBlock{returnBlock(stmts...)},
		Locals:   locals,
		ArgCount: argCount,
	}
}

func fnWith(body *ir.Body, params ...ir.Param) *ir.Function {
	ps := make([]*ir.Param, len(params))
	for i := range params {
		ps[i] = &params[i]
	}
	return &ir.Function{
		DefPath: "my_program::my_program::handler",
		Name:    "handler",
		Params:  ps,
		Body:    body,
	}
}

func emptyProgram() *ir.Program {
	return &ir.Program{Name: "fixture"}
}
