package analyzer

import (
	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/ir"
)

// IsPubkeyLocal reports whether a local's declared type is a Pubkey.
func (a *Analyzer) IsPubkeyLocal(local ir.Local) bool {
	return anchor.IsPubkey(a.TypeOfLocal(local))
}

// PubkeyOperandToLocal returns the operand's local when that local is a
// Pubkey.
func (a *Analyzer) PubkeyOperandToLocal(op *ir.Operand) (ir.Local, bool) {
	local, ok := a.LocalFromOperand(op)
	if !ok || !a.IsPubkeyLocal(local) {
		return ir.NoLocal, false
	}
	return local, true
}

// ArgsAsPubkeyLocals returns the locals of a two-Pubkey argument list,
// as produced by comparison calls like Pubkey::eq.
func (a *Analyzer) ArgsAsPubkeyLocals(args []ir.Operand) (ir.Local, ir.Local, bool) {
	if len(args) < 2 {
		return ir.NoLocal, ir.NoLocal, false
	}
	first, ok1 := a.PubkeyOperandToLocal(&args[0])
	second, ok2 := a.PubkeyOperandToLocal(&args[1])
	if !ok1 || !ok2 {
		return ir.NoLocal, ir.NoLocal, false
	}
	return first, second, true
}
