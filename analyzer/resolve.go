package analyzer

import "github.com/anchorsec/anchorlint/ir"

// ResolveToOriginalLocal follows the assignment graph backwards from
// local to the earliest local it was derived from. Locals with no
// recorded source resolve to themselves.
func (a *Analyzer) ResolveToOriginalLocal(local ir.Local) ir.Local {
	return a.resolveOriginal(local, make(map[ir.Local]bool))
}

func (a *Analyzer) resolveOriginal(local ir.Local, visited map[ir.Local]bool) ir.Local {
	if visited[local] {
		return local
	}
	visited[local] = true

	for _, src := range a.transitiveKeys {
		if containsLocal(a.TransitiveReverseMap[src], local) {
			return a.resolveOriginal(src, visited)
		}
	}
	return local
}

// DerivesFrom reports whether `to` is reachable from `from` along the
// transitive assignment edges. A local derives from itself.
func (a *Analyzer) DerivesFrom(from, to ir.Local) bool {
	return a.derivesFrom(from, to, make(map[ir.Local]bool))
}

func (a *Analyzer) derivesFrom(from, to ir.Local, visited map[ir.Local]bool) bool {
	if visited[from] {
		return false
	}
	visited[from] = true
	if from == to {
		return true
	}
	for _, next := range a.TransitiveReverseMap[from] {
		if a.derivesFrom(next, to, visited) {
			return true
		}
	}
	return false
}

// LocalsRelated reports whether `to` is derivable from `from` along the
// direct reverse assignment edges, or the two are the same local.
func (a *Analyzer) LocalsRelated(from, to ir.Local) bool {
	if from == to {
		return true
	}
	visited := make(map[ir.Local]bool)
	queue := []ir.Local{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		if current == to {
			return true
		}
		queue = append(queue, a.ReverseAssignmentMap[current]...)
	}
	return false
}

// SameLocalVariables reports whether two locals resolve to the same
// original local.
func (a *Analyzer) SameLocalVariables(from, to ir.Local) bool {
	return a.ResolveToOriginalLocal(from) == a.ResolveToOriginalLocal(to)
}

// FindCpiAccountsStruct locates the field locals of the CPI accounts
// struct that structLocal was derived from, walking reverse assignment
// edges when the local is not itself the aggregate destination.
func (a *Analyzer) FindCpiAccountsStruct(structLocal ir.Local) ([]ir.Local, bool) {
	return a.findCpiAccountsStruct(structLocal, make(map[ir.Local]bool))
}

func (a *Analyzer) findCpiAccountsStruct(structLocal ir.Local, visited map[ir.Local]bool) ([]ir.Local, bool) {
	if accounts, ok := a.CpiAccountLocalMap[structLocal]; ok {
		return accounts, true
	}
	if visited[structLocal] {
		return nil, false
	}
	visited[structLocal] = true

	for _, lhs := range a.reverseKeys {
		if !containsLocal(a.ReverseAssignmentMap[lhs], structLocal) {
			continue
		}
		if accounts, ok := a.findCpiAccountsStruct(lhs, visited); ok {
			return accounts, true
		}
	}
	return nil, false
}

// LocalFromOperand returns the local an operand reads, if it reads one
// directly.
func (a *Analyzer) LocalFromOperand(op *ir.Operand) (ir.Local, bool) {
	if op == nil || !op.IsPlace() {
		return ir.NoLocal, false
	}
	return op.AsLocal()
}

// SpanOfLocal returns the declaration span of a local.
func (a *Analyzer) SpanOfLocal(local ir.Local) (ir.Span, bool) {
	if a.Body == nil {
		return ir.Span{}, false
	}
	return a.Body.LocalSpan(local)
}

// TypeOfLocal returns the declared type of a local with references
// peeled, or nil.
func (a *Analyzer) TypeOfLocal(local ir.Local) *ir.Type {
	if a.Body == nil {
		return nil
	}
	return a.Body.LocalType(local).PeelRefs()
}

// TypeOfOperand returns the type an operand carries: the constant's type
// for constants, the peeled local type for places.
func (a *Analyzer) TypeOfOperand(op *ir.Operand) *ir.Type {
	if op == nil {
		return nil
	}
	if op.Kind == ir.OperandConstant {
		if op.Const != nil {
			return op.Const.Type
		}
		return nil
	}
	if local, ok := op.AsLocal(); ok {
		return a.TypeOfLocal(local)
	}
	return nil
}

func containsLocal(locals []ir.Local, l ir.Local) bool {
	for _, x := range locals {
		if x == l {
			return true
		}
	}
	return false
}
