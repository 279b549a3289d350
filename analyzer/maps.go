package analyzer

import (
	"fmt"
	"sort"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/ir"
)

// AssignKind classifies the right-hand side of a single assignment.
type AssignKind int

const (
	// AssignOther covers every rvalue shape the tracer does not model.
	AssignOther AssignKind = iota
	// AssignConst is a use of a constant operand.
	AssignConst
	// AssignFromPlace is a copy or move out of another place.
	AssignFromPlace
	// AssignRefTo is a borrow of another place.
	AssignRefTo
)

func (k AssignKind) String() string {
	switch k {
	case AssignConst:
		return "const"
	case AssignFromPlace:
		return "fromPlace"
	case AssignRefTo:
		return "refTo"
	default:
		return "other"
	}
}

// Assignment records how a local was last assigned. Source is only
// meaningful for AssignFromPlace and AssignRefTo.
type Assignment struct {
	Kind   AssignKind
	Source ir.Place
}

type analysisMaps struct {
	assignment map[ir.Local]Assignment
	reverse    map[ir.Local][]ir.Local
	cpiAccount map[ir.Local][]ir.Local
	notes      []string
}

// buildAnalysisMaps walks every statement once and produces the forward
// assignment map, the reverse (source local -> destination locals) map,
// and the CPI accounts-struct field map. A local assigned more than once
// keeps its last classification; the earlier one is reported as a note.
func buildAnalysisMaps(body *ir.Body) analysisMaps {
	m := analysisMaps{
		assignment: make(map[ir.Local]Assignment),
		reverse:    make(map[ir.Local][]ir.Local),
		cpiAccount: make(map[ir.Local][]ir.Local),
	}

	for bi := range body.Blocks {
		bb := &body.Blocks[bi]
		for si := range bb.Statements {
			stmt := &bb.Statements[si]
			if stmt.Kind != ir.StmtAssign {
				continue
			}
			dest, ok := stmt.Place.AsLocal()
			if !ok {
				continue
			}
			rv := &stmt.Rvalue

			kind := Assignment{Kind: AssignOther}
			switch rv.Kind {
			case ir.RvalueUse:
				if rv.Operand.Kind == ir.OperandConstant {
					kind = Assignment{Kind: AssignConst}
				} else {
					kind = Assignment{Kind: AssignFromPlace, Source: rv.Operand.Place}
				}
			case ir.RvalueRef:
				kind = Assignment{Kind: AssignRefTo, Source: rv.Place}
			}
			if prev, clobbered := m.assignment[dest]; clobbered {
				m.notes = append(m.notes, fmt.Sprintf(
					"local %d reassigned: %s replaced by %s", dest, prev.Kind, kind.Kind))
			}
			m.assignment[dest] = kind

			record := func(src ir.Place) {
				m.reverse[src.Local] = append(m.reverse[src.Local], dest)
			}

			switch rv.Kind {
			case ir.RvalueUse, ir.RvalueCast:
				if rv.Operand.IsPlace() {
					record(rv.Operand.Place)
				}
			case ir.RvalueRef, ir.RvalueCopyForDeref:
				record(rv.Place)
			case ir.RvalueAggregate:
				isCpiStruct := false
				if rv.AggregateType != nil {
					if defPath, ok := rv.AggregateType.AdtDefPath(); ok {
						isCpiStruct = anchor.IsCpiAccountsStruct(defPath)
					}
				}
				for i := range rv.Operands {
					op := &rv.Operands[i]
					if !op.IsPlace() {
						continue
					}
					record(op.Place)
					if field, ok := op.AsLocal(); ok && isCpiStruct {
						m.cpiAccount[dest] = append(m.cpiAccount[dest], field)
					}
				}
			}
		}
	}
	return m
}

// buildTransitiveReverseMap closes the direct reverse map under edge
// concatenation. Each destination list is sorted so the result is stable
// for a given body.
func buildTransitiveReverseMap(direct map[ir.Local][]ir.Local) map[ir.Local][]ir.Local {
	transitive := make(map[ir.Local][]ir.Local, len(direct))

	for src, dests := range direct {
		visited := make(map[ir.Local]bool)
		queue := append([]ir.Local(nil), dests...)

		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if visited[next] {
				continue
			}
			visited[next] = true
			transitive[src] = append(transitive[src], next)
			queue = append(queue, direct[next]...)
		}
	}

	for _, dests := range transitive {
		sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })
	}
	return transitive
}

// buildMethodCallReceiverMap links each call destination local back to the
// local of the call's first argument, which is the receiver for method
// calls. Calls without a local first argument or destination are skipped.
func buildMethodCallReceiverMap(body *ir.Body) map[ir.Local]ir.Local {
	receivers := make(map[ir.Local]ir.Local)

	for bi := range body.Blocks {
		term := &body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || len(term.Args) == 0 {
			continue
		}
		recv, ok := term.Args[0].AsLocal()
		if !ok {
			continue
		}
		dest, ok := term.Destination.AsLocal()
		if !ok {
			continue
		}
		receivers[dest] = recv
	}
	return receivers
}

func sortedKeys(m map[ir.Local][]ir.Local) []ir.Local {
	keys := make([]ir.Local, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
