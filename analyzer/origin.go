package analyzer

import "github.com/anchorsec/anchorlint/ir"

// Origin classifies where a value ultimately came from.
type Origin int

const (
	// OriginUnknown means the walk ended at an unmodeled assignment.
	OriginUnknown Origin = iota
	// OriginConstant means the value traces back to a compile-time constant.
	OriginConstant
	// OriginParameter means the value traces back to a function parameter.
	OriginParameter
)

func (o Origin) String() string {
	switch o {
	case OriginConstant:
		return "constant"
	case OriginParameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// OriginOfOperand resolves the origin of an operand. Constants are
// constant; places resolve through the assignment chain.
func (a *Analyzer) OriginOfOperand(op *ir.Operand) Origin {
	if op == nil {
		return OriginUnknown
	}
	if op.Kind == ir.OperandConstant {
		return OriginConstant
	}
	if local, ok := op.AsLocal(); ok {
		return a.OriginOf(local)
	}
	return OriginUnknown
}

// OriginOf walks the assignment chain from local until it reaches a
// constant, a parameter, or an assignment it cannot see through. Cycles
// terminate as unknown.
func (a *Analyzer) OriginOf(local ir.Local) Origin {
	visited := make(map[ir.Local]bool)
	for {
		if visited[local] {
			return OriginUnknown
		}
		visited[local] = true

		assign, ok := a.AssignmentMap[local]
		if !ok {
			if a.Body != nil && a.Body.IsParam(local) {
				return OriginParameter
			}
			return OriginUnknown
		}
		switch assign.Kind {
		case AssignConst:
			return OriginConstant
		case AssignFromPlace, AssignRefTo:
			local = assign.Source.Local
		default:
			return OriginUnknown
		}
	}
}
