package ir

import "fmt"

// The discriminant enums marshal as lower-case names so host dumps stay
// readable and stable across reorderings of the Go constants.

var projectionKindNames = map[ProjectionKind]string{
	ProjField: "field",
	ProjDeref: "deref",
	ProjIndex: "index",
}

var operandKindNames = map[OperandKind]string{
	OperandCopy:     "copy",
	OperandMove:     "move",
	OperandConstant: "constant",
}

var rvalueKindNames = map[RvalueKind]string{
	RvalueUse:          "use",
	RvalueRef:          "ref",
	RvalueCast:         "cast",
	RvalueAggregate:    "aggregate",
	RvalueCopyForDeref: "copyForDeref",
	RvalueDiscriminant: "discriminant",
	RvalueOther:        "other",
}

var statementKindNames = map[StatementKind]string{
	StmtAssign: "assign",
	StmtOther:  "other",
}

var terminatorKindNames = map[TerminatorKind]string{
	TermCall:      "call",
	TermSwitchInt: "switchInt",
	TermGoto:      "goto",
	TermReturn:    "return",
	TermOther:     "other",
}

func marshalKind[K comparable](names map[K]string, k K) ([]byte, error) {
	name, ok := names[k]
	if !ok {
		return nil, fmt.Errorf("ir: unknown kind %v", k)
	}
	return []byte(name), nil
}

func unmarshalKind[K comparable](names map[K]string, text []byte, out *K) error {
	for k, name := range names {
		if name == string(text) {
			*out = k
			return nil
		}
	}
	return fmt.Errorf("ir: unknown kind %q", text)
}

func (k ProjectionKind) String() string { return projectionKindNames[k] }
func (k OperandKind) String() string    { return operandKindNames[k] }
func (k RvalueKind) String() string     { return rvalueKindNames[k] }
func (k StatementKind) String() string  { return statementKindNames[k] }
func (k TerminatorKind) String() string { return terminatorKindNames[k] }

func (k ProjectionKind) MarshalText() ([]byte, error) { return marshalKind(projectionKindNames, k) }
func (k OperandKind) MarshalText() ([]byte, error)    { return marshalKind(operandKindNames, k) }
func (k RvalueKind) MarshalText() ([]byte, error)     { return marshalKind(rvalueKindNames, k) }
func (k StatementKind) MarshalText() ([]byte, error)  { return marshalKind(statementKindNames, k) }
func (k TerminatorKind) MarshalText() ([]byte, error) { return marshalKind(terminatorKindNames, k) }

func (k *ProjectionKind) UnmarshalText(text []byte) error {
	return unmarshalKind(projectionKindNames, text, k)
}

func (k *OperandKind) UnmarshalText(text []byte) error {
	return unmarshalKind(operandKindNames, text, k)
}

func (k *RvalueKind) UnmarshalText(text []byte) error {
	return unmarshalKind(rvalueKindNames, text, k)
}

func (k *StatementKind) UnmarshalText(text []byte) error {
	return unmarshalKind(statementKindNames, text, k)
}

func (k *TerminatorKind) UnmarshalText(text []byte) error {
	return unmarshalKind(terminatorKindNames, text, k)
}
