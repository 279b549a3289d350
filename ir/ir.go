// Package ir models the lowered intermediate representation that the host
// compiler hands to the analysis kernel.
//
// The host lowers each Anchor instruction handler to a MIR-like form: a list
// of basic blocks holding assignment statements and a single terminator. The
// model here mirrors that form closely enough that the kernel's maps (see
// package analyzer) can be built in one forward pass:
//
//   - Local: dense integer key for a local variable. Local 0 is the return
//     place; locals 1..ArgCount are the function parameters.
//   - Place: a local plus zero or more projections (field access, deref).
//   - Statement: assignments classified by their right-hand side.
//   - Terminator: calls, boolean switches, gotos and returns.
//
// The package also carries the long-lived typing tables (Program, StructDef,
// Type) and the JSON decoding of host dumps. Everything is read-only once
// decoded; the kernel never mutates it.
package ir

// Local identifies a local variable in a lowered function body.
//
// Locals are dense: local 0 is the return place, locals 1 through
// Body.ArgCount correspond to the function parameters in declaration order,
// and the remainder are compiler temporaries.
type Local int

// NoLocal is the sentinel for an absent local.
const NoLocal Local = -1

// ReturnPlace is the local holding the function's return value.
const ReturnPlace Local = 0

// BlockID identifies a basic block within one function body.
type BlockID int

// NoBlock is the sentinel for an absent block target.
const NoBlock BlockID = -1

// ProjectionKind discriminates Place projections.
type ProjectionKind int

const (
	// ProjField selects a named field of the projected value.
	ProjField ProjectionKind = iota
	// ProjDeref dereferences the projected value.
	ProjDeref
	// ProjIndex indexes into the projected value.
	ProjIndex
)

// Projection is a single step applied to a local to form a place.
type Projection struct {
	Kind  ProjectionKind `json:"kind"`
	Field string         `json:"field,omitempty"`
}

// Place is an addressable location: a local plus projections.
type Place struct {
	Local      Local        `json:"local"`
	Projection []Projection `json:"projection,omitempty"`
}

// AsLocal returns the place's local when the place has no projections.
func (p Place) AsLocal() (Local, bool) {
	if len(p.Projection) == 0 {
		return p.Local, true
	}
	return NoLocal, false
}

// OperandKind discriminates operands.
type OperandKind int

const (
	// OperandCopy reads a place without consuming it.
	OperandCopy OperandKind = iota
	// OperandMove reads and consumes a place.
	OperandMove
	// OperandConstant is a compile-time constant.
	OperandConstant
)

// Const is a compile-time constant operand.
type Const struct {
	Type  *Type  `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// Operand is an argument position in an rvalue or call.
type Operand struct {
	Kind  OperandKind `json:"kind"`
	Place Place       `json:"place"`
	Const *Const      `json:"const,omitempty"`
	Span  Span        `json:"span"`
}

// IsPlace reports whether the operand reads a place (copy or move).
func (o Operand) IsPlace() bool {
	return o.Kind == OperandCopy || o.Kind == OperandMove
}

// AsLocal returns the operand's bare local, if it is a projection-free
// copy or move.
func (o Operand) AsLocal() (Local, bool) {
	if !o.IsPlace() {
		return NoLocal, false
	}
	return o.Place.AsLocal()
}

// RvalueKind discriminates the right-hand sides of assignments.
type RvalueKind int

const (
	// RvalueUse forwards an operand unchanged.
	RvalueUse RvalueKind = iota
	// RvalueRef takes a reference to a place.
	RvalueRef
	// RvalueCast converts an operand to another type.
	RvalueCast
	// RvalueAggregate constructs a struct or tuple from field operands,
	// in declared field order.
	RvalueAggregate
	// RvalueCopyForDeref copies a place for a subsequent dereference.
	RvalueCopyForDeref
	// RvalueDiscriminant reads the enum discriminant of a place, as
	// lowered from a match on a Result or Option.
	RvalueDiscriminant
	// RvalueOther covers every rvalue form the kernel does not model.
	RvalueOther
)

// Rvalue is the right-hand side of an assignment statement.
//
// Which fields are populated depends on Kind: Use and Cast carry Operand,
// Ref and CopyForDeref carry Place, Aggregate carries AggregateType plus
// Operands in declared field order.
type Rvalue struct {
	Kind          RvalueKind `json:"kind"`
	Operand       Operand    `json:"operand"`
	Place         Place      `json:"place"`
	AggregateType *Type      `json:"aggregateType,omitempty"`
	Operands      []Operand  `json:"operands,omitempty"`
}

// StatementKind discriminates statements.
type StatementKind int

const (
	// StmtAssign assigns an rvalue to a place.
	StmtAssign StatementKind = iota
	// StmtOther covers storage markers and other forms the kernel skips.
	StmtOther
)

// Statement is one statement inside a basic block.
type Statement struct {
	Kind   StatementKind `json:"kind"`
	Place  Place         `json:"place"`
	Rvalue Rvalue        `json:"rvalue"`
	Span   Span          `json:"span"`
}

// TerminatorKind discriminates block terminators.
type TerminatorKind int

const (
	// TermCall invokes a function and continues at Target.
	TermCall TerminatorKind = iota
	// TermSwitchInt branches on an integer (or boolean) discriminant.
	TermSwitchInt
	// TermGoto jumps unconditionally to Target.
	TermGoto
	// TermReturn leaves the function.
	TermReturn
	// TermOther covers unwinds, asserts and other forms; Targets lists
	// its successors.
	TermOther
)

// FuncRef describes a call terminator's resolved callee.
type FuncRef struct {
	// DefPath is the fully qualified path the host assigns to the callee,
	// e.g. "anchor_spl::token::transfer".
	DefPath string `json:"defPath"`
	// IsMethod reports whether the callee dispatches on a receiver
	// (inherent or trait method); the receiver is Args[0].
	IsMethod bool `json:"isMethod,omitempty"`
	// Return is the callee's declared return type.
	Return *Type `json:"return,omitempty"`
}

// Name returns the final segment of the callee's def-path.
func (f *FuncRef) Name() string {
	if f == nil {
		return ""
	}
	for i := len(f.DefPath) - 1; i >= 1; i-- {
		if f.DefPath[i] == ':' && f.DefPath[i-1] == ':' {
			return f.DefPath[i+1:]
		}
	}
	return f.DefPath
}

// SwitchTarget is one arm of a SwitchInt terminator.
type SwitchTarget struct {
	Value int64   `json:"value"`
	Block BlockID `json:"block"`
}

// Terminator ends a basic block.
type Terminator struct {
	Kind TerminatorKind `json:"kind"`

	// Call fields.
	Callee      *FuncRef  `json:"callee,omitempty"`
	Args        []Operand `json:"args,omitempty"`
	Destination Place     `json:"destination"`
	// Target is the continuation block for calls and gotos.
	Target BlockID `json:"target"`

	// SwitchInt fields.
	Discr     Operand        `json:"discr"`
	Targets   []SwitchTarget `json:"targets,omitempty"`
	Otherwise BlockID        `json:"otherwise"`

	Span Span `json:"span"`
}

// Successors returns every block this terminator can continue at.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermCall, TermGoto:
		if t.Target != NoBlock {
			return []BlockID{t.Target}
		}
		return nil
	case TermSwitchInt:
		succs := make([]BlockID, 0, len(t.Targets)+1)
		for _, tgt := range t.Targets {
			succs = append(succs, tgt.Block)
		}
		if t.Otherwise != NoBlock {
			succs = append(succs, t.Otherwise)
		}
		return succs
	case TermReturn:
		return nil
	default:
		succs := make([]BlockID, 0, len(t.Targets))
		for _, tgt := range t.Targets {
			succs = append(succs, tgt.Block)
		}
		return succs
	}
}

// AsStaticIf interprets a SwitchInt over a boolean discriminant as an
// if/else and returns the block taken when the discriminant equals value 1
// and the block taken otherwise.
func (t *Terminator) AsStaticIf() (then, els BlockID, ok bool) {
	if t.Kind != TermSwitchInt || len(t.Targets) != 1 || t.Otherwise == NoBlock {
		return NoBlock, NoBlock, false
	}
	// MIR encodes `if b { then } else { els }` as a switch on the false
	// value: target 0 is the else branch, otherwise is the then branch.
	if t.Targets[0].Value == 0 {
		return t.Otherwise, t.Targets[0].Block, true
	}
	return t.Targets[0].Block, t.Otherwise, true
}

// BasicBlock is one node of the control-flow graph.
type BasicBlock struct {
	Statements []Statement `json:"statements,omitempty"`
	Terminator Terminator  `json:"terminator"`
}

// LocalDecl declares a local's type and source span.
type LocalDecl struct {
	Type *Type `json:"type,omitempty"`
	Span Span  `json:"span"`
	// Name is the variable name from debug info, when the local maps
	// directly to a source variable.
	Name string `json:"name,omitempty"`
}

// Body is the lowered IR of one function.
type Body struct {
	Blocks []BasicBlock `json:"blocks"`
	Locals []LocalDecl  `json:"locals"`
	// ArgCount is the number of function parameters; parameters occupy
	// locals 1..ArgCount.
	ArgCount int  `json:"argCount"`
	Span     Span `json:"span"`
}

// LocalDecl returns the declaration of a local, if it exists.
func (b *Body) LocalDecl(l Local) (LocalDecl, bool) {
	if l < 0 || int(l) >= len(b.Locals) {
		return LocalDecl{}, false
	}
	return b.Locals[l], true
}

// LocalType returns the declared type of a local with references peeled,
// or nil when the local is unknown or untyped.
func (b *Body) LocalType(l Local) *Type {
	decl, ok := b.LocalDecl(l)
	if !ok || decl.Type == nil {
		return nil
	}
	return decl.Type.PeelRefs()
}

// LocalSpan returns the source span of a local's declaration.
func (b *Body) LocalSpan(l Local) (Span, bool) {
	decl, ok := b.LocalDecl(l)
	if !ok || decl.Span.IsZero() {
		return Span{}, false
	}
	return decl.Span, true
}

// IsParam reports whether the local is bound to a function parameter.
func (b *Body) IsParam(l Local) bool {
	return l >= 1 && int(l) <= b.ArgCount
}

// Block returns the basic block with the given id, or nil.
func (b *Body) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(b.Blocks) {
		return nil
	}
	return &b.Blocks[id]
}
