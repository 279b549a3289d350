package ir

// TypeKind discriminates the type model.
type TypeKind int

const (
	// TypeAdt is a named struct or enum, identified by def-path.
	TypeAdt TypeKind = iota
	// TypeRef is a reference to Elem.
	TypeRef
	// TypeSlice is a slice of Elem.
	TypeSlice
	// TypeBool is the boolean primitive.
	TypeBool
	// TypePrimitive is any other primitive (integers, strings, unit).
	TypePrimitive
	// TypeUnknown is a type the host did not describe.
	TypeUnknown
)

var typeKindNames = map[TypeKind]string{
	TypeAdt:       "adt",
	TypeRef:       "ref",
	TypeSlice:     "slice",
	TypeBool:      "bool",
	TypePrimitive: "primitive",
	TypeUnknown:   "unknown",
}

func (k TypeKind) String() string               { return typeKindNames[k] }
func (k TypeKind) MarshalText() ([]byte, error) { return marshalKind(typeKindNames, k) }
func (k *TypeKind) UnmarshalText(text []byte) error {
	return unmarshalKind(typeKindNames, text, k)
}

// Type is the host compiler's view of a declared type.
//
// ADTs carry the def-path of their declaration and the generic arguments
// they were instantiated with; references and slices carry Elem.
type Type struct {
	Kind    TypeKind `json:"kind"`
	DefPath string   `json:"defPath,omitempty"`
	Args    []*Type  `json:"args,omitempty"`
	Elem    *Type    `json:"elem,omitempty"`
	// Name is the primitive's name when Kind is TypePrimitive.
	Name string `json:"name,omitempty"`
}

// PeelRefs unwraps reference types until a non-reference is reached.
func (t *Type) PeelRefs() *Type {
	for t != nil && t.Kind == TypeRef {
		t = t.Elem
	}
	return t
}

// IsBool reports whether the peeled type is the boolean primitive.
func (t *Type) IsBool() bool {
	t = t.PeelRefs()
	return t != nil && t.Kind == TypeBool
}

// IsAdt reports whether the peeled type is a named ADT with the given
// def-path.
func (t *Type) IsAdt(defPath string) bool {
	t = t.PeelRefs()
	return t != nil && t.Kind == TypeAdt && t.DefPath == defPath
}

// AdtDefPath returns the peeled type's def-path when it is an ADT.
func (t *Type) AdtDefPath() (string, bool) {
	t = t.PeelRefs()
	if t == nil || t.Kind != TypeAdt {
		return "", false
	}
	return t.DefPath, true
}

// SameAdt reports whether two types name the same ADT declaration,
// ignoring references and generic arguments. This is the Go analogue of
// comparing ADT def-ids in the host.
func SameAdt(a, b *Type) bool {
	ap, aok := a.AdtDefPath()
	bp, bok := b.AdtDefPath()
	return aok && bok && ap == bp
}

// EqualTypes reports deep structural equality of two types.
func EqualTypes(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.DefPath != b.DefPath || a.Name != b.Name {
		return false
	}
	if !EqualTypes(a.Elem, b.Elem) {
		return false
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !EqualTypes(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the type for debugging and notes.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeAdt:
		s := t.DefPath
		if len(t.Args) > 0 {
			s += "<"
			for i, a := range t.Args {
				if i > 0 {
					s += ", "
				}
				s += a.String()
			}
			s += ">"
		}
		return s
	case TypeRef:
		return "&" + t.Elem.String()
	case TypeSlice:
		return "[" + t.Elem.String() + "]"
	case TypeBool:
		return "bool"
	case TypePrimitive:
		return t.Name
	default:
		return "?"
	}
}
