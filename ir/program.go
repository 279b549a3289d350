package ir

import "strings"

// Span locates a range of source text in the analyzed program.
type Span struct {
	File string `json:"file,omitempty"`
	// Start and End are byte offsets into the file's content.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
	// Line and EndLine are 1-based line numbers.
	Line    int `json:"line,omitempty"`
	EndLine int `json:"endLine,omitempty"`
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool { return s == Span{} }

// SourceFile is one source file of the analyzed program, carried in the
// dump so the kernel can recover snippets for name resolution.
type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Param is a surface-syntax function parameter.
type Param struct {
	Name string `json:"name"`
	Type *Type  `json:"type,omitempty"`
	Span Span   `json:"span"`
}

// Function couples a function's surface syntax with its lowered body.
//
// Body is nil when the host could not provide IR for the function; such
// functions are skipped by the driver and the kernel is never entered.
type Function struct {
	DefPath string `json:"defPath"`
	Name    string `json:"name"`
	Span    Span   `json:"span"`
	// FromExpansion marks functions produced by macro expansion; the
	// driver skips them, as the host's lint pass does.
	FromExpansion bool     `json:"fromExpansion,omitempty"`
	Params        []*Param `json:"params,omitempty"`
	Body          *Body    `json:"body,omitempty"`
}

// FieldDef is one field of a struct declaration, with the raw annotation
// text the framework attached to it (the inside of `#[account(...)]`).
type FieldDef struct {
	Name  string   `json:"name"`
	Type  *Type    `json:"type,omitempty"`
	Attrs []string `json:"attrs,omitempty"`
	Span  Span     `json:"span"`
}

// StructDef is a struct declaration from the host's definition tables.
type StructDef struct {
	DefPath string      `json:"defPath"`
	Fields  []*FieldDef `json:"fields,omitempty"`
	Span    Span        `json:"span"`
}

// Field returns the named field, or nil.
func (s *StructDef) Field(name string) *FieldDef {
	if s == nil {
		return nil
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldIndex returns the declared position of the named field, or -1.
func (s *StructDef) FieldIndex(name string) int {
	if s == nil {
		return -1
	}
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Program is the host compiler's long-lived view of one analyzed program:
// struct definition tables, functions, and source files. It outlives every
// per-function analyzer built over it and is never mutated by the kernel.
type Program struct {
	Name      string        `json:"name,omitempty"`
	Structs   []*StructDef  `json:"structs,omitempty"`
	Functions []*Function   `json:"functions,omitempty"`
	Files     []*SourceFile `json:"files,omitempty"`

	structIndex map[string]*StructDef
	fileIndex   map[string]*SourceFile
	funcIndex   map[string]*Function
}

// buildIndexes populates the lookup maps after decoding.
func (p *Program) buildIndexes() {
	p.structIndex = make(map[string]*StructDef, len(p.Structs))
	for _, s := range p.Structs {
		p.structIndex[s.DefPath] = s
	}
	p.fileIndex = make(map[string]*SourceFile, len(p.Files))
	for _, f := range p.Files {
		p.fileIndex[f.Name] = f
	}
	p.funcIndex = make(map[string]*Function, len(p.Functions))
	for _, fn := range p.Functions {
		p.funcIndex[fn.DefPath] = fn
	}
}

// Struct looks up a struct declaration by def-path.
func (p *Program) Struct(defPath string) *StructDef {
	if p.structIndex == nil {
		p.buildIndexes()
	}
	return p.structIndex[defPath]
}

// StructFor resolves the peeled type to its struct declaration, or nil.
func (p *Program) StructFor(t *Type) *StructDef {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return nil
	}
	return p.Struct(defPath)
}

// Function looks up a function by def-path.
func (p *Program) Function(defPath string) *Function {
	if p.funcIndex == nil {
		p.buildIndexes()
	}
	return p.funcIndex[defPath]
}

// File looks up a source file by name.
func (p *Program) File(name string) *SourceFile {
	if p.fileIndex == nil {
		p.buildIndexes()
	}
	return p.fileIndex[name]
}

// Snippet returns the source text the span covers.
func (p *Program) Snippet(span Span) (string, bool) {
	f := p.File(span.File)
	if f == nil {
		return "", false
	}
	if span.Start < 0 || span.End > len(f.Content) || span.Start > span.End {
		return "", false
	}
	return f.Content[span.Start:span.End], true
}

// LinesFrom returns the file's lines starting at the span's first line.
// Used by snippet walkers that scan forward for balanced brackets.
func (p *Program) LinesFrom(span Span) ([]string, bool) {
	f := p.File(span.File)
	if f == nil || span.Line < 1 {
		return nil, false
	}
	lines := strings.Split(f.Content, "\n")
	if span.Line > len(lines) {
		return nil, false
	}
	return lines[span.Line-1:], true
}
