package minic

import (
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Type is a C type as far as minic tracks it: a spelled base type, an
// optional struct or union tag, pointer depth and array dimensions.
type Type struct {
	Name    string   // "int", "unsigned long", "struct point", "Point"
	Tag     string   // struct or union tag behind Name, if any
	Pointer int      // number of '*'
	Dims    []string // array dimensions as written, "" for []
	Func    bool     // pointer to function

	// Under is the aliased type when Name is a typedef name.
	Under *Type
}

// String renders the type the way compilers print it, e.g. "char *" or "int [4]".
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Func {
		b.WriteString(" (*)()")
		return b.String()
	}
	if t.Pointer > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Repeat("*", t.Pointer))
	}
	for _, d := range t.Dims {
		b.WriteString(" [" + d + "]")
	}
	return b.String()
}

func (t *Type) clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Dims = append([]string(nil), t.Dims...)
	return &c
}

// Canonical resolves typedef names, folding the alias's own pointer and
// array parts onto the underlying type.
func (t *Type) Canonical() *Type {
	if t == nil || t.Under == nil {
		return t
	}
	c := t.Under.Canonical().clone()
	c.Pointer += t.Pointer
	c.Dims = append(c.Dims, t.Dims...)
	c.Func = c.Func || t.Func
	return c
}

// Deref returns the pointee or element type, or nil if t is not a pointer or array.
func (t *Type) Deref() *Type {
	if t == nil {
		return nil
	}
	c := t.Canonical().clone()
	switch {
	case len(c.Dims) > 0:
		c.Dims = c.Dims[1:]
	case c.Pointer > 0:
		c.Pointer--
	default:
		return nil
	}
	return c
}

// AddrOf returns a pointer to t.
func (t *Type) AddrOf() *Type {
	if t == nil {
		return nil
	}
	c := t.clone()
	c.Pointer++
	return c
}

// IsPointerLike reports whether t can be dereferenced.
func (t *Type) IsPointerLike() bool {
	c := t.Canonical()
	return c != nil && (c.Pointer > 0 || len(c.Dims) > 0 || c.Func)
}

// IsRecord reports whether t is a struct or union value.
func (t *Type) IsRecord() bool {
	c := t.Canonical()
	return c != nil && c.Tag != "" && !c.IsPointerLike()
}

// IsRecordPointer reports whether t points to a struct or union.
func (t *Type) IsRecordPointer() bool {
	c := t.Canonical()
	return c != nil && c.Tag != "" && !c.Func && c.Pointer+len(c.Dims) == 1
}

// RecordTag returns the struct or union tag behind t, if any.
func (t *Type) RecordTag() string {
	if c := t.Canonical(); c != nil {
		return c.Tag
	}
	return ""
}

// IsFloating reports whether t is float or double.
func (t *Type) IsFloating() bool {
	c := t.Canonical()
	return c != nil && !c.IsPointerLike() && (c.Name == "double" || c.Name == "float" || c.Name == "long double")
}

// IsVoid reports whether t is plain void.
func (t *Type) IsVoid() bool {
	c := t.Canonical()
	return c != nil && c.Name == "void" && c.Pointer == 0 && len(c.Dims) == 0 && !c.Func
}

var (
	intType    = &Type{Name: "int"}
	doubleType = &Type{Name: "double"}
	charPtr    = &Type{Name: "char", Pointer: 1}
	sizeType   = &Type{Name: "unsigned long"}
)

// Symbol is a declared name.
type Symbol struct {
	Name     string
	Kind     analysis.SymbolKind
	Type     *Type     // object type, or return type for functions
	Params   []*Symbol // function parameters
	Variadic bool
	Pos      Pos
	File     string

	// Function-like macros.
	MacroParams []string
	MacroFunc   bool
	MacroBody   string

	local   bool
	defined bool // function has a body
	used    bool
}

// RecordDef is a struct or union definition.
type RecordDef struct {
	Tag      string
	Union    bool
	Fields   []*Symbol
	Pos      Pos
	Complete bool
}

// Spelling returns "struct tag" or "union tag".
func (r *RecordDef) Spelling() string {
	if r.Union {
		return "union " + r.Tag
	}
	return "struct " + r.Tag
}

// Field finds a field by name.
func (r *RecordDef) Field(name string) *Symbol {
	for _, f := range r.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Scope is a lexical scope with its source extent.
type Scope struct {
	Parent   *Scope
	Children []*Scope
	Symbols  []*Symbol
	Start    int // offset of the opening token
	End      int // offset just past the closing token, or buffer length if unclosed

	function bool
	byName   map[string]*Symbol
}

func newScope(parent *Scope, start int) *Scope {
	s := &Scope{Parent: parent, Start: start, End: -1, byName: make(map[string]*Symbol)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare adds sym to the scope and returns any previous symbol of the same name.
func (s *Scope) Declare(sym *Symbol) *Symbol {
	prev := s.byName[sym.Name]
	if prev == nil {
		s.Symbols = append(s.Symbols, sym)
	} else {
		for i, old := range s.Symbols {
			if old == prev {
				s.Symbols[i] = sym
			}
		}
	}
	s.byName[sym.Name] = sym
	return prev
}

// LookupLocal finds name in this scope only.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.byName[name]
}

// Lookup finds name in this scope or any enclosing scope.
func (s *Scope) Lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym := sc.byName[name]; sym != nil {
			return sym
		}
	}
	return nil
}

// Contains reports whether offset falls inside the scope's extent.
func (s *Scope) Contains(offset int) bool {
	return offset > s.Start && (s.End < 0 || offset < s.End)
}

// Innermost returns the deepest scope containing offset.
func (s *Scope) Innermost(offset int) *Scope {
	for _, c := range s.Children {
		if c.Contains(offset) {
			return c.Innermost(offset)
		}
	}
	return s
}

// InFunction reports whether s is a function scope or nested in one.
func (s *Scope) InFunction() bool {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.function {
			return true
		}
	}
	return false
}

// cloneFile copies a file scope so a parse can add to it without touching
// the original. Child scopes are not copied.
func (s *Scope) cloneFile() *Scope {
	c := newScope(nil, s.Start)
	c.End = s.End
	for _, sym := range s.Symbols {
		c.Declare(sym)
	}
	return c
}
