package hql

import "fmt"

// ScalarKind tags the variant stored in a Literal: number (with integer
// subtyping), string, bool, or nil.
type ScalarKind int

const (
	ScalarNil ScalarKind = iota
	ScalarBool
	ScalarInt
	ScalarFloat
	ScalarBigInt
	ScalarString
)

// Scalar is the literal payload of a Literal node. Numbers keep their
// original subtype (int vs float vs bigint) so the code generator can
// emit "1" rather than "1.0" and "10n" for BigInt suffixes.
type Scalar struct {
	Kind ScalarKind
	I    int64
	F    float64
	S    string // string text (unescaped) or bigint digits
	B    bool
}

func NilScalar() Scalar            { return Scalar{Kind: ScalarNil} }
func BoolScalar(b bool) Scalar      { return Scalar{Kind: ScalarBool, B: b} }
func IntScalar(i int64) Scalar      { return Scalar{Kind: ScalarInt, I: i} }
func FloatScalar(f float64) Scalar  { return Scalar{Kind: ScalarFloat, F: f} }
func BigIntScalar(s string) Scalar  { return Scalar{Kind: ScalarBigInt, S: s} }
func StringScalar(s string) Scalar  { return Scalar{Kind: ScalarString, S: s} }

func (s Scalar) String() string {
	switch s.Kind {
	case ScalarNil:
		return "nil"
	case ScalarBool:
		return fmt.Sprintf("%t", s.B)
	case ScalarInt:
		return fmt.Sprintf("%d", s.I)
	case ScalarFloat:
		return fmt.Sprintf("%g", s.F)
	case ScalarBigInt:
		return s.S + "n"
	case ScalarString:
		return fmt.Sprintf("%q", s.S)
	default:
		return "<invalid scalar>"
	}
}

// ListKind preserves which reader sugar produced a List, so formatting
// and diagnostics can round-trip `[a b]` instead of always printing
// `(vector a b)`.
type ListKind int

const (
	KindList ListKind = iota
	KindVector
	KindMap
	KindSet
)

func (k ListKind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	default:
		return "list"
	}
}

// SExp is the reader/AST node. It is a small closed tagged union
// implemented as an interface with three unexported-shape cases, the
// same pattern pkg/dang/ast.go's Node interface uses: one Go interface
// with a handful of concrete struct implementations dispatched by type
// switch rather than by a discriminator field.
type SExp interface {
	// GetSourceLocation returns nil for synthetic (macro-generated) nodes.
	GetSourceLocation() *SourceLocation
	// Synthetic reports whether this node was generated by macro expansion
	// rather than read from source text.
	Synthetic() bool
	// Walk visits this node and, if fn returns true, its children.
	Walk(fn func(SExp) bool)
	isSExp()
}

type base struct {
	Loc *SourceLocation
	Syn bool
}

func (b base) GetSourceLocation() *SourceLocation { return b.Loc }
func (b base) Synthetic() bool                    { return b.Syn }
func (base) isSExp()                              {}

// Literal is a scalar value node.
type Literal struct {
	base
	Value Scalar
}

func (l *Literal) Walk(fn func(SExp) bool) { fn(l) }

func NewLiteral(v Scalar, loc *SourceLocation) *Literal {
	return &Literal{base: base{Loc: loc}, Value: v}
}

// Symbol is an identifier node. Name is a plain Go string: string
// comparison is already pointer-free value equality, and the lexer only
// ever allocates one string per distinct token text within a single
// source buffer via substring slicing.
type Symbol struct {
	base
	Name string
}

func (s *Symbol) Walk(fn func(SExp) bool) { fn(s) }

func NewSymbol(name string, loc *SourceLocation) *Symbol {
	return &Symbol{base: base{Loc: loc}, Name: name}
}

// reserved symbols compare by string identity; listed here so callers
// (macro interpreter's special-form dispatch, Environment) share one
// definition instead of re-deriving it.
var reservedSymbols = map[string]bool{
	"&": true, "else": true,
	"if": true, "let": true, "var": true, "fn": true, "do": true,
	"quote": true, "quasiquote": true, "unquote": true, "unquote-splicing": true,
	"cond": true, "not": true, "macro": true, "import": true,
}

func IsReservedSymbol(name string) bool { return reservedSymbols[name] }

// List is an ordered sequence of SExp, tagged with the reader-macro kind
// that produced it.
type List struct {
	base
	Elements []SExp
	Kind     ListKind
}

func (l *List) Walk(fn func(SExp) bool) {
	if !fn(l) {
		return
	}
	for _, e := range l.Elements {
		e.Walk(fn)
	}
}

func NewList(elements []SExp, kind ListKind, loc *SourceLocation) *List {
	return &List{base: base{Loc: loc}, Elements: elements, Kind: kind}
}

// Head returns the first element, or nil if the list is empty.
func (l *List) Head() SExp {
	if len(l.Elements) == 0 {
		return nil
	}
	return l.Elements[0]
}

// Tail returns every element after the first.
func (l *List) Tail() []SExp {
	if len(l.Elements) == 0 {
		return nil
	}
	return l.Elements[1:]
}

// HeadSymbol returns the name of the head symbol, and ok=false if the
// list is empty or its head is not a Symbol (used pervasively by the
// special-form dispatcher and syntax transformer).
func (l *List) HeadSymbol() (string, bool) {
	if len(l.Elements) == 0 {
		return "", false
	}
	sym, ok := l.Elements[0].(*Symbol)
	if !ok {
		return "", false
	}
	return sym.Name, true
}

// synthSpan returns a best-effort location for a synthetic node built out
// of existing ones, falling back to nil when none of them have a real
// location (fully macro-generated code, e.g. from a builtin).
func synthSpan(parts ...SExp) *SourceLocation {
	var loc *SourceLocation
	for _, p := range parts {
		if p == nil {
			continue
		}
		loc = loc.Join(p.GetSourceLocation())
	}
	return loc
}

// SynthList builds a synthetic (macro-generated) list, marking Syn=true
// so codegen/formatting can distinguish "the user wrote this" from "a
// macro produced this" without re-deriving it from location-is-nil.
func SynthList(kind ListKind, elements ...SExp) *List {
	return &List{base: base{Loc: synthSpan(elements...), Syn: true}, Elements: elements, Kind: kind}
}

func SynthSymbol(name string) *Symbol {
	return &Symbol{base: base{Syn: true}, Name: name}
}

func SynthLiteral(v Scalar) *Literal {
	return &Literal{base: base{Syn: true}, Value: v}
}
