package hql

import (
	"context"
	"fmt"
	"math"
)

// BuiltinImpl is the calling convention for a macro-time builtin: a
// tagged function taking (args, env, interp) and returning a Value.
type BuiltinImpl func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error)

// BuiltinDef describes one registered builtin: its name (for error
// messages and lookup), documentation, arity bounds, and implementation.
// Mirrors the fluent `Builtin("name").Doc(...).Params(...).Impl(...)`
// registration DSL in pkg/dang/stdlib.go, simplified here because HQL
// builtins carry no static type signature -- only an arity contract,
// checked at call time and reported with expected/received/
// function-name context.
type BuiltinDef struct {
	Name     string
	DocStr   string
	MinArgs  int
	MaxArgs  int // -1 means unbounded (variadic)
	Fn       BuiltinImpl
}

type builtinBuilder struct {
	def *BuiltinDef
}

// Builtin starts a fluent registration for a macro-time builtin.
func Builtin(name string) *builtinBuilder {
	return &builtinBuilder{def: &BuiltinDef{Name: name, MinArgs: 0, MaxArgs: -1}}
}

func (b *builtinBuilder) Doc(doc string) *builtinBuilder {
	b.def.DocStr = doc
	return b
}

// Arity fixes the accepted argument count range. max = -1 means
// variadic (no upper bound).
func (b *builtinBuilder) Arity(min, max int) *builtinBuilder {
	b.def.MinArgs = min
	b.def.MaxArgs = max
	return b
}

func (b *builtinBuilder) Impl(fn BuiltinImpl) *BuiltinDef {
	b.def.Fn = fn
	registerBuiltin(b.def)
	return b.def
}

var builtinRegistry = map[string]*BuiltinDef{}

func registerBuiltin(def *BuiltinDef) {
	builtinRegistry[def.Name] = def
}

// checkArity validates args against def's declared arity, returning an
// *ArityError with expected/received context.
func (def *BuiltinDef) checkArity(args []Value, loc *SourceLocation) error {
	n := len(args)
	if n < def.MinArgs || (def.MaxArgs >= 0 && n > def.MaxArgs) {
		var expected string
		switch {
		case def.MaxArgs < 0:
			expected = fmt.Sprintf("at least %d", def.MinArgs)
		case def.MinArgs == def.MaxArgs:
			expected = fmt.Sprintf("%d", def.MinArgs)
		default:
			expected = fmt.Sprintf("between %d and %d", def.MinArgs, def.MaxArgs)
		}
		return &ArityError{FunctionName: def.Name, Expected: expected, Received: n, Location: loc}
	}
	return nil
}

// NewBuiltinEnv creates a root Environment with every registered
// builtin bound, used as the base of every macro-time compilation.
// Builtins live in the environment chain just like user definitions, so
// `(let [+ my-custom-plus] ...)` can shadow them.
func NewBuiltinEnv() *Env {
	env := NewEnv()
	for name, def := range builtinRegistry {
		env.Define(name, BuiltinFunction{Def: def})
	}
	return env
}

func init() {
	registerArithmetic()
	registerComparisons()
	registerLogic()
	registerStringBuiltins()
	registerASTHelpers()
	registerCollectionConstructors()
}

// numOf extracts a float64 from a Value for arithmetic, returning a
// *HQLTypeError on mismatch.
func numOf(v Value, fnName string, loc *SourceLocation) (float64, error) {
	n, ok := v.(NumberValue)
	if !ok {
		return 0, &HQLTypeError{FunctionName: fnName, Expected: "number", Received: typeName(v), Location: loc}
	}
	return n.Val, nil
}

func typeName(v Value) string {
	switch v.(type) {
	case NilValue:
		return "nil"
	case BoolValue:
		return "bool"
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	case ArrayValue:
		return "array"
	case *MapValue:
		return "hash-map"
	case SetValue:
		return "hash-set"
	case SExpValue:
		return "sexp"
	case FunctionValue:
		return "function"
	case BuiltinFunction:
		return "builtin"
	case GensymValue:
		return "symbol"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func registerArithmetic() {
	arith := func(name string, identity float64, op func(a, b float64) float64) {
		Builtin(name).Doc(name + " applied left to right").Arity(1, -1).Impl(
			func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
				acc, err := numOf(args[0], name, nil)
				if err != nil {
					return nil, err
				}
				allInt := isIntValue(args[0])
				for _, a := range args[1:] {
					n, err := numOf(a, name, nil)
					if err != nil {
						return nil, err
					}
					acc = op(acc, n)
					allInt = allInt && isIntValue(a)
				}
				if allInt && acc == math.Trunc(acc) {
					return IntValue(int64(acc)), nil
				}
				return FloatValue(acc), nil
			})
	}
	arith("+", 0, func(a, b float64) float64 { return a + b })
	arith("*", 1, func(a, b float64) float64 { return a * b })

	Builtin("-").Doc("subtraction, or negation with one argument").Arity(1, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			first, err := numOf(args[0], "-", nil)
			if err != nil {
				return nil, err
			}
			if len(args) == 1 {
				return negatedValue(args[0], first), nil
			}
			allInt := isIntValue(args[0])
			for _, a := range args[1:] {
				n, err := numOf(a, "-", nil)
				if err != nil {
					return nil, err
				}
				first -= n
				allInt = allInt && isIntValue(a)
			}
			if allInt && first == math.Trunc(first) {
				return IntValue(int64(first)), nil
			}
			return FloatValue(first), nil
		})

	Builtin("/").Doc("division").Arity(2, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			acc, err := numOf(args[0], "/", nil)
			if err != nil {
				return nil, err
			}
			for _, a := range args[1:] {
				n, err := numOf(a, "/", nil)
				if err != nil {
					return nil, err
				}
				acc /= n
			}
			return FloatValue(acc), nil
		})

	modlike := func(name string) {
		Builtin(name).Doc(name + " remainder").Arity(2, 2).Impl(
			func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
				a, err := numOf(args[0], name, nil)
				if err != nil {
					return nil, err
				}
				b, err := numOf(args[1], name, nil)
				if err != nil {
					return nil, err
				}
				r := math.Mod(a, b)
				if isIntValue(args[0]) && isIntValue(args[1]) {
					return IntValue(int64(r)), nil
				}
				return FloatValue(r), nil
			})
	}
	modlike("%")
	modlike("mod")
}

func isIntValue(v Value) bool {
	n, ok := v.(NumberValue)
	return ok && n.IsInt
}

func negatedValue(v Value, f float64) Value {
	if isIntValue(v) {
		return IntValue(int64(-f))
	}
	return FloatValue(-f)
}

func registerComparisons() {
	numCmp := func(names []string, cmp func(a, b float64) bool) {
		for _, name := range names {
			n := name
			Builtin(n).Doc(n + " chained comparison").Arity(1, -1).Impl(
				func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
					for i := 0; i < len(args)-1; i++ {
						a, err := numOf(args[i], n, nil)
						if err != nil {
							return nil, err
						}
						b, err := numOf(args[i+1], n, nil)
						if err != nil {
							return nil, err
						}
						if !cmp(a, b) {
							return BoolValue{Val: false}, nil
						}
					}
					return BoolValue{Val: true}, nil
				})
		}
	}
	numCmp([]string{"<"}, func(a, b float64) bool { return a < b })
	numCmp([]string{">"}, func(a, b float64) bool { return a > b })
	numCmp([]string{"<="}, func(a, b float64) bool { return a <= b })
	numCmp([]string{">="}, func(a, b float64) bool { return a >= b })

	eq := func(names []string, want bool) {
		for _, name := range names {
			n := name
			Builtin(n).Doc(n + " equality").Arity(2, -1).Impl(
				func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
					for i := 0; i < len(args)-1; i++ {
						eq := valuesEqual(args[i], args[i+1])
						if eq != want {
							return BoolValue{Val: !want}, nil
						}
					}
					return BoolValue{Val: want}, nil
				})
		}
	}
	eq([]string{"=", "==", "==="}, true)
	eq([]string{"!=", "!=="}, false)
}

// valuesEqual compares two macro-time values, used by the equality
// builtins and by hash-set deduplication.
func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NilValue:
		_, ok := b.(NilValue)
		return ok
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Val == bv.Val
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.Val == bv.Val
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case ArrayValue:
		bv, ok := b.(ArrayValue)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valuesEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func registerLogic() {
	Builtin("not").Doc("logical negation").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return BoolValue{Val: !Truthy(args[0])}, nil
		})
}

// Truthy implements the truthiness rule: only false and nil are falsy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case NilValue:
		return false
	case BoolValue:
		return x.Val
	default:
		return true
	}
}

func registerStringBuiltins() {
	Builtin("str").Doc("coerces arguments to a string and concatenates them").Arity(0, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			s := ""
			for _, a := range args {
				if sv, ok := a.(StringValue); ok {
					s += sv.Val
				} else {
					s += a.String()
				}
			}
			return StringValue{Val: s}, nil
		})

	Builtin("name").Doc("returns the name of a symbol, or a string unchanged").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			switch v := args[0].(type) {
			case SExpValue:
				if sym, ok := v.Node.(*Symbol); ok {
					return StringValue{Val: sym.Name}, nil
				}
			case GensymValue:
				return StringValue{Val: v.Name}, nil
			case StringValue:
				return v, nil
			}
			return nil, &HQLTypeError{FunctionName: "name", Expected: "symbol or string", Received: typeName(args[0])}
		})

	Builtin("gensym").Doc("returns a fresh hygienic symbol").Arity(0, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			prefix := ""
			if len(args) == 1 {
				if s, ok := args[0].(StringValue); ok {
					prefix = s.Val
				}
			}
			return GensymValue{Name: interp.Gensym.Gensym(prefix)}, nil
		})
}

// registerASTHelpers registers the %first/%rest/%length/%nth/%empty?
// family, which operate directly on SExp lists and vectors, stripping
// the synthetic `vector` head when present.
func registerASTHelpers() {
	elementsOf := func(v Value, fn string) ([]SExp, error) {
		sv, ok := v.(SExpValue)
		if !ok {
			return nil, &HQLTypeError{FunctionName: fn, Expected: "sexp", Received: typeName(v)}
		}
		l, ok := sv.Node.(*List)
		if !ok {
			return nil, &HQLTypeError{FunctionName: fn, Expected: "list-like sexp", Received: typeName(v)}
		}
		if l.Kind == KindVector {
			return l.Tail(), nil
		}
		return l.Elements, nil
	}

	Builtin("%first").Doc("first element of a list/vector sexp").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			els, err := elementsOf(args[0], "%first")
			if err != nil {
				return nil, err
			}
			if len(els) == 0 {
				return NilValue{}, nil
			}
			return SExpValue{Node: els[0]}, nil
		})

	Builtin("%rest").Doc("every element after the first, as a vector sexp").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			els, err := elementsOf(args[0], "%rest")
			if err != nil {
				return nil, err
			}
			if len(els) <= 1 {
				return SExpValue{Node: SynthList(KindVector)}, nil
			}
			return SExpValue{Node: SynthList(KindVector, els[1:]...)}, nil
		})

	Builtin("%length").Doc("number of elements in a list/vector sexp").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			els, err := elementsOf(args[0], "%length")
			if err != nil {
				return nil, err
			}
			return IntValue(int64(len(els))), nil
		})

	Builtin("%nth").Doc("nth (0-indexed) element of a list/vector sexp").Arity(2, 2).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			els, err := elementsOf(args[0], "%nth")
			if err != nil {
				return nil, err
			}
			idx, err := numOf(args[1], "%nth", nil)
			if err != nil {
				return nil, err
			}
			i := int(idx)
			if i < 0 || i >= len(els) {
				return NilValue{}, nil
			}
			return SExpValue{Node: els[i]}, nil
		})

	Builtin("%empty?").Doc("true if a list/vector sexp has no elements").Arity(1, 1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			els, err := elementsOf(args[0], "%empty?")
			if err != nil {
				return nil, err
			}
			return BoolValue{Val: len(els) == 0}, nil
		})
}

func registerCollectionConstructors() {
	Builtin("vector").Doc("constructs an array value").Arity(0, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return ArrayValue{Elements: append([]Value{}, args...)}, nil
		})
	Builtin("list").Doc("constructs an array value").Arity(0, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return ArrayValue{Elements: append([]Value{}, args...)}, nil
		})
	Builtin("empty-array").Doc("the empty array").Arity(0, 0).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return ArrayValue{}, nil
		})
	Builtin("hash-map").Doc("constructs a hash-map from alternating key/value arguments").Arity(0, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			if len(args)%2 != 0 {
				return nil, &ArityError{FunctionName: "hash-map", Expected: "an even number", Received: len(args)}
			}
			m := NewMapValue()
			for i := 0; i < len(args); i += 2 {
				key := valueAsMapKey(args[i])
				m.Set(key, args[i+1])
			}
			return m, nil
		})
	Builtin("empty-map").Doc("the empty hash-map").Arity(0, 0).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return NewMapValue(), nil
		})
	Builtin("hash-set").Doc("constructs a hash-set").Arity(0, -1).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			var out []Value
			for _, a := range args {
				dup := false
				for _, existing := range out {
					if valuesEqual(existing, a) {
						dup = true
						break
					}
				}
				if !dup {
					out = append(out, a)
				}
			}
			return SetValue{Elements: out}, nil
		})
	Builtin("empty-set").Doc("the empty hash-set").Arity(0, 0).Impl(
		func(ctx context.Context, args []Value, env *Env, interp *Interpreter) (Value, error) {
			return SetValue{}, nil
		})
}

func valueAsMapKey(v Value) string {
	switch x := v.(type) {
	case StringValue:
		return x.Val
	case SExpValue:
		if sym, ok := x.Node.(*Symbol); ok {
			return sym.Name
		}
	case GensymValue:
		return x.Name
	}
	return v.String()
}
