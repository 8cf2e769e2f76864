package hql

import (
	"context"
	"fmt"
)

// DefaultMaxCallDepth bounds recursive macro-time function calls, raised
// as a *MaxCallDepthError rather than letting the host Go stack overflow.
const DefaultMaxCallDepth = 1000

// DefaultMaxQuasiquoteDepth bounds nested quasiquote/unquote tracking.
const DefaultMaxQuasiquoteDepth = 20

// Interpreter evaluates SExp forms at macro-expansion time. It owns the
// gensym source (so every expansion in one compilation shares a single
// hygienic counter) and the macro registry consulted by the expander.
// Mirrors pkg/dang/eval.go's Evaluator, which carries similar
// per-compilation state (its env plus a resolver) threaded through a
// tree-walking eval function.
type Interpreter struct {
	Gensym       *GensymSource
	Macros       *MacroRegistry
	MaxCallDepth int
	callDepth    int
}

// NewInterpreter creates an interpreter with a fresh gensym source and
// macro registry, ready to evaluate one compilation unit's macro bodies.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Gensym:       NewGensymSource(),
		Macros:       NewMacroRegistry(),
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

// Eval evaluates expr in env, dispatching literals, symbols, and list
// forms (special forms first, then ordinary application).
func (it *Interpreter) Eval(ctx context.Context, expr SExp, env *Env) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Stage: StageExpand}
	}
	switch n := expr.(type) {
	case *Literal:
		return scalarToValue(n.Value), nil
	case *Symbol:
		return it.evalSymbol(n, env)
	case *List:
		return it.evalList(ctx, n, env)
	default:
		return nil, NewInternalCompilerError(StageExpand, fmt.Errorf("unhandled sexp node %T", expr))
	}
}

func scalarToValue(s Scalar) Value {
	switch s.Kind {
	case ScalarNil:
		return NilValue{}
	case ScalarBool:
		return BoolValue{Val: s.B}
	case ScalarInt:
		return IntValue(s.I)
	case ScalarFloat:
		return FloatValue(s.F)
	case ScalarBigInt:
		return NumberValue{IsBigInt: true, BigVal: s.S}
	case ScalarString:
		return StringValue{Val: s.S}
	default:
		return NilValue{}
	}
}

func (it *Interpreter) evalSymbol(sym *Symbol, env *Env) (Value, error) {
	if v, ok := env.Lookup(sym.Name); ok {
		return v, nil
	}
	return nil, NewUndefinedSymbolError(sym.Name, sym.GetSourceLocation(), env.Names())
}

func (it *Interpreter) evalList(ctx context.Context, l *List, env *Env) (Value, error) {
	if l.Kind == KindVector {
		return it.evalEachAsArray(ctx, l.Tail(), env)
	}
	if l.Kind == KindSet {
		arr, err := it.evalEachAsArray(ctx, l.Tail(), env)
		if err != nil {
			return nil, err
		}
		return SetValue{Elements: arr.Elements}, nil
	}
	if l.Kind == KindMap {
		return it.evalMapLiteral(ctx, l.Tail(), env)
	}

	if len(l.Elements) == 0 {
		return ArrayValue{}, nil
	}

	if head, ok := l.HeadSymbol(); ok {
		if fn, handled := specialForms[head]; handled {
			return fn(ctx, it, l, env)
		}
	}

	return it.evalApplication(ctx, l, env)
}

func (it *Interpreter) evalEachAsArray(ctx context.Context, forms []SExp, env *Env) (ArrayValue, error) {
	vals := make([]Value, len(forms))
	for i, f := range forms {
		v, err := it.Eval(ctx, f, env)
		if err != nil {
			return ArrayValue{}, err
		}
		vals[i] = v
	}
	return ArrayValue{Elements: vals}, nil
}

func (it *Interpreter) evalMapLiteral(ctx context.Context, forms []SExp, env *Env) (Value, error) {
	if len(forms)%2 != 0 {
		return nil, &ParseError{Kind: ParseOddMapPayload, Location: synthSpan(forms...)}
	}
	m := NewMapValue()
	for i := 0; i < len(forms); i += 2 {
		keyVal, err := it.Eval(ctx, forms[i], env)
		if err != nil {
			return nil, err
		}
		v, err := it.Eval(ctx, forms[i+1], env)
		if err != nil {
			return nil, err
		}
		m.Set(valueAsMapKey(keyVal), v)
	}
	return m, nil
}

func (it *Interpreter) evalApplication(ctx context.Context, l *List, env *Env) (Value, error) {
	fnVal, err := it.Eval(ctx, l.Head(), env)
	if err != nil {
		return nil, err
	}
	if !IsCallable(fnVal) {
		return nil, &HQLTypeError{
			FunctionName: Render(l.Head()),
			Expected:     "callable",
			Received:     typeName(fnVal),
			Location:     l.GetSourceLocation(),
		}
	}
	args := make([]Value, len(l.Tail()))
	for i, a := range l.Tail() {
		v, err := it.Eval(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return it.Apply(ctx, fnVal, args, l.GetSourceLocation())
}

// Apply calls fn with args, enforcing MaxCallDepth across both builtin
// and user-defined macro-time functions.
func (it *Interpreter) Apply(ctx context.Context, fn Value, args []Value, loc *SourceLocation) (Value, error) {
	it.callDepth++
	defer func() { it.callDepth-- }()
	if it.callDepth > it.MaxCallDepth {
		return nil, &MaxCallDepthError{Limit: it.MaxCallDepth, Location: loc}
	}

	switch f := fn.(type) {
	case BuiltinFunction:
		if err := f.Def.checkArity(args, loc); err != nil {
			return nil, err
		}
		return f.Def.Fn(ctx, args, nil, it)
	case FunctionValue:
		return it.applyFunction(ctx, f, args, loc)
	default:
		return nil, &HQLTypeError{FunctionName: "apply", Expected: "callable", Received: typeName(fn), Location: loc}
	}
}

func (it *Interpreter) applyFunction(ctx context.Context, f FunctionValue, args []Value, loc *SourceLocation) (Value, error) {
	if f.RestParam == "" && len(args) != len(f.Params) {
		return nil, &ArityError{FunctionName: orAnonymous(f.Name), Expected: fmt.Sprintf("%d", len(f.Params)), Received: len(args), Location: loc}
	}
	if f.RestParam != "" && len(args) < len(f.Params) {
		return nil, &ArityError{FunctionName: orAnonymous(f.Name), Expected: fmt.Sprintf("at least %d", len(f.Params)), Received: len(args), Location: loc}
	}

	callEnv := f.Closure.Extend()
	for i, p := range f.Params {
		callEnv.Define(p, args[i])
	}
	if f.RestParam != "" {
		callEnv.Define(f.RestParam, ArrayValue{Elements: append([]Value{}, args[len(f.Params):]...)})
	}

	var result Value = NilValue{}
	for _, body := range f.Body {
		v, err := it.Eval(ctx, body, callEnv)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func orAnonymous(name string) string {
	if name == "" {
		return "anonymous function"
	}
	return name
}
