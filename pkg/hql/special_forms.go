package hql

import (
	"context"
	"fmt"
)

type specialFormFn func(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error)

// specialForms dispatches the reserved-symbol heads that the macro
// interpreter evaluates directly instead of treating as ordinary calls.
// Mirrors eval.go's switch-on-node-kind dispatch, but keyed by symbol
// name since HQL's special forms are plain list heads rather than
// distinct AST node types.
var specialForms = map[string]specialFormFn{
	"if":               evalIf,
	"let":              evalLet,
	"var":              evalVar,
	"fn":               evalFn,
	"do":               evalDo,
	"quote":            evalQuote,
	"quasiquote":       evalQuasiquote,
	"cond":             evalCond,
	"!":                evalNotBang,
	"macro":            evalMacroDef,
}

func evalIf(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) < 2 || len(args) > 3 {
		return nil, &ArityError{FunctionName: "if", Expected: "2 or 3", Received: len(args), Location: l.GetSourceLocation()}
	}
	cond, err := it.Eval(ctx, args[0], env)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return it.Eval(ctx, args[1], env)
	}
	if len(args) == 3 {
		return it.Eval(ctx, args[2], env)
	}
	return NilValue{}, nil
}

// evalLet handles `let` (`var` is handled by evalVar): a vector of
// alternating name/value-expression pairs followed by a body evaluated
// in the extended scope. Bindings are sequential, as in Scheme's `let*`
// -- each name is visible to the value expressions that follow it --
// rather than simultaneous.
func evalLet(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "let", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	bindingsNode, ok := args[0].(*List)
	if !ok || bindingsNode.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "let requires a vector of bindings", Location: args[0].GetSourceLocation()}
	}
	pairs := bindingsNode.Tail()
	if len(pairs)%2 != 0 {
		return nil, &HQLSyntaxError{Message: "let bindings must have an even number of elements", Location: bindingsNode.GetSourceLocation()}
	}

	scope := env.Extend()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "let binding name must be a symbol", Location: pairs[i].GetSourceLocation()}
		}
		v, err := it.Eval(ctx, pairs[i+1], scope)
		if err != nil {
			return nil, err
		}
		scope.Define(name.Name, v)
	}

	var result Value = NilValue{}
	for _, body := range args[1:] {
		v, err := it.Eval(ctx, body, scope)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

// evalVar handles `(var name value)`: evaluate value, define name in
// the current scope (no new scope, unlike `let`), and return the
// value. Distinct from evalLet, which always takes a binding vector
// and extends env with a child scope.
func evalVar(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) != 2 {
		return nil, &ArityError{FunctionName: "var", Expected: "2", Received: len(args), Location: l.GetSourceLocation()}
	}
	name, ok := args[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "var name must be a symbol", Location: args[0].GetSourceLocation()}
	}
	v, err := it.Eval(ctx, args[1], env)
	if err != nil {
		return nil, err
	}
	env.Define(name.Name, v)
	return v, nil
}

// evalFn builds a closure value: `(fn [params...] body...)` or
// `(fn name [params...] body...)` for self-referential recursion. A
// trailing `& rest` parameter binds remaining arguments as an array.
func evalFn(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "fn", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}

	name := ""
	rest := args
	if sym, ok := args[0].(*Symbol); ok {
		name = sym.Name
		rest = args[1:]
	}
	if len(rest) < 1 {
		return nil, &HQLSyntaxError{Message: "fn requires a parameter vector", Location: l.GetSourceLocation()}
	}
	paramsNode, ok := rest[0].(*List)
	if !ok || paramsNode.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "fn parameters must be a vector", Location: rest[0].GetSourceLocation()}
	}

	var params []string
	restParam := ""
	elems := paramsNode.Tail()
	for i := 0; i < len(elems); i++ {
		sym, ok := elems[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "fn parameter must be a symbol", Location: elems[i].GetSourceLocation()}
		}
		if sym.Name == "&" {
			if i+1 >= len(elems) {
				return nil, &HQLSyntaxError{Message: "& must be followed by a rest parameter name", Location: sym.GetSourceLocation()}
			}
			restSym, ok := elems[i+1].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "rest parameter must be a symbol", Location: elems[i+1].GetSourceLocation()}
			}
			restParam = restSym.Name
			break
		}
		params = append(params, sym.Name)
	}

	fnVal := FunctionValue{Name: name, Params: params, RestParam: restParam, Body: rest[1:], Closure: env}
	if name != "" {
		selfScope := env.Extend()
		selfScope.Define(name, fnVal)
		fnVal.Closure = selfScope
	}
	return fnVal, nil
}

func evalDo(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	var result Value = NilValue{}
	for _, body := range l.Tail() {
		v, err := it.Eval(ctx, body, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func evalQuote(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "quote", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	return SExpValue{Node: args[0]}, nil
}

// evalQuasiquote walks a quasiquoted form, evaluating `unquote` and
// splicing `unquote-splicing` subforms, and tracking nesting depth so
// `quasiquote` inside `quasiquote` defers its own unquotes to the
// matching outer level, bounded by DefaultMaxQuasiquoteDepth to catch
// runaway nesting rather than recursing unboundedly.
func evalQuasiquote(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "quasiquote", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	node, err := it.quasiExpand(ctx, args[0], env, 1)
	if err != nil {
		return nil, err
	}
	return SExpValue{Node: node}, nil
}

func (it *Interpreter) quasiExpand(ctx context.Context, node SExp, env *Env, depth int) (SExp, error) {
	if depth > DefaultMaxQuasiquoteDepth {
		return nil, &MacroExpansionLimit{Limit: DefaultMaxQuasiquoteDepth, Observed: depth, Kind: "quasiquote nesting", Location: node.GetSourceLocation()}
	}
	l, ok := node.(*List)
	if !ok {
		return node, nil
	}
	if head, ok := l.HeadSymbol(); ok && len(l.Elements) == 2 {
		switch head {
		case "unquote":
			if depth == 1 {
				v, err := it.Eval(ctx, l.Elements[1], env)
				if err != nil {
					return nil, err
				}
				return valueToSExp(v, l.GetSourceLocation())
			}
			inner, err := it.quasiExpand(ctx, l.Elements[1], env, depth-1)
			if err != nil {
				return nil, err
			}
			return SynthList(KindList, SynthSymbol("unquote"), inner), nil
		case "quasiquote":
			inner, err := it.quasiExpand(ctx, l.Elements[1], env, depth+1)
			if err != nil {
				return nil, err
			}
			return SynthList(KindList, SynthSymbol("quasiquote"), inner), nil
		}
	}

	var out []SExp
	for _, el := range l.Elements {
		if sub, ok := el.(*List); ok && depth == 1 {
			if head, ok := sub.HeadSymbol(); ok && head == "unquote-splicing" && len(sub.Elements) == 2 {
				v, err := it.Eval(ctx, sub.Elements[1], env)
				if err != nil {
					return nil, err
				}
				arr, ok := v.(ArrayValue)
				if !ok {
					return nil, &HQLTypeError{FunctionName: "unquote-splicing", Expected: "array", Received: typeName(v), Location: sub.GetSourceLocation()}
				}
				for _, item := range arr.Elements {
					sexp, err := valueToSExp(item, sub.GetSourceLocation())
					if err != nil {
						return nil, err
					}
					out = append(out, sexp)
				}
				continue
			}
		}
		expanded, err := it.quasiExpand(ctx, el, env, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return &List{base: base{Loc: l.Loc, Syn: true}, Elements: out, Kind: l.Kind}, nil
}

// valueToSExp converts an evaluated Value back into an SExp node for
// splicing into quasiquoted output; SExpValue round-trips directly,
// scalars become synthetic Literals.
func valueToSExp(v Value, loc *SourceLocation) (SExp, error) {
	switch x := v.(type) {
	case SExpValue:
		return x.Node, nil
	case NilValue:
		return &Literal{base: base{Loc: loc, Syn: true}, Value: NilScalar()}, nil
	case BoolValue:
		return &Literal{base: base{Loc: loc, Syn: true}, Value: BoolScalar(x.Val)}, nil
	case NumberValue:
		if x.IsBigInt {
			return &Literal{base: base{Loc: loc, Syn: true}, Value: BigIntScalar(x.BigVal)}, nil
		}
		if x.IsInt {
			return &Literal{base: base{Loc: loc, Syn: true}, Value: IntScalar(x.IntVal)}, nil
		}
		return &Literal{base: base{Loc: loc, Syn: true}, Value: FloatScalar(x.Val)}, nil
	case StringValue:
		return &Literal{base: base{Loc: loc, Syn: true}, Value: StringScalar(x.Val)}, nil
	case GensymValue:
		return &Symbol{base: base{Loc: loc, Syn: true}, Name: x.Name}, nil
	case ArrayValue:
		var elements []SExp
		for _, e := range x.Elements {
			sexp, err := valueToSExp(e, loc)
			if err != nil {
				return nil, err
			}
			elements = append(elements, sexp)
		}
		return &List{base: base{Loc: loc, Syn: true}, Elements: append([]SExp{SynthSymbol("vector")}, elements...), Kind: KindVector}, nil
	default:
		return nil, fmt.Errorf("cannot splice value of type %T into quasiquoted form", v)
	}
}

func evalCond(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	clauses := l.Tail()
	for i := 0; i+1 < len(clauses)+1 && i < len(clauses); i += 2 {
		if i+1 >= len(clauses) {
			return nil, &HQLSyntaxError{Message: "cond requires an even number of test/expr clauses", Location: l.GetSourceLocation()}
		}
		if sym, ok := clauses[i].(*Symbol); ok && sym.Name == "else" {
			return it.Eval(ctx, clauses[i+1], env)
		}
		test, err := it.Eval(ctx, clauses[i], env)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return it.Eval(ctx, clauses[i+1], env)
		}
	}
	return NilValue{}, nil
}

func evalNotBang(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "!", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	v, err := it.Eval(ctx, args[0], env)
	if err != nil {
		return nil, err
	}
	return BoolValue{Val: !Truthy(v)}, nil
}
