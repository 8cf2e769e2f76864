package hql

import "context"

// DefaultMaxExpandDepth bounds the expander's recursion depth before it
// gives up and reports MacroExpansionLimit. Each re-expansion of a
// macro's result (a macro expanding to a call of itself, directly or
// through another macro) and each descent into a child form adds one
// level, so deeply nested source counts toward the bound as well.
const DefaultMaxExpandDepth = 500

// DefaultMaxExpandIterations bounds the total number of macro calls one
// Expander expands, counted across every top-level form it is given
// (the count is never reset between forms), guarding against a family of
// macros that each expand a small, bounded number of times individually
// but combine into unbounded total work.
const DefaultMaxExpandIterations = 10000

// Expander drives macro expansion over a parsed form tree: outermost
// calls are expanded first, and the result is re-scanned for newly
// exposed macro calls (a macro may expand into a call of another macro)
// until no call in head position resolves to a registered macro.
// Mirrors the recursive tree-rewrite passes over pkg/dang/ast.go's
// desugaring walks, adapted to carry explicit depth/iteration bounds.
type Expander struct {
	interp     *Interpreter
	iterations int
	env        *Env
}

func NewExpander(interp *Interpreter) *Expander {
	return &Expander{interp: interp}
}

// Expand fully macro-expands a single top-level form.
func (ex *Expander) Expand(ctx context.Context, form SExp) (SExp, error) {
	return ex.expandDepth(ctx, form, 0)
}

// ExpandAll expands every top-level form in order, sharing one
// iteration budget across the whole compilation unit.
func (ex *Expander) ExpandAll(ctx context.Context, forms []SExp) ([]SExp, error) {
	out := make([]SExp, len(forms))
	for i, f := range forms {
		expanded, err := ex.Expand(ctx, f)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

func (ex *Expander) expandDepth(ctx context.Context, form SExp, depth int) (SExp, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Stage: StageExpand}
	}
	if depth > DefaultMaxExpandDepth {
		return nil, &MacroExpansionLimit{Limit: DefaultMaxExpandDepth, Observed: depth, Kind: "depth", Location: form.GetSourceLocation()}
	}

	l, ok := form.(*List)
	if !ok {
		return form, nil
	}

	if l.Kind == KindList {
		if head, ok := l.HeadSymbol(); ok {
			if def, isMacro := ex.interp.Macros.Lookup(head); isMacro {
				ex.iterations++
				if ex.iterations > DefaultMaxExpandIterations {
					return nil, &MacroExpansionLimit{Limit: DefaultMaxExpandIterations, Observed: ex.iterations, Kind: "iterations", Location: l.GetSourceLocation()}
				}
				expanded, err := ex.interp.ExpandMacroCall(ctx, def, l.Tail(), l.GetSourceLocation())
				if err != nil {
					return nil, err
				}
				return ex.expandDepth(ctx, expanded, depth+1)
			}
			// `(macro name [params] body...)` definitions are consumed by
			// the interpreter (via evalMacroDef) rather than left in the
			// tree or recursed into, since their body forms are never
			// themselves top-level code.
			if head == "macro" {
				if _, err := ex.interp.Eval(ctx, l, ex.rootEnvFor(l)); err != nil {
					return nil, err
				}
				return SynthList(KindList, SynthSymbol("do")), nil
			}
		}
	}

	children := make([]SExp, len(l.Elements))
	for i, el := range l.Elements {
		expanded, err := ex.expandDepth(ctx, el, depth+1)
		if err != nil {
			return nil, err
		}
		children[i] = expanded
	}
	return &List{base: l.base, Elements: children, Kind: l.Kind}, nil
}

// rootEnvFor is the environment `(macro ...)` top-level definitions
// evaluate their registration against; macro bodies close over the
// builtin environment rather than any surrounding lexical scope, since
// top-level macro definitions are not nested inside a `let`.
func (ex *Expander) rootEnvFor(SExp) *Env {
	if ex.env == nil {
		ex.env = NewBuiltinEnv()
	}
	return ex.env
}
