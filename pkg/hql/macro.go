package hql

import (
	"context"
	"encoding/json"
	"fmt"
)

// MacroDef is a user-defined macro: a named transformation from call-site
// arguments (as unevaluated SExp) to a replacement SExp, run through the
// macro interpreter rather than the ordinary evaluator. Mirrors
// pkg/dang/ast.go's Def node (a named, closure-carrying definition),
// adapted here to carry an SExp body instead of a typed expression.
type MacroDef struct {
	Name      string
	Params    []string
	RestParam string
	Body      []SExp
	Env       *Env
}

// MacroRegistry holds every macro visible to the expander for one
// compilation unit, plus macros imported from other modules by the
// resolver. Insertion order is preserved for JSON serialization
// (supplemented feature: dumping the macro table for tooling/debugging).
type MacroRegistry struct {
	names   []string
	entries map[string]*MacroDef
}

func NewMacroRegistry() *MacroRegistry {
	return &MacroRegistry{entries: make(map[string]*MacroDef)}
}

func (r *MacroRegistry) Define(def *MacroDef) {
	if _, exists := r.entries[def.Name]; !exists {
		r.names = append(r.names, def.Name)
	}
	r.entries[def.Name] = def
}

func (r *MacroRegistry) Lookup(name string) (*MacroDef, bool) {
	d, ok := r.entries[name]
	return d, ok
}

func (r *MacroRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

// Merge copies every entry of other into r, used when the module
// resolver imports a sibling module's exported macros into the
// importing module's expansion environment.
func (r *MacroRegistry) Merge(other *MacroRegistry) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		r.Define(other.entries[name])
	}
}

// macroRegistrySnapshot is the JSON-serializable projection of a
// MacroRegistry: parameter shapes and a rendered body, since an SExp
// tree itself isn't directly marshalable in a stable way.
type macroRegistrySnapshot struct {
	Name      string   `json:"name"`
	Params    []string `json:"params"`
	RestParam string   `json:"restParam,omitempty"`
	Body      []string `json:"body"`
}

// MarshalJSON renders the registry as an ordered array of macro
// signatures and rendered bodies, for tooling that wants to inspect what
// macros a module defines without re-implementing the reader.
func (r *MacroRegistry) MarshalJSON() ([]byte, error) {
	snapshots := make([]macroRegistrySnapshot, 0, len(r.names))
	for _, name := range r.names {
		def := r.entries[name]
		body := make([]string, len(def.Body))
		for i, b := range def.Body {
			body[i] = Render(b)
		}
		snapshots = append(snapshots, macroRegistrySnapshot{
			Name:      def.Name,
			Params:    def.Params,
			RestParam: def.RestParam,
			Body:      body,
		})
	}
	return json.Marshal(snapshots)
}

// evalMacroDef handles `(macro name [params...] body...)`, registering
// the macro in the interpreter's registry rather than producing a
// runtime value; it returns nil so a top-level macro definition form
// evaluates to nothing visible.
func evalMacroDef(ctx context.Context, it *Interpreter, l *List, env *Env) (Value, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, &ArityError{FunctionName: "macro", Expected: "at least 2", Received: len(args), Location: l.GetSourceLocation()}
	}
	nameSym, ok := args[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "macro name must be a symbol", Location: args[0].GetSourceLocation()}
	}
	paramsNode, ok := args[1].(*List)
	if !ok || paramsNode.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "macro parameters must be a vector", Location: args[1].GetSourceLocation()}
	}

	var params []string
	restParam := ""
	elems := paramsNode.Tail()
	for i := 0; i < len(elems); i++ {
		sym, ok := elems[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "macro parameter must be a symbol", Location: elems[i].GetSourceLocation()}
		}
		if sym.Name == "&" {
			if i+1 >= len(elems) {
				return nil, &HQLSyntaxError{Message: "& must be followed by a rest parameter name", Location: sym.GetSourceLocation()}
			}
			restSym := elems[i+1].(*Symbol)
			restParam = restSym.Name
			break
		}
		params = append(params, sym.Name)
	}

	it.Macros.Define(&MacroDef{Name: nameSym.Name, Params: params, RestParam: restParam, Body: args[2:], Env: env})
	return NilValue{}, nil
}

// ExpandMacroCall evaluates a macro's body against the unevaluated
// argument forms bound to its parameters, returning the resulting SExp
// to be substituted at the call site. Arguments are passed as
// SExpValue-wrapped forms, never evaluated as ordinary values -- macro
// parameters receive syntax, not results.
func (it *Interpreter) ExpandMacroCall(ctx context.Context, def *MacroDef, callArgs []SExp, callLoc *SourceLocation) (SExp, error) {
	if def.RestParam == "" && len(callArgs) != len(def.Params) {
		return nil, &ArityError{FunctionName: def.Name, Expected: fmt.Sprintf("%d", len(def.Params)), Received: len(callArgs), Location: callLoc}
	}
	if def.RestParam != "" && len(callArgs) < len(def.Params) {
		return nil, &ArityError{FunctionName: def.Name, Expected: fmt.Sprintf("at least %d", len(def.Params)), Received: len(callArgs), Location: callLoc}
	}

	scope := def.Env.Extend()
	for i, p := range def.Params {
		scope.Define(p, SExpValue{Node: callArgs[i]})
	}
	if def.RestParam != "" {
		rest := make([]Value, 0, len(callArgs)-len(def.Params))
		for _, a := range callArgs[len(def.Params):] {
			rest = append(rest, SExpValue{Node: a})
		}
		scope.Define(def.RestParam, ArrayValue{Elements: rest})
	}

	var result Value = NilValue{}
	for _, body := range def.Body {
		v, err := it.Eval(ctx, body, scope)
		if err != nil {
			return nil, err
		}
		result = v
	}

	return valueToSExp(result, callLoc)
}
