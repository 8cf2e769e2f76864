package hql

// Optimizer rewrites IR after transformation, performing the two
// required passes: tail-call optimization of directly self-recursive
// named functions, and early-return lowering for `return` statements
// the transformer left inside a synthetic callback closure (e.g. a
// for-of or match IIFE). `loop`/`recur` is already lowered to a native
// while-loop during transformation (loop.go); TCO covers the remaining
// case the transformer cannot see locally: a `fn`/function declaration
// that calls itself by name in tail position, which would otherwise
// grow the host JS call stack on every recursive HQL call.
type Optimizer struct{}

func NewOptimizer() *Optimizer { return &Optimizer{} }

// OptimizeProgram rewrites every function declaration in prog in place.
func (o *Optimizer) OptimizeProgram(prog *Program) *Program {
	for i, stmt := range prog.Body {
		prog.Body[i] = o.optimizeNode(stmt)
	}
	return prog
}

func (o *Optimizer) optimizeNode(n IRNode) IRNode {
	switch v := n.(type) {
	case *FunctionDeclaration:
		o.lowerEarlyReturns(v.Body)
		o.tailCallOptimize(v.Name, v.Params, v.Body)
		return v
	case *ExportNamedDeclaration:
		if v.Declaration != nil {
			v.Declaration = o.optimizeNode(v.Declaration)
		}
		return v
	default:
		return n
	}
}

// earlyReturnMarkerKey is the property name a thrown early-return value
// carries; the trampoline's catch handler checks for it to distinguish
// an early return from an unrelated exception propagating through the
// same synthetic closure.
const earlyReturnMarkerKey = "__hql_early_return__"

// lowerEarlyReturns finds every synthetic callback closure nested
// anywhere within body (a for-of or match IIFE the transformer marked
// Synthetic), rewrites any `return` inside such a closure into
// `throw { __hql_early_return__: true, value }`, and -- only if at least
// one such rewrite happened -- wraps body in the documented try/catch
// trampoline so the rethrown value unwinds back out as body's own
// return. A plain user-authored closure's own `return` (not synthetic)
// is left alone: it is meant to exit that closure, not body's function.
func (o *Optimizer) lowerEarlyReturns(body *BlockStatement) {
	if body == nil {
		return
	}
	changed := false
	body.Walk(func(n IRNode) bool {
		switch v := n.(type) {
		case *ArrowFunctionExpression:
			if v.Synthetic {
				if block, ok := v.Body.(*BlockStatement); ok {
					if o.rewriteReturnsToThrows(block) {
						changed = true
					}
				}
			}
			return true
		case *FunctionExpression:
			// A nested named/anonymous fn is its own function scope;
			// its returns are processed independently when that scope
			// is generated, not folded into the outer body.
			o.lowerEarlyReturns(v.Body)
			return false
		case *FunctionDeclaration:
			o.lowerEarlyReturns(v.Body)
			return false
		}
		return true
	})
	if !changed {
		return
	}
	body.Body = []IRNode{buildEarlyReturnTrampoline(body.Body)}
}

// rewriteReturnsToThrows walks the statement positions reachable from n
// without crossing into a nested (non-synthetic) function boundary,
// replacing every ReturnStatement with a throw of the early-return
// marker. Returns whether any rewrite happened.
func (o *Optimizer) rewriteReturnsToThrows(n IRNode) bool {
	switch v := n.(type) {
	case *BlockStatement:
		changed := false
		for i, s := range v.Body {
			if rs, ok := s.(*ReturnStatement); ok {
				v.Body[i] = returnToThrow(rs)
				changed = true
				continue
			}
			if o.rewriteReturnsToThrows(s) {
				changed = true
			}
		}
		return changed
	case *IfStatement:
		changed := o.rewriteReturnsToThrows(v.Consequent)
		if v.Alternate != nil && o.rewriteReturnsToThrows(v.Alternate) {
			changed = true
		}
		return changed
	case *WhileStatement:
		return o.rewriteReturnsToThrows(v.Body)
	case *ForOfStatement:
		return o.rewriteReturnsToThrows(v.Body)
	case *TryStatement:
		changed := o.rewriteReturnsToThrows(v.Block)
		if v.Handler != nil && o.rewriteReturnsToThrows(v.Handler.Body) {
			changed = true
		}
		if v.Finally != nil && o.rewriteReturnsToThrows(v.Finally) {
			changed = true
		}
		return changed
	default:
		return false
	}
}

// returnToThrow converts `return expr;` (or bare `return;`) into
// `throw { __hql_early_return__: true, value: expr };`.
func returnToThrow(rs *ReturnStatement) *ThrowStatement {
	value := IRNode(&Identifier{Name: "undefined"})
	if rs.Argument != nil {
		value = rs.Argument
	}
	marker := &ObjectExpression{Properties: []ObjectProperty{
		{Key: &Identifier{Name: earlyReturnMarkerKey}, Value: &BoolLiteral{Value: true}},
		{Key: &Identifier{Name: "value"}, Value: value},
	}}
	return &ThrowStatement{irBase: rs.irBase, Argument: marker}
}

// buildEarlyReturnTrampoline wraps original in:
//
//	try { <original> }
//	catch (__hql_ret__) {
//	  if (__hql_ret__ && __hql_ret__.__hql_early_return__) return __hql_ret__.value;
//	  else throw __hql_ret__;
//	}
func buildEarlyReturnTrampoline(original []IRNode) IRNode {
	catchParam := &Identifier{Name: "__hql_ret__"}
	test := &LogicalExpression{
		Operator: "&&",
		Left:     catchParam,
		Right:    &MemberExpression{Object: catchParam, Property: &Identifier{Name: earlyReturnMarkerKey}},
	}
	handlerBody := &BlockStatement{Body: []IRNode{
		&IfStatement{
			Test:       test,
			Consequent: &BlockStatement{Body: []IRNode{&ReturnStatement{Argument: &MemberExpression{Object: catchParam, Property: &Identifier{Name: "value"}}}}},
			Alternate:  &BlockStatement{Body: []IRNode{&ThrowStatement{Argument: catchParam}}},
		},
	}}
	return &TryStatement{
		Block:   &BlockStatement{Body: original},
		Handler: &CatchClause{Param: catchParam, Body: handlerBody},
	}
}

// tailCallOptimize rewrites every tail-position self-call of name within
// body into a parameter reassignment, wrapping body in a `while (true)`
// loop. It only rewrites direct calls (`name(...)`), not calls through
// an alias or `.call`/`.apply`, matching the narrower guarantee in most
// Lisp-to-JS transpilers of only optimizing syntactically visible
// self-recursion.
func (o *Optimizer) tailCallOptimize(name string, params []IRNode, body *BlockStatement) {
	if name == "" || len(body.Body) == 0 || !referencesIdentifier(body, name) {
		return
	}
	rewritten, changed := o.rewriteTailCalls(body.Body, name, params)
	if !changed {
		return
	}
	body.Body = []IRNode{&WhileStatement{
		Test: &BoolLiteral{Value: true},
		Body: &BlockStatement{Body: rewritten},
	}}
}

// referencesIdentifier reports whether name appears anywhere in n's
// subtree, used as a cheap skip before the tail-position-only walk
// below: most function bodies never call themselves at all, and a
// generic Walk over the whole body is far cheaper than constructing the
// rewritten statement list only to discard it.
func referencesIdentifier(n IRNode, name string) bool {
	found := false
	n.Walk(func(node IRNode) bool {
		if found {
			return false
		}
		if id, ok := node.(*Identifier); ok && id.Name == name {
			found = true
			return false
		}
		return true
	})
	return found
}

// rewriteTailCalls walks statements in tail position, replacing a
// `return name(args...)` whose callee is exactly `name` with a
// reassignment of each parameter followed by `continue`. Recursion into
// `if`/block tail branches mirrors loop.go's tail-form walk.
func (o *Optimizer) rewriteTailCalls(stmts []IRNode, name string, params []IRNode) ([]IRNode, bool) {
	if len(stmts) == 0 {
		return stmts, false
	}
	changedAny := false
	out := append([]IRNode(nil), stmts...)
	last := len(out) - 1

	switch tail := out[last].(type) {
	case *ReturnStatement:
		if replaced, ok := o.rewriteTailCall(tail.Argument, name, params); ok {
			out = append(out[:last], replaced...)
			changedAny = true
		}
	case *IfStatement:
		if block, ok := tail.Consequent.(*BlockStatement); ok {
			rewritten, changed := o.rewriteTailCalls(block.Body, name, params)
			block.Body = rewritten
			changedAny = changedAny || changed
		}
		switch alt := tail.Alternate.(type) {
		case *BlockStatement:
			rewritten, changed := o.rewriteTailCalls(alt.Body, name, params)
			alt.Body = rewritten
			changedAny = changedAny || changed
		case *IfStatement:
			rewritten, changed := o.rewriteTailCalls([]IRNode{alt}, name, params)
			if changed {
				tail.Alternate = rewritten[0]
				changedAny = true
			}
		}
	}
	return out, changedAny
}

// rewriteTailCall checks whether expr is a direct self-call and, if so,
// returns the statements that reassign parameters and continue the
// enclosing while loop.
func (o *Optimizer) rewriteTailCall(expr IRNode, name string, params []IRNode) ([]IRNode, bool) {
	call, ok := expr.(*CallExpression)
	if !ok {
		return nil, false
	}
	callee, ok := call.Callee.(*Identifier)
	if !ok || callee.Name != name {
		return nil, false
	}
	if len(call.Arguments) != len(params) {
		return nil, false
	}
	for _, a := range call.Arguments {
		if _, isSpread := a.(*SpreadElement); isSpread {
			return nil, false
		}
	}

	var out []IRNode
	tempDecl := &VariableDeclaration{Kind: VarConst}
	tempNames := make([]string, len(params))
	for i, arg := range call.Arguments {
		paramID, ok := params[i].(*Identifier)
		pname := ""
		if ok {
			pname = paramID.Name
		} else if ap, ok := params[i].(*AssignmentPattern); ok {
			if id, ok := ap.Target.(*Identifier); ok {
				pname = id.Name
			}
		}
		tempNames[i] = pname + "__tco"
		tempDecl.Declarations = append(tempDecl.Declarations, VariableDeclarator{
			Id: &Identifier{Name: tempNames[i]}, Init: arg,
		})
	}
	out = append(out, tempDecl)
	for i, param := range params {
		pname := ""
		if id, ok := param.(*Identifier); ok {
			pname = id.Name
		} else if ap, ok := param.(*AssignmentPattern); ok {
			if id, ok := ap.Target.(*Identifier); ok {
				pname = id.Name
			}
		}
		out = append(out, &ExpressionStatement{Expression: &AssignmentExpression{
			Operator: "=",
			Target:   &Identifier{Name: pname},
			Value:    &Identifier{Name: tempNames[i]},
		}})
	}
	out = append(out, &ContinueStatement{})
	return out, true
}
