package hql

import "fmt"

// transformLoop lowers `(loop [name init ...] body...)` to an IIFE
// containing a `while (true)` loop: the bound names become `let`
// variables reassigned by `recur`, which is only legal in tail position
// within the loop body. Grounded on the same tail-call-as-loop idea as
// the optimizer's TCO pass (optimize.go), applied directly during
// transformation here because loop/recur's scope is lexically bounded
// (unlike self-recursive function calls, which the optimizer must find
// by walking a function body after the fact).
func (t *Transformer) transformLoop(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "loop", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	bindings, ok := args[0].(*List)
	if !ok || bindings.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "loop requires a vector of bindings", Location: args[0].GetSourceLocation()}
	}
	pairs := bindings.Tail()
	if len(pairs)%2 != 0 {
		return nil, &HQLSyntaxError{Message: "loop bindings must have an even number of elements", Location: bindings.GetSourceLocation()}
	}

	var names []string
	decl := &VariableDeclaration{Kind: VarLet}
	for i := 0; i < len(pairs); i += 2 {
		sym, ok := pairs[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "loop binding name must be a symbol", Location: pairs[i].GetSourceLocation()}
		}
		init, err := t.transformExpr(pairs[i+1])
		if err != nil {
			return nil, err
		}
		names = append(names, mangleIdentifier(sym.Name))
		decl.Declarations = append(decl.Declarations, VariableDeclarator{
			Id:   &Identifier{Name: mangleIdentifier(sym.Name), OriginalName: sym.Name},
			Init: init,
		})
	}

	bodyStmts, err := t.transformLoopBody(args[1:], names, true)
	if err != nil {
		return nil, err
	}

	loopStmt := &WhileStatement{
		Test: &BoolLiteral{Value: true},
		Body: &BlockStatement{Body: bodyStmts},
	}
	fnBody := &BlockStatement{Body: []IRNode{decl, loopStmt}}
	return &CallExpression{
		irBase: irBase{Loc: l.GetSourceLocation()},
		Callee: &ArrowFunctionExpression{Body: fnBody},
	}, nil
}

// transformLoopBody lowers loop body forms, treating the final form as
// the loop's implicit return (wrapped in `return` to exit the
// surrounding IIFE) and rewriting any `(recur ...)` found in tail
// position into a reassignment of the bound names followed by
// `continue`. A `recur` anywhere but tail position is a compile error
// (raised by transformListExpr): recur rebinds the names of the nearest
// enclosing loop.
func (t *Transformer) transformLoopBody(body []SExp, names []string, tailAllowed bool) ([]IRNode, error) {
	var out []IRNode
	for i, b := range body {
		isLast := i == len(body)-1
		if isLast && tailAllowed {
			stmt, err := t.transformTailForm(b, names)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt...)
			continue
		}
		stmt, err := t.transformStatement(b)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// transformTailForm lowers a form known to be in tail position relative
// to an enclosing loop: `if`/`cond`/`do` recurse into their own tail
// branches, `(recur ...)` rewrites to reassignment + continue, and
// anything else becomes a `return` of its transformed expression.
func (t *Transformer) transformTailForm(form SExp, names []string) ([]IRNode, error) {
	if l, ok := form.(*List); ok && l.Kind == KindList {
		if head, ok := l.HeadSymbol(); ok {
			switch head {
			case "recur":
				return t.transformRecur(l, names)
			case "if":
				return t.transformTailIf(l, names)
			case "do":
				return t.transformLoopBody(l.Tail(), names, true)
			case "cond":
				// `(cond t1 e1 rest...)` is handled as `(if t1 e1 (cond rest...))`;
				// an `else` test takes its expression directly.
				clauses := l.Tail()
				if len(clauses) < 2 {
					break
				}
				if sym, ok := clauses[0].(*Symbol); ok && sym.Name == "else" {
					return t.transformTailForm(clauses[1], names)
				}
				rest := SynthList(KindList, append([]SExp{SynthSymbol("cond")}, clauses[2:]...)...)
				return t.transformTailIf(SynthList(KindList, SynthSymbol("if"), clauses[0], clauses[1], rest), names)
			}
		}
	}
	expr, err := t.transformExpr(form)
	if err != nil {
		return nil, err
	}
	return []IRNode{&ReturnStatement{irBase: irBase{Loc: t.loc(form)}, Argument: expr}}, nil
}

func (t *Transformer) transformTailIf(l *List, names []string) ([]IRNode, error) {
	args := l.Tail()
	if len(args) < 2 || len(args) > 3 {
		return nil, &ArityError{FunctionName: "if", Expected: "2 or 3", Received: len(args), Location: l.GetSourceLocation()}
	}
	test, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	cons, err := t.transformTailForm(args[1], names)
	if err != nil {
		return nil, err
	}
	ifStmt := &IfStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Test: test, Consequent: &BlockStatement{Body: cons}}
	if len(args) == 3 {
		alt, err := t.transformTailForm(args[2], names)
		if err != nil {
			return nil, err
		}
		ifStmt.Alternate = &BlockStatement{Body: alt}
	}
	return []IRNode{ifStmt}, nil
}

func (t *Transformer) transformRecur(l *List, names []string) ([]IRNode, error) {
	args := l.Tail()
	if len(args) != len(names) {
		return nil, &ArityError{FunctionName: "recur", Expected: fmt.Sprintf("%d", len(names)), Received: len(args), Location: l.GetSourceLocation()}
	}
	// Evaluate all new values into temporaries before reassigning, so
	// `(recur y x)` swaps rather than clobbers.
	var out []IRNode
	tempNames := make([]string, len(args))
	tempDecl := &VariableDeclaration{Kind: VarConst}
	for i, a := range args {
		val, err := t.transformExpr(a)
		if err != nil {
			return nil, err
		}
		tempNames[i] = names[i] + "__recur"
		tempDecl.Declarations = append(tempDecl.Declarations, VariableDeclarator{
			Id:   &Identifier{Name: tempNames[i]},
			Init: val,
		})
	}
	out = append(out, tempDecl)
	for i, name := range names {
		out = append(out, &ExpressionStatement{Expression: &AssignmentExpression{
			Operator: "=",
			Target:   &Identifier{Name: name},
			Value:    &Identifier{Name: tempNames[i]},
		}})
	}
	out = append(out, &ContinueStatement{irBase: irBase{Loc: l.GetSourceLocation()}})
	return out, nil
}
