package hql

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// Transformer turns fully macro-expanded SExp forms into IR, the JS-
// shaped tree the optimizer and code generator operate on. Mirrors
// pkg/dang/ast.go's walk-and-rewrite style, adapted from a typed
// object/class model to HQL's untyped Lisp forms.
type Transformer struct {
	file string
}

func NewTransformer(file string) *Transformer {
	return &Transformer{file: file}
}

// TransformProgram lowers every expanded top-level form into IR
// statements, wrapping bare expressions in ExpressionStatement.
func (t *Transformer) TransformProgram(forms []SExp) (*Program, error) {
	prog := &Program{}
	for _, f := range forms {
		stmt, err := t.transformTopLevel(f)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			prog.Body = append(prog.Body, stmt)
		}
	}
	return prog, nil
}

func (t *Transformer) loc(n SExp) *SourceLocation { return n.GetSourceLocation() }

func (t *Transformer) transformTopLevel(form SExp) (IRNode, error) {
	if l, ok := form.(*List); ok && l.Kind == KindList {
		if head, ok := l.HeadSymbol(); ok {
			switch head {
			case "import":
				return t.transformImport(l)
			case "export":
				return t.transformExport(l)
			case "do":
				// a top-level `do` produced by a consumed `macro` definition
				// lowers to nothing.
				if len(l.Tail()) == 0 {
					return nil, nil
				}
			}
		}
	}
	return t.transformStatement(form)
}

// mangleIdentifier converts an HQL identifier to a valid JS identifier:
// kebab-case to camelCase via strcase, stripping trailing `?`/`!`
// (invalid in JS identifiers) into conventional prefixes/suffixes.
func mangleIdentifier(name string) string {
	switch name {
	case "this", "self":
		return "this"
	}
	suffix := ""
	base := name
	if strings.HasSuffix(base, "?") {
		base = strings.TrimSuffix(base, "?")
		if !strings.HasPrefix(base, "is") && !strings.HasPrefix(base, "has") {
			base = "is-" + base
		}
	} else if strings.HasSuffix(base, "!") {
		base = strings.TrimSuffix(base, "!") + "-bang"
		suffix = ""
	}
	if base == "" {
		return "_"
	}
	mangled := strcase.ToLowerCamel(base)
	return mangled + suffix
}

var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "mod": true,
	"=": true, "==": true, "===": true, "!=": true, "!==": true,
	"<": true, ">": true, "<=": true, ">=": true, "not": true,
}

// operatorAsValueArrow lowers a bare reference to an operator symbol
// (one not in call-head position, e.g. `(reduce + arr)`) to a call
// against the `__hql_get_op` runtime helper, since JS has no first-class
// operator values of its own. In operator (call-head) position, operators
// still lower directly to BinaryExpression via transformOperatorCall.
func operatorAsValueArrow(name string, loc *SourceLocation) IRNode {
	return &CallExpression{
		irBase:    irBase{Loc: loc},
		Callee:    &Identifier{Name: "__hql_get_op"},
		Arguments: []IRNode{&StringLiteral{Value: name}},
	}
}

func (t *Transformer) transformStatement(form SExp) (IRNode, error) {
	if l, ok := form.(*List); ok && l.Kind == KindList {
		if head, ok := l.HeadSymbol(); ok {
			switch head {
			case "let", "var":
				return t.transformVarDecl(l, head)
			case "fn":
				if expr, ok, err := t.transformNamedFnDecl(l); ok || err != nil {
					return expr, err
				}
			case "if":
				return t.transformIfStatement(l)
			case "when":
				return t.transformWhen(l, false)
			case "unless":
				return t.transformWhen(l, true)
			case "while":
				return t.transformWhile(l)
			case "for-of":
				return t.transformForOfStatement(l)
			case "loop":
				return t.transformLoop(l)
			case "do":
				return t.transformDoBlock(l)
			case "return":
				return t.transformReturn(l)
			case "when-let":
				return t.transformWhenLet(l, false)
			case "class":
				return t.transformClass(l)
			case "enum":
				return t.transformEnum(l)
			}
		}
	}
	expr, err := t.transformExpr(form)
	if err != nil {
		return nil, err
	}
	return &ExpressionStatement{irBase: irBase{Loc: t.loc(form)}, Expression: expr}, nil
}

// transformVarDecl lowers `(let [name val ...] )` used at statement
// position as a plain const/let declaration list (distinct from the
// `let`-as-expression-with-body form handled in transformExpr, which is
// instead lowered to an IIFE); `var` always emits a mutable `let`, and
// `let` emits `const` for all of its bindings (no reassignment analysis
// is done), with array/object literal initializers passed through
// maybeDeepFreeze.
func (t *Transformer) transformVarDecl(l *List, head string) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: head, Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	bindings, ok := args[0].(*List)
	if !ok || bindings.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: head + " requires a vector of bindings", Location: args[0].GetSourceLocation()}
	}
	if len(args) == 1 {
		pairs := bindings.Tail()
		decl := &VariableDeclaration{irBase: irBase{Loc: l.GetSourceLocation()}, Kind: VarConst}
		if head == "var" {
			decl.Kind = VarLet
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			name, ok := pairs[i].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: head + " binding name must be a symbol", Location: pairs[i].GetSourceLocation()}
			}
			init, err := t.transformExpr(pairs[i+1])
			if err != nil {
				return nil, err
			}
			if decl.Kind == VarConst {
				init = maybeDeepFreeze(init)
			}
			decl.Declarations = append(decl.Declarations, VariableDeclarator{
				Id:   &Identifier{irBase: irBase{Loc: name.GetSourceLocation()}, Name: mangleIdentifier(name.Name), OriginalName: name.Name},
				Init: init,
			})
		}
		return decl, nil
	}
	// `let` with a body used where a statement is expected: lower to a
	// block statement executing an IIFE's worth of statements directly
	// rather than allocating a closure, since we are already at
	// statement position and don't need the expression value.
	block, err := t.transformLetBody(bindings, args[1:])
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (t *Transformer) transformLetBody(bindings *List, body []SExp) (*BlockStatement, error) {
	block := &BlockStatement{irBase: irBase{Loc: bindings.GetSourceLocation()}}
	pairs := bindings.Tail()
	decl := &VariableDeclaration{irBase: irBase{Loc: bindings.GetSourceLocation()}, Kind: VarConst}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "let binding name must be a symbol", Location: pairs[i].GetSourceLocation()}
		}
		init, err := t.transformExpr(pairs[i+1])
		if err != nil {
			return nil, err
		}
		decl.Declarations = append(decl.Declarations, VariableDeclarator{
			Id:   &Identifier{Name: mangleIdentifier(name.Name), OriginalName: name.Name},
			Init: init,
		})
	}
	block.Body = append(block.Body, decl)
	for i, b := range body {
		if i == len(body)-1 {
			expr, err := t.transformExpr(b)
			if err != nil {
				return nil, err
			}
			block.Body = append(block.Body, &ExpressionStatement{Expression: expr})
			continue
		}
		stmt, err := t.transformStatement(b)
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
	}
	return block, nil
}

// maybeDeepFreeze wraps array/object literal initializers in
// `Object.freeze(...)`, recursing into array elements and object
// property values that are themselves array/object literals, so
// `const` bindings of literal collections are frozen at every literal
// nesting level, matching HQL's value-semantics collections. Values
// reached through identifiers, calls, `new` expressions or spreads are
// not frozen.
func maybeDeepFreeze(init IRNode) IRNode {
	switch v := init.(type) {
	case *ArrayExpression:
		for i, e := range v.Elements {
			v.Elements[i] = maybeDeepFreeze(e)
		}
	case *ObjectExpression:
		for i := range v.Properties {
			v.Properties[i].Value = maybeDeepFreeze(v.Properties[i].Value)
		}
	default:
		return init
	}
	return &CallExpression{
		Callee: &MemberExpression{
			Object:   &Identifier{Name: "Object"},
			Property: &Identifier{Name: "freeze"},
		},
		Arguments: []IRNode{init},
	}
}

func (t *Transformer) transformNamedFnDecl(l *List) (IRNode, bool, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, false, nil
	}
	nameSym, ok := args[0].(*Symbol)
	if !ok {
		return nil, false, nil
	}
	fn, err := t.transformFnCommon(nameSym.Name, args[1:], l.GetSourceLocation())
	if err != nil {
		return nil, true, err
	}
	decl := &FunctionDeclaration{irBase: irBase{Loc: l.GetSourceLocation()}, Name: fn.Name, Params: fn.Params, RestParam: fn.RestParam, Body: fn.Body}
	return decl, true, nil
}

// transformFnCommon lowers `[params...] body...` into a function's
// parameter list and block body, splitting a trailing `& rest` param
// and defaulted params written as `(name default)` pairs into
// AssignmentPattern nodes.
func (t *Transformer) transformFnCommon(name string, rest []SExp, loc *SourceLocation) (*FunctionExpression, error) {
	if len(rest) < 1 {
		return nil, &HQLSyntaxError{Message: "fn requires a parameter vector", Location: loc}
	}
	paramsNode, ok := rest[0].(*List)
	if !ok || paramsNode.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "fn parameters must be a vector", Location: rest[0].GetSourceLocation()}
	}
	var params []IRNode
	var restParam IRNode
	elems := paramsNode.Tail()
	for i := 0; i < len(elems); i++ {
		if sym, ok := elems[i].(*Symbol); ok && sym.Name == "&" {
			if i+1 >= len(elems) {
				return nil, &HQLSyntaxError{Message: "& must be followed by a rest parameter name", Location: sym.GetSourceLocation()}
			}
			restSym, ok := elems[i+1].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "rest parameter must be a symbol", Location: elems[i+1].GetSourceLocation()}
			}
			restParam = &Identifier{Name: mangleIdentifier(restSym.Name), OriginalName: restSym.Name}
			break
		}
		if defList, ok := elems[i].(*List); ok && defList.Kind == KindList && len(defList.Elements) == 2 {
			sym, ok := defList.Elements[0].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "default parameter must name a symbol", Location: defList.GetSourceLocation()}
			}
			def, err := t.transformExpr(defList.Elements[1])
			if err != nil {
				return nil, err
			}
			params = append(params, &AssignmentPattern{
				Target:  &Identifier{Name: mangleIdentifier(sym.Name), OriginalName: sym.Name},
				Default: def,
			})
			continue
		}
		sym, ok := elems[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "fn parameter must be a symbol", Location: elems[i].GetSourceLocation()}
		}
		params = append(params, &Identifier{Name: mangleIdentifier(sym.Name), OriginalName: sym.Name})
	}

	body, err := t.transformBodyBlock(rest[1:])
	if err != nil {
		return nil, err
	}
	return &FunctionExpression{irBase: irBase{Loc: loc}, Name: mangleIdentifier(name), Params: params, RestParam: restParam, Body: body}, nil
}

// transformBodyBlock lowers a sequence of body forms where every form
// but the last is a statement and the last is an implicit return value.
func (t *Transformer) transformBodyBlock(body []SExp) (*BlockStatement, error) {
	block := &BlockStatement{}
	for i, b := range body {
		if i == len(body)-1 {
			expr, err := t.transformExpr(b)
			if err != nil {
				return nil, err
			}
			block.Body = append(block.Body, &ReturnStatement{irBase: irBase{Loc: t.loc(b)}, Argument: expr})
			continue
		}
		stmt, err := t.transformStatement(b)
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
	}
	return block, nil
}

func (t *Transformer) transformIfStatement(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 2 || len(args) > 3 {
		return nil, &ArityError{FunctionName: "if", Expected: "2 or 3", Received: len(args), Location: l.GetSourceLocation()}
	}
	test, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	consequent, err := t.transformStatement(args[1])
	if err != nil {
		return nil, err
	}
	stmt := &IfStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Test: test, Consequent: wrapBlock(consequent)}
	if len(args) == 3 {
		alt, err := t.transformStatement(args[2])
		if err != nil {
			return nil, err
		}
		stmt.Alternate = wrapBlock(alt)
	}
	return stmt, nil
}

func wrapBlock(n IRNode) IRNode {
	if b, ok := n.(*BlockStatement); ok {
		return b
	}
	if ifs, ok := n.(*IfStatement); ok {
		return ifs
	}
	return &BlockStatement{Body: []IRNode{n}}
}

func (t *Transformer) transformWhen(l *List, negate bool) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "when", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	test, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	if negate {
		test = &UnaryExpression{Operator: "!", Argument: test, Prefix: true}
	}
	body, err := t.transformBodyStatements(args[1:])
	if err != nil {
		return nil, err
	}
	return &IfStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Test: test, Consequent: &BlockStatement{Body: body}}, nil
}

func (t *Transformer) transformBodyStatements(body []SExp) ([]IRNode, error) {
	var out []IRNode
	for _, b := range body {
		stmt, err := t.transformStatement(b)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (t *Transformer) transformWhile(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "while", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	test, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	body, err := t.transformBodyStatements(args[1:])
	if err != nil {
		return nil, err
	}
	return &WhileStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Test: test, Body: &BlockStatement{Body: body}}, nil
}

func (t *Transformer) transformDoBlock(l *List) (IRNode, error) {
	body, err := t.transformBodyStatements(l.Tail())
	if err != nil {
		return nil, err
	}
	return &BlockStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Body: body}, nil
}

func (t *Transformer) transformReturn(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) == 0 {
		return &ReturnStatement{irBase: irBase{Loc: l.GetSourceLocation()}}, nil
	}
	expr, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	return &ReturnStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Argument: expr}, nil
}

func (t *Transformer) transformImport(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, &ArityError{FunctionName: "import", Expected: "at least 2", Received: len(args), Location: l.GetSourceLocation()}
	}
	namesNode, ok := args[0].(*List)
	if !ok || namesNode.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "import requires a vector of names", Location: args[0].GetSourceLocation()}
	}
	srcLit, ok := args[1].(*Literal)
	if !ok || srcLit.Value.Kind != ScalarString {
		return nil, &HQLSyntaxError{Message: "import source must be a string literal", Location: args[1].GetSourceLocation()}
	}
	decl := &ImportDeclaration{irBase: irBase{Loc: l.GetSourceLocation()}, Source: srcLit.Value.S}
	for _, n := range namesNode.Tail() {
		sym, ok := n.(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "import name must be a symbol", Location: n.GetSourceLocation()}
		}
		decl.Specifiers = append(decl.Specifiers, ImportSpecifier{Imported: sym.Name, Local: mangleIdentifier(sym.Name)})
	}
	return decl, nil
}

func (t *Transformer) transformExport(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "export", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	decl, err := t.transformTopLevel(args[0])
	if err != nil {
		return nil, err
	}
	return &ExportNamedDeclaration{irBase: irBase{Loc: l.GetSourceLocation()}, Declaration: decl}, nil
}

// transformExpr lowers a form used in expression position.
func (t *Transformer) transformExpr(form SExp) (IRNode, error) {
	switch n := form.(type) {
	case *Literal:
		return t.transformLiteral(n), nil
	case *Symbol:
		return t.transformSymbol(n), nil
	case *List:
		return t.transformListExpr(n)
	default:
		return nil, NewInternalCompilerError(StageTransform, &HQLSyntaxError{Message: "unrecognized sexp node in expression position"})
	}
}

func (t *Transformer) transformLiteral(n *Literal) IRNode {
	loc := n.GetSourceLocation()
	switch n.Value.Kind {
	case ScalarNil:
		return &NullLiteral{irBase: irBase{Loc: loc}}
	case ScalarBool:
		return &BoolLiteral{irBase: irBase{Loc: loc}, Value: n.Value.B}
	case ScalarInt:
		return &NumericLiteral{irBase: irBase{Loc: loc}, IsInt: true, IntVal: n.Value.I, Value: float64(n.Value.I)}
	case ScalarFloat:
		return &NumericLiteral{irBase: irBase{Loc: loc}, Value: n.Value.F}
	case ScalarBigInt:
		return &NumericLiteral{irBase: irBase{Loc: loc}, IsBigInt: true, BigVal: n.Value.S}
	case ScalarString:
		return &StringLiteral{irBase: irBase{Loc: loc}, Value: n.Value.S}
	default:
		return &NullLiteral{irBase: irBase{Loc: loc}}
	}
}

// transformSymbol lowers a bare symbol reference: dot-paths become
// chained MemberExpressions, a bare operator symbol becomes a
// __hql_get_op runtime-helper call, and everything else is a mangled
// Identifier.
func (t *Transformer) transformSymbol(n *Symbol) IRNode {
	loc := n.GetSourceLocation()
	if operatorSymbols[n.Name] {
		return operatorAsValueArrow(n.Name, loc)
	}
	if strings.Contains(n.Name, ".") && n.Name != "." {
		return t.dotPathToMember(n.Name, loc)
	}
	return &Identifier{irBase: irBase{Loc: loc}, Name: mangleIdentifier(n.Name), OriginalName: n.Name}
}

func (t *Transformer) dotPathToMember(path string, loc *SourceLocation) IRNode {
	parts := strings.Split(path, ".")
	var node IRNode = &Identifier{irBase: irBase{Loc: loc}, Name: mangleIdentifier(parts[0]), OriginalName: parts[0]}
	for _, p := range parts[1:] {
		node = &MemberExpression{irBase: irBase{Loc: loc}, Object: node, Property: &Identifier{Name: mangleIdentifier(p), OriginalName: p}}
	}
	return node
}

func (t *Transformer) transformListExpr(l *List) (IRNode, error) {
	loc := l.GetSourceLocation()
	switch l.Kind {
	case KindVector:
		return t.transformArrayLiteral(l.Tail(), loc)
	case KindSet:
		elements, err := t.transformEach(l.Tail())
		if err != nil {
			return nil, err
		}
		return &NewExpression{irBase: irBase{Loc: loc}, Callee: &Identifier{Name: "Set"}, Arguments: []IRNode{&ArrayExpression{Elements: elements}}}, nil
	case KindMap:
		return t.transformMapLiteral(l.Tail(), loc)
	}

	if len(l.Elements) == 0 {
		return &ArrayExpression{irBase: irBase{Loc: loc}}, nil
	}

	if head, ok := l.HeadSymbol(); ok {
		switch head {
		case "if":
			return t.transformIfExpr(l)
		case "cond":
			return t.transformCondExpr(l)
		case "let":
			return t.transformLetExpr(l)
		case "loop":
			return t.transformLoop(l)
		case "for-of":
			return t.transformForOfExpr(l)
		case "match":
			return t.transformMatchExpr(l)
		case "if-let":
			return t.transformIfLetExpr(l)
		case "fn":
			return t.transformFnExpr(l)
		case "do":
			return t.transformDoExpr(l)
		case "quote":
			return t.transformQuoteExpr(l)
		case "->":
			return t.transformThreadFirst(l)
		case "->>":
			return t.transformThreadLast(l)
		case "as->":
			return t.transformThreadAs(l)
		case "js-get":
			return t.transformJSGet(l)
		case "js-call":
			return t.transformJSCall(l)
		case "new":
			return t.transformNewExpr(l)
		case "not":
			return t.transformNot(l)
		case "recur":
			return nil, &HQLSyntaxError{Message: "recur is only allowed in tail position of a loop", Location: loc}
		}
		if strings.HasPrefix(head, ".") && head != "." {
			return t.transformMethodCall(l, head)
		}
		if operatorSymbols[head] && len(l.Elements) >= 3 {
			return t.transformOperatorCall(l, head)
		}
	}

	return t.transformCall(l)
}

func (t *Transformer) transformEach(forms []SExp) ([]IRNode, error) {
	out := make([]IRNode, len(forms))
	for i, f := range forms {
		if spread, ok := f.(*List); ok && spread.Kind == KindList {
			if head, ok := spread.HeadSymbol(); ok && head == "spread" && len(spread.Elements) == 2 {
				inner, err := t.transformExpr(spread.Elements[1])
				if err != nil {
					return nil, err
				}
				out[i] = &SpreadElement{Argument: inner}
				continue
			}
		}
		v, err := t.transformExpr(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t *Transformer) transformArrayLiteral(forms []SExp, loc *SourceLocation) (IRNode, error) {
	elements, err := t.transformEach(forms)
	if err != nil {
		return nil, err
	}
	return &ArrayExpression{irBase: irBase{Loc: loc}, Elements: elements}, nil
}

func (t *Transformer) transformMapLiteral(forms []SExp, loc *SourceLocation) (IRNode, error) {
	if len(forms)%2 != 0 {
		return nil, &ParseError{Kind: ParseOddMapPayload, Location: loc}
	}
	obj := &ObjectExpression{irBase: irBase{Loc: loc}}
	for i := 0; i < len(forms); i += 2 {
		var key IRNode
		computed := false
		if sym, ok := forms[i].(*Symbol); ok {
			key = &Identifier{Name: mangleIdentifier(sym.Name)}
		} else if lit, ok := forms[i].(*Literal); ok && lit.Value.Kind == ScalarString {
			key = &StringLiteral{Value: lit.Value.S}
		} else {
			v, err := t.transformExpr(forms[i])
			if err != nil {
				return nil, err
			}
			key = v
			computed = true
		}
		val, err := t.transformExpr(forms[i+1])
		if err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, ObjectProperty{Key: key, Value: val, Computed: computed})
	}
	return obj, nil
}

func (t *Transformer) transformIfExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 3 {
		return nil, &ArityError{FunctionName: "if", Expected: "3 in expression position", Received: len(args), Location: l.GetSourceLocation()}
	}
	test, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	cons, err := t.transformExpr(args[1])
	if err != nil {
		return nil, err
	}
	alt, err := t.transformExpr(args[2])
	if err != nil {
		return nil, err
	}
	return &ConditionalExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Test: test, Consequent: cons, Alternate: alt}, nil
}

func (t *Transformer) transformCondExpr(l *List) (IRNode, error) {
	clauses := l.Tail()
	if len(clauses)%2 != 0 {
		return nil, &HQLSyntaxError{Message: "cond requires an even number of test/expr clauses", Location: l.GetSourceLocation()}
	}
	var result IRNode = &NullLiteral{}
	for i := len(clauses) - 2; i >= 0; i -= 2 {
		expr, err := t.transformExpr(clauses[i+1])
		if err != nil {
			return nil, err
		}
		if sym, ok := clauses[i].(*Symbol); ok && sym.Name == "else" {
			result = expr
			continue
		}
		test, err := t.transformExpr(clauses[i])
		if err != nil {
			return nil, err
		}
		result = &ConditionalExpression{Test: test, Consequent: expr, Alternate: result}
	}
	return result, nil
}

// transformLetExpr lowers `let` used in expression position to an
// immediately-invoked arrow function, since JS has no let-expression.
func (t *Transformer) transformLetExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, &ArityError{FunctionName: "let", Expected: "at least 2", Received: len(args), Location: l.GetSourceLocation()}
	}
	bindings, ok := args[0].(*List)
	if !ok || bindings.Kind != KindVector {
		return nil, &HQLSyntaxError{Message: "let requires a vector of bindings", Location: args[0].GetSourceLocation()}
	}
	block, err := t.transformLetExprBody(bindings, args[1:])
	if err != nil {
		return nil, err
	}
	return &CallExpression{
		irBase: irBase{Loc: l.GetSourceLocation()},
		Callee: &ArrowFunctionExpression{Body: block},
	}, nil
}

func (t *Transformer) transformLetExprBody(bindings *List, body []SExp) (*BlockStatement, error) {
	block := &BlockStatement{}
	pairs := bindings.Tail()
	decl := &VariableDeclaration{Kind: VarConst}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(*Symbol)
		if !ok {
			return nil, &HQLSyntaxError{Message: "let binding name must be a symbol", Location: pairs[i].GetSourceLocation()}
		}
		init, err := t.transformExpr(pairs[i+1])
		if err != nil {
			return nil, err
		}
		decl.Declarations = append(decl.Declarations, VariableDeclarator{
			Id:   &Identifier{Name: mangleIdentifier(name.Name), OriginalName: name.Name},
			Init: init,
		})
	}
	if len(decl.Declarations) > 0 {
		block.Body = append(block.Body, decl)
	}
	for i, b := range body {
		if i == len(body)-1 {
			expr, err := t.transformExpr(b)
			if err != nil {
				return nil, err
			}
			block.Body = append(block.Body, &ReturnStatement{Argument: expr})
			continue
		}
		stmt, err := t.transformStatement(b)
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
	}
	return block, nil
}

func (t *Transformer) transformFnExpr(l *List) (IRNode, error) {
	args := l.Tail()
	name := ""
	rest := args
	if sym, ok := args[0].(*Symbol); ok {
		name = sym.Name
		rest = args[1:]
	}
	fn, err := t.transformFnCommon(name, rest, l.GetSourceLocation())
	if err != nil {
		return nil, err
	}
	if name == "" {
		return &ArrowFunctionExpression{irBase: fn.irBase, Params: fn.Params, RestParam: fn.RestParam, Body: fn.Body}, nil
	}
	return fn, nil
}

func (t *Transformer) transformDoExpr(l *List) (IRNode, error) {
	body := l.Tail()
	if len(body) == 0 {
		return &NullLiteral{irBase: irBase{Loc: l.GetSourceLocation()}}, nil
	}
	var exprs []IRNode
	for _, b := range body {
		e, err := t.transformExpr(b)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &SequenceExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Expressions: exprs}, nil
}

// transformQuoteExpr lowers `(quote x)` appearing in ordinary code
// (rather than consumed by the macro interpreter) to a JSON-shaped
// plain-data literal describing the quoted form, so quoted data survives
// into the emitted program as a value.
func (t *Transformer) transformQuoteExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "quote", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	return quotedSExpToIR(args[0]), nil
}

func quotedSExpToIR(n SExp) IRNode {
	switch v := n.(type) {
	case *Literal:
		return (&Transformer{}).transformLiteral(v)
	case *Symbol:
		return &StringLiteral{Value: v.Name}
	case *List:
		var elements []IRNode
		for _, e := range v.Elements {
			elements = append(elements, quotedSExpToIR(e))
		}
		return &ArrayExpression{Elements: elements}
	default:
		return &NullLiteral{}
	}
}

// transformThreadFirst lowers `(-> x f (g a))` to `g(f(x), a)`, inserting
// x as the first argument of each subsequent form.
func (t *Transformer) transformThreadFirst(l *List) (IRNode, error) {
	return t.transformThread(l, true)
}

func (t *Transformer) transformThreadLast(l *List) (IRNode, error) {
	return t.transformThread(l, false)
}

func (t *Transformer) transformThread(l *List, first bool) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "threading macro", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	acc, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	for _, step := range args[1:] {
		acc, err = t.threadInto(acc, step, first)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (t *Transformer) threadInto(acc IRNode, step SExp, first bool) (IRNode, error) {
	if l, ok := step.(*List); ok && l.Kind == KindList && len(l.Elements) > 0 {
		callee, err := t.transformExpr(l.Head())
		if err != nil {
			return nil, err
		}
		args, err := t.transformEach(l.Tail())
		if err != nil {
			return nil, err
		}
		if first {
			args = append([]IRNode{acc}, args...)
		} else {
			args = append(args, acc)
		}
		return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: callee, Arguments: args}, nil
	}
	callee, err := t.transformExpr(step)
	if err != nil {
		return nil, err
	}
	return &CallExpression{irBase: irBase{Loc: t.loc(step)}, Callee: callee, Arguments: []IRNode{acc}}, nil
}

// transformThreadAs lowers `(as-> x name step1 step2)`: each step may
// refer to name, rebound to the previous step's result.
func (t *Transformer) transformThreadAs(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, &ArityError{FunctionName: "as->", Expected: "at least 2", Received: len(args), Location: l.GetSourceLocation()}
	}
	nameSym, ok := args[1].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "as-> binding must be a symbol", Location: args[1].GetSourceLocation()}
	}
	init, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	id := mangleIdentifier(nameSym.Name)
	block := &BlockStatement{}
	block.Body = append(block.Body, &VariableDeclaration{Kind: VarLet, Declarations: []VariableDeclarator{{
		Id: &Identifier{Name: id, OriginalName: nameSym.Name}, Init: init,
	}}})
	for i, step := range args[2:] {
		expr, err := t.transformExpr(step)
		if err != nil {
			return nil, err
		}
		if i == len(args[2:])-1 {
			block.Body = append(block.Body, &ReturnStatement{Argument: expr})
		} else {
			block.Body = append(block.Body, &ExpressionStatement{
				Expression: &AssignmentExpression{Operator: "=", Target: &Identifier{Name: id}, Value: expr},
			})
		}
	}
	return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: &ArrowFunctionExpression{Body: block}}, nil
}

func (t *Transformer) transformJSGet(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 2 {
		return nil, &ArityError{FunctionName: "js-get", Expected: "2", Received: len(args), Location: l.GetSourceLocation()}
	}
	obj, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	propLit, ok := args[1].(*Literal)
	if ok && propLit.Value.Kind == ScalarString {
		return &MemberExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Object: obj, Property: &Identifier{Name: propLit.Value.S}}, nil
	}
	prop, err := t.transformExpr(args[1])
	if err != nil {
		return nil, err
	}
	return &MemberExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Object: obj, Property: prop, Computed: true}, nil
}

func (t *Transformer) transformJSCall(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 2 {
		return nil, &ArityError{FunctionName: "js-call", Expected: "at least 2", Received: len(args), Location: l.GetSourceLocation()}
	}
	obj, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	methodLit, ok := args[1].(*Literal)
	if !ok || methodLit.Value.Kind != ScalarString {
		return nil, &HQLSyntaxError{Message: "js-call method name must be a string literal", Location: args[1].GetSourceLocation()}
	}
	callArgs, err := t.transformEach(args[2:])
	if err != nil {
		return nil, err
	}
	callee := &MemberExpression{Object: obj, Property: &Identifier{Name: methodLit.Value.S}}
	return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: callee, Arguments: callArgs}, nil
}

func (t *Transformer) transformNewExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "new", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	callee, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	callArgs, err := t.transformEach(args[1:])
	if err != nil {
		return nil, err
	}
	return &NewExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: callee, Arguments: callArgs}, nil
}

func (t *Transformer) transformNot(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 1 {
		return nil, &ArityError{FunctionName: "not", Expected: "1", Received: len(args), Location: l.GetSourceLocation()}
	}
	arg, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	return &UnaryExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Operator: "!", Argument: arg, Prefix: true}, nil
}

// transformMethodCall lowers `(.method obj args...)` to obj.method(args).
func (t *Transformer) transformMethodCall(l *List, head string) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: head, Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	obj, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	method := strings.TrimPrefix(head, ".")
	callArgs, err := t.transformEach(args[1:])
	if err != nil {
		return nil, err
	}
	callee := &MemberExpression{Object: obj, Property: &Identifier{Name: mangleIdentifier(method), OriginalName: method}}
	return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: callee, Arguments: callArgs}, nil
}

// transformOperatorCall lowers a variadic operator call, e.g. `(+ 1 2 3)`,
// to a left-associative chain of BinaryExpressions.
func (t *Transformer) transformOperatorCall(l *List, head string) (IRNode, error) {
	args := l.Tail()
	op := head
	switch head {
	case "=":
		op = "==="
	case "!=":
		op = "!=="
	case "mod":
		op = "%"
	}
	if head == "not" {
		return t.transformNot(l)
	}
	first, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	acc := first
	for _, a := range args[1:] {
		rhs, err := t.transformExpr(a)
		if err != nil {
			return nil, err
		}
		acc = &BinaryExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Operator: op, Left: acc, Right: rhs}
	}
	return acc, nil
}

func (t *Transformer) transformCall(l *List) (IRNode, error) {
	callee, err := t.transformExpr(l.Head())
	if err != nil {
		return nil, err
	}
	args, err := t.transformEach(l.Tail())
	if err != nil {
		return nil, err
	}
	return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: callee, Arguments: args}, nil
}

// transformForOfStatement lowers `(for-of [item seq] body...)` used at
// statement position.
func (t *Transformer) transformForOfStatement(l *List) (IRNode, error) {
	call, err := t.transformForOfCall(l)
	if err != nil {
		return nil, err
	}
	return &ExpressionStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Expression: call}, nil
}

// transformForOfExpr lowers the same form used in expression position
// (e.g. as a macro-generated subform); the call itself is the value.
func (t *Transformer) transformForOfExpr(l *List) (IRNode, error) {
	return t.transformForOfCall(l)
}

// transformForOfCall lowers `(for-of [item seq] body...)` to a call
// against the __hql_for_each runtime helper rather than a native JS
// for-of statement, since the callback may contain a `return` that must
// escape the enclosing fn -- the IR Optimizer's early-return pass only
// rewrites returns found inside a *synthetic* callback like this one.
func (t *Transformer) transformForOfCall(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "for-of", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	binding, ok := args[0].(*List)
	if !ok || binding.Kind != KindVector || len(binding.Tail()) != 2 {
		return nil, &HQLSyntaxError{Message: "for-of requires a [item seq] binding vector", Location: args[0].GetSourceLocation()}
	}
	pair := binding.Tail()
	itemSym, ok := pair[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "for-of binding name must be a symbol", Location: pair[0].GetSourceLocation()}
	}
	seq, err := t.transformExpr(pair[1])
	if err != nil {
		return nil, err
	}
	body, err := t.transformBodyStatements(args[1:])
	if err != nil {
		return nil, err
	}
	callback := &ArrowFunctionExpression{
		irBase:    irBase{Loc: l.GetSourceLocation()},
		Params:    []IRNode{&Identifier{Name: mangleIdentifier(itemSym.Name), OriginalName: itemSym.Name}},
		Body:      &BlockStatement{Body: body},
		Synthetic: true,
	}
	return &CallExpression{
		irBase:    irBase{Loc: l.GetSourceLocation()},
		Callee:    &Identifier{Name: "__hql_for_each"},
		Arguments: []IRNode{seq, callback},
	}, nil
}

// transformWhenLet lowers `(when-let [name expr] body...)`: bind expr's
// value to name, and if it is truthy (falsy when negate, for a future
// unless-let) execute body with name in scope -- the `if`/`let`/`if`
// desugaring the conditionals section documents.
func (t *Transformer) transformWhenLet(l *List, negate bool) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "when-let", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	binding, ok := args[0].(*List)
	if !ok || binding.Kind != KindVector || len(binding.Tail()) != 2 {
		return nil, &HQLSyntaxError{Message: "when-let requires a [name expr] binding vector", Location: args[0].GetSourceLocation()}
	}
	pair := binding.Tail()
	nameSym, ok := pair[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "when-let binding name must be a symbol", Location: pair[0].GetSourceLocation()}
	}
	init, err := t.transformExpr(pair[1])
	if err != nil {
		return nil, err
	}
	id := &Identifier{Name: mangleIdentifier(nameSym.Name), OriginalName: nameSym.Name}
	body, err := t.transformBodyStatements(args[1:])
	if err != nil {
		return nil, err
	}
	var test IRNode = id
	if negate {
		test = &UnaryExpression{Operator: "!", Argument: id, Prefix: true}
	}
	return &BlockStatement{irBase: irBase{Loc: l.GetSourceLocation()}, Body: []IRNode{
		&VariableDeclaration{Kind: VarConst, Declarations: []VariableDeclarator{{Id: id, Init: init}}},
		&IfStatement{Test: test, Consequent: &BlockStatement{Body: body}},
	}}, nil
}

// transformIfLetExpr lowers `(if-let [name expr] then else)` used in
// expression position to an IIFE binding name before branching, since
// JS has no let-scoped conditional expression.
func (t *Transformer) transformIfLetExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) != 3 {
		return nil, &ArityError{FunctionName: "if-let", Expected: "3", Received: len(args), Location: l.GetSourceLocation()}
	}
	binding, ok := args[0].(*List)
	if !ok || binding.Kind != KindVector || len(binding.Tail()) != 2 {
		return nil, &HQLSyntaxError{Message: "if-let requires a [name expr] binding vector", Location: args[0].GetSourceLocation()}
	}
	pair := binding.Tail()
	nameSym, ok := pair[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "if-let binding name must be a symbol", Location: pair[0].GetSourceLocation()}
	}
	init, err := t.transformExpr(pair[1])
	if err != nil {
		return nil, err
	}
	id := &Identifier{Name: mangleIdentifier(nameSym.Name), OriginalName: nameSym.Name}
	thenExpr, err := t.transformExpr(args[1])
	if err != nil {
		return nil, err
	}
	elseExpr, err := t.transformExpr(args[2])
	if err != nil {
		return nil, err
	}
	block := &BlockStatement{Body: []IRNode{
		&VariableDeclaration{Kind: VarConst, Declarations: []VariableDeclarator{{Id: id, Init: init}}},
		&IfStatement{
			Test:       id,
			Consequent: &BlockStatement{Body: []IRNode{&ReturnStatement{Argument: thenExpr}}},
			Alternate:  &BlockStatement{Body: []IRNode{&ReturnStatement{Argument: elseExpr}}},
		},
	}}
	return &CallExpression{irBase: irBase{Loc: l.GetSourceLocation()}, Callee: &ArrowFunctionExpression{Body: block}}, nil
}

// transformMatchExpr lowers `(match subject (case pattern (if guard)?
// result)... (default result)?)` to an IIFE: the subject is bound once,
// then each case becomes a guarded `if` testing (and, for destructuring
// patterns, binding) against it, falling through to `default` (or null).
// Mirrors transformCondExpr's chained-conditional shape, but needs
// statement-level per-clause bindings (destructured pattern variables),
// which a plain expression chain cannot carry.
func (t *Transformer) transformMatchExpr(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "match", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	subject, err := t.transformExpr(args[0])
	if err != nil {
		return nil, err
	}
	loc := l.GetSourceLocation()
	subjectId := &Identifier{Name: "__hql_match_subject"}
	block := &BlockStatement{Body: []IRNode{
		&VariableDeclaration{Kind: VarConst, Declarations: []VariableDeclarator{{Id: subjectId, Init: subject}}},
	}}

	type matchClause struct {
		test    IRNode
		prelude []IRNode
		guard   IRNode
		result  IRNode
	}
	var clauses []matchClause
	var defaultExpr SExp
	for _, c := range args[1:] {
		cl, ok := c.(*List)
		if !ok || cl.Kind != KindList {
			return nil, &HQLSyntaxError{Message: "match clause must be a list", Location: c.GetSourceLocation()}
		}
		head, ok := cl.HeadSymbol()
		if !ok {
			return nil, &HQLSyntaxError{Message: "match clause must start with case or default", Location: cl.GetSourceLocation()}
		}
		clArgs := cl.Tail()
		switch head {
		case "default":
			if len(clArgs) != 1 {
				return nil, &ArityError{FunctionName: "default", Expected: "1", Received: len(clArgs), Location: cl.GetSourceLocation()}
			}
			defaultExpr = clArgs[0]
		case "case":
			if len(clArgs) != 2 && len(clArgs) != 3 {
				return nil, &ArityError{FunctionName: "case", Expected: "2 or 3", Received: len(clArgs), Location: cl.GetSourceLocation()}
			}
			pattern := clArgs[0]
			result := clArgs[len(clArgs)-1]
			var guard SExp
			if len(clArgs) == 3 {
				guardForm, ok := clArgs[1].(*List)
				if !ok || guardForm.Kind != KindList {
					return nil, &HQLSyntaxError{Message: "case guard must be (if expr)", Location: clArgs[1].GetSourceLocation()}
				}
				guardHead, ok := guardForm.HeadSymbol()
				if !ok || guardHead != "if" || len(guardForm.Tail()) != 1 {
					return nil, &HQLSyntaxError{Message: "case guard must be (if expr)", Location: guardForm.GetSourceLocation()}
				}
				guard = guardForm.Tail()[0]
			}
			test, prelude, err := t.matchPatternTest(pattern, subjectId)
			if err != nil {
				return nil, err
			}
			var guardIR IRNode
			if guard != nil {
				// The guard is transformed (and evaluated) after prelude's
				// bindings so it can reference the pattern's bound names;
				// folding it directly into test would evaluate it before
				// those `const` declarations exist.
				guardIR, err = t.transformExpr(guard)
				if err != nil {
					return nil, err
				}
			}
			resultIR, err := t.transformExpr(result)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, matchClause{test: test, prelude: prelude, guard: guardIR, result: resultIR})
		default:
			return nil, &HQLSyntaxError{Message: "match clause must start with case or default", Location: cl.GetSourceLocation()}
		}
	}

	var fallback IRNode = &NullLiteral{}
	if defaultExpr != nil {
		fb, err := t.transformExpr(defaultExpr)
		if err != nil {
			return nil, err
		}
		fallback = fb
	}

	var build func(i int) IRNode
	build = func(i int) IRNode {
		if i >= len(clauses) {
			return &ReturnStatement{Argument: fallback}
		}
		cl := clauses[i]
		next := build(i + 1)
		consequentBody := append([]IRNode{}, cl.prelude...)
		if cl.guard != nil {
			// Guard false falls through to the next clause rather than
			// failing the whole match, so it's reused as the guard-if's
			// implicit continuation as well as the pattern-test's
			// alternate below.
			consequentBody = append(consequentBody,
				&IfStatement{Test: cl.guard, Consequent: wrapBlock(&ReturnStatement{Argument: cl.result})},
				next,
			)
		} else {
			consequentBody = append(consequentBody, &ReturnStatement{Argument: cl.result})
		}
		consequent := &BlockStatement{Body: consequentBody}
		return &IfStatement{Test: cl.test, Consequent: consequent, Alternate: wrapBlock(next)}
	}
	block.Body = append(block.Body, build(0))

	return &CallExpression{irBase: irBase{Loc: loc}, Callee: &ArrowFunctionExpression{Body: block}}, nil
}

// matchPatternTest builds the boolean test (and any bindings it
// requires) for one match pattern against subject: a literal compares
// with ===, a bare symbol (other than `_`) always matches and binds, and
// vector/map forms destructure arrays and objects respectively.
func (t *Transformer) matchPatternTest(pattern SExp, subject IRNode) (IRNode, []IRNode, error) {
	switch p := pattern.(type) {
	case *Literal:
		return &BinaryExpression{Operator: "===", Left: subject, Right: t.transformLiteral(p)}, nil, nil
	case *Symbol:
		if p.Name == "_" {
			return &BoolLiteral{Value: true}, nil, nil
		}
		bind := &VariableDeclaration{Kind: VarConst, Declarations: []VariableDeclarator{{
			Id:   &Identifier{Name: mangleIdentifier(p.Name), OriginalName: p.Name},
			Init: subject,
		}}}
		return &BoolLiteral{Value: true}, []IRNode{bind}, nil
	case *List:
		switch p.Kind {
		case KindVector:
			return t.matchArrayPattern(p, subject)
		case KindMap:
			return t.matchObjectPattern(p, subject)
		}
	}
	return nil, nil, &HQLSyntaxError{Message: "unsupported match pattern", Location: pattern.GetSourceLocation()}
}

// matchArrayPattern lowers a `[a b & rest]` pattern to an Array.isArray
// plus length test and a destructuring declaration binding each element
// (and the optional rest slice).
func (t *Transformer) matchArrayPattern(p *List, subject IRNode) (IRNode, []IRNode, error) {
	elems := p.Tail()
	var names []*Symbol
	var restName *Symbol
	for i := 0; i < len(elems); i++ {
		if sym, ok := elems[i].(*Symbol); ok && sym.Name == "&" {
			if i+1 >= len(elems) {
				return nil, nil, &HQLSyntaxError{Message: "& must be followed by a rest pattern name", Location: sym.GetSourceLocation()}
			}
			restSym, ok := elems[i+1].(*Symbol)
			if !ok {
				return nil, nil, &HQLSyntaxError{Message: "rest pattern name must be a symbol", Location: elems[i+1].GetSourceLocation()}
			}
			restName = restSym
			break
		}
		sym, ok := elems[i].(*Symbol)
		if !ok {
			return nil, nil, &HQLSyntaxError{Message: "array pattern element must be a symbol", Location: elems[i].GetSourceLocation()}
		}
		names = append(names, sym)
	}
	lengthOp := "==="
	if restName != nil {
		lengthOp = ">="
	}
	test := &LogicalExpression{
		Operator: "&&",
		Left:     &CallExpression{Callee: &MemberExpression{Object: &Identifier{Name: "Array"}, Property: &Identifier{Name: "isArray"}}, Arguments: []IRNode{subject}},
		Right: &BinaryExpression{
			Operator: lengthOp,
			Left:     &MemberExpression{Object: subject, Property: &Identifier{Name: "length"}},
			Right:    &NumericLiteral{IsInt: true, IntVal: int64(len(names))},
		},
	}
	var prelude []IRNode
	elements := make([]IRNode, len(names))
	for i, n := range names {
		elements[i] = &Identifier{Name: mangleIdentifier(n.Name), OriginalName: n.Name}
	}
	if restName != nil {
		elements = append(elements, &SpreadElement{Argument: &Identifier{Name: mangleIdentifier(restName.Name), OriginalName: restName.Name}})
	}
	if len(elements) > 0 {
		decl := &VariableDeclaration{Kind: VarConst, Declarations: []VariableDeclarator{{
			Id:   &ArrayExpression{Elements: elements},
			Init: subject,
		}}}
		prelude = append(prelude, decl)
	}
	return test, prelude, nil
}

// matchObjectPattern lowers a `{key bindName ...}` pattern to a call
// against the __hql_match_obj runtime helper (checks subject is a
// non-array object carrying every listed key) plus a destructuring
// declaration binding each key's value to its local name.
func (t *Transformer) matchObjectPattern(p *List, subject IRNode) (IRNode, []IRNode, error) {
	forms := p.Tail()
	if len(forms)%2 != 0 {
		return nil, nil, &ParseError{Kind: ParseOddMapPayload, Location: p.GetSourceLocation()}
	}
	var keys []string
	var binds []VariableDeclarator
	for i := 0; i < len(forms); i += 2 {
		keySym, ok := forms[i].(*Symbol)
		if !ok {
			return nil, nil, &HQLSyntaxError{Message: "object pattern key must be a symbol", Location: forms[i].GetSourceLocation()}
		}
		bindSym, ok := forms[i+1].(*Symbol)
		if !ok {
			return nil, nil, &HQLSyntaxError{Message: "object pattern binding must be a symbol", Location: forms[i+1].GetSourceLocation()}
		}
		keys = append(keys, keySym.Name)
		binds = append(binds, VariableDeclarator{
			Id:   &Identifier{Name: mangleIdentifier(bindSym.Name), OriginalName: bindSym.Name},
			Init: &MemberExpression{Object: subject, Property: &Identifier{Name: mangleIdentifier(keySym.Name), OriginalName: keySym.Name}},
		})
	}
	keyElems := make([]IRNode, len(keys))
	for i, k := range keys {
		keyElems[i] = &StringLiteral{Value: k}
	}
	test := &CallExpression{
		Callee:    &Identifier{Name: "__hql_match_obj"},
		Arguments: []IRNode{subject, &ArrayExpression{Elements: keyElems}},
	}
	var prelude []IRNode
	if len(binds) > 0 {
		prelude = append(prelude, &VariableDeclaration{Kind: VarConst, Declarations: binds})
	}
	return test, prelude, nil
}

// transformClass lowers `(class Name (extends Super)? (field f [default])*
// (method m [params] body...)* (constructor [params] body...)?)` to a
// ClassDeclaration, reusing transformFnCommon for constructor/method
// parameter and body handling.
func (t *Transformer) transformClass(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "class", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	nameSym, ok := args[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "class name must be a symbol", Location: args[0].GetSourceLocation()}
	}
	decl := &ClassDeclaration{irBase: irBase{Loc: l.GetSourceLocation()}, Name: mangleIdentifier(nameSym.Name)}
	for _, member := range args[1:] {
		ml, ok := member.(*List)
		if !ok || ml.Kind != KindList {
			return nil, &HQLSyntaxError{Message: "class member must be a list", Location: member.GetSourceLocation()}
		}
		head, ok := ml.HeadSymbol()
		if !ok {
			return nil, &HQLSyntaxError{Message: "class member must start with extends/field/method/constructor", Location: ml.GetSourceLocation()}
		}
		memberArgs := ml.Tail()
		switch head {
		case "extends":
			if len(memberArgs) != 1 {
				return nil, &ArityError{FunctionName: "extends", Expected: "1", Received: len(memberArgs), Location: ml.GetSourceLocation()}
			}
			super, err := t.transformExpr(memberArgs[0])
			if err != nil {
				return nil, err
			}
			decl.SuperClass = super
		case "field":
			if len(memberArgs) < 1 {
				return nil, &ArityError{FunctionName: "field", Expected: "at least 1", Received: len(memberArgs), Location: ml.GetSourceLocation()}
			}
			fieldSym, ok := memberArgs[0].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "field name must be a symbol", Location: memberArgs[0].GetSourceLocation()}
			}
			var value IRNode
			if len(memberArgs) > 1 {
				v, err := t.transformExpr(memberArgs[1])
				if err != nil {
					return nil, err
				}
				value = v
			}
			decl.Properties = append(decl.Properties, ClassProperty{
				Key:   &Identifier{Name: mangleIdentifier(fieldSym.Name), OriginalName: fieldSym.Name},
				Value: value,
			})
		case "constructor":
			fn, err := t.transformFnCommon("constructor", memberArgs, ml.GetSourceLocation())
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, ClassMethod{
				Key: &Identifier{Name: "constructor"}, Params: fn.Params, RestParam: fn.RestParam, Body: fn.Body, Kind: "constructor",
			})
		case "method":
			if len(memberArgs) < 1 {
				return nil, &ArityError{FunctionName: "method", Expected: "at least 1", Received: len(memberArgs), Location: ml.GetSourceLocation()}
			}
			methodSym, ok := memberArgs[0].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "method name must be a symbol", Location: memberArgs[0].GetSourceLocation()}
			}
			fn, err := t.transformFnCommon(methodSym.Name, memberArgs[1:], ml.GetSourceLocation())
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, ClassMethod{
				Key:    &Identifier{Name: mangleIdentifier(methodSym.Name), OriginalName: methodSym.Name},
				Params: fn.Params, RestParam: fn.RestParam, Body: fn.Body, Kind: "method",
			})
		default:
			return nil, &HQLSyntaxError{Message: "unrecognized class member " + head, Location: ml.GetSourceLocation()}
		}
	}
	return decl, nil
}

// transformEnum lowers `(enum Name case1 (case2 value) ...)` to a frozen
// object literal mapping each case name to either its explicit value or
// its own name as a string.
func (t *Transformer) transformEnum(l *List) (IRNode, error) {
	args := l.Tail()
	if len(args) < 1 {
		return nil, &ArityError{FunctionName: "enum", Expected: "at least 1", Received: len(args), Location: l.GetSourceLocation()}
	}
	nameSym, ok := args[0].(*Symbol)
	if !ok {
		return nil, &HQLSyntaxError{Message: "enum name must be a symbol", Location: args[0].GetSourceLocation()}
	}
	obj := &ObjectExpression{irBase: irBase{Loc: l.GetSourceLocation()}}
	for _, c := range args[1:] {
		switch cv := c.(type) {
		case *Symbol:
			obj.Properties = append(obj.Properties, ObjectProperty{
				Key:   &Identifier{Name: mangleIdentifier(cv.Name)},
				Value: &StringLiteral{Value: cv.Name},
			})
		case *List:
			if cv.Kind != KindList || len(cv.Elements) != 2 {
				return nil, &HQLSyntaxError{Message: "enum case must be a symbol or (name value)", Location: cv.GetSourceLocation()}
			}
			caseSym, ok := cv.Elements[0].(*Symbol)
			if !ok {
				return nil, &HQLSyntaxError{Message: "enum case name must be a symbol", Location: cv.Elements[0].GetSourceLocation()}
			}
			val, err := t.transformExpr(cv.Elements[1])
			if err != nil {
				return nil, err
			}
			obj.Properties = append(obj.Properties, ObjectProperty{
				Key:   &Identifier{Name: mangleIdentifier(caseSym.Name)},
				Value: val,
			})
		default:
			return nil, &HQLSyntaxError{Message: "enum case must be a symbol or (name value)", Location: c.GetSourceLocation()}
		}
	}
	decl := &VariableDeclaration{
		irBase: irBase{Loc: l.GetSourceLocation()},
		Kind:   VarConst,
		Declarations: []VariableDeclarator{{
			Id:   &Identifier{Name: mangleIdentifier(nameSym.Name), OriginalName: nameSym.Name},
			Init: maybeDeepFreeze(obj),
		}},
	}
	return decl, nil
}
