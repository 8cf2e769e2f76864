package hql

// Walk methods below give every IR node the same per-node-type Walk
// convention SExp already uses (see sexp.go): each node visits itself
// first, and only descends into children if fn returns true. A nil
// IRNode or *BlockStatement is skipped silently so callers don't need
// to nil-check optional fields (e.g. IfStatement.Alternate).

func walkNode(n IRNode, fn func(IRNode) bool) {
	if n == nil {
		return
	}
	n.Walk(fn)
}

func walkBlock(b *BlockStatement, fn func(IRNode) bool) {
	if b == nil {
		return
	}
	b.Walk(fn)
}

func (n *Identifier) Walk(fn func(IRNode) bool) { fn(n) }
func (n *NumericLiteral) Walk(fn func(IRNode) bool) { fn(n) }
func (n *StringLiteral) Walk(fn func(IRNode) bool) { fn(n) }
func (n *BoolLiteral) Walk(fn func(IRNode) bool) { fn(n) }
func (n *NullLiteral) Walk(fn func(IRNode) bool) { fn(n) }
func (n *BreakStatement) Walk(fn func(IRNode) bool) { fn(n) }
func (n *ContinueStatement) Walk(fn func(IRNode) bool) { fn(n) }

func (n *ArrayExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, el := range n.Elements {
		walkNode(el, fn)
	}
}

func (n *ObjectExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, p := range n.Properties {
		walkNode(p.Key, fn)
		walkNode(p.Value, fn)
	}
}

func (n *MemberExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Object, fn)
	walkNode(n.Property, fn)
}

func (n *SpreadElement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Argument, fn)
}

func (n *CallExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Callee, fn)
	for _, a := range n.Arguments {
		walkNode(a, fn)
	}
}

func (n *NewExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Callee, fn)
	for _, a := range n.Arguments {
		walkNode(a, fn)
	}
}

func (n *BinaryExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Left, fn)
	walkNode(n.Right, fn)
}

func (n *LogicalExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Left, fn)
	walkNode(n.Right, fn)
}

func (n *UnaryExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Argument, fn)
}

func (n *AssignmentExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Target, fn)
	walkNode(n.Value, fn)
}

func (n *ConditionalExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Test, fn)
	walkNode(n.Consequent, fn)
	walkNode(n.Alternate, fn)
}

func (n *SequenceExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, e := range n.Expressions {
		walkNode(e, fn)
	}
}

func (n *TemplateLiteral) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, e := range n.Expressions {
		walkNode(e, fn)
	}
}

func (n *ArrowFunctionExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, p := range n.Params {
		walkNode(p, fn)
	}
	walkNode(n.RestParam, fn)
	walkNode(n.Body, fn)
}

func (n *FunctionExpression) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, p := range n.Params {
		walkNode(p, fn)
	}
	walkNode(n.RestParam, fn)
	walkBlock(n.Body, fn)
}

func (n *AssignmentPattern) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Target, fn)
	walkNode(n.Default, fn)
}

func (n *BlockStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, s := range n.Body {
		walkNode(s, fn)
	}
}

func (n *ExpressionStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Expression, fn)
}

func (n *VariableDeclaration) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, d := range n.Declarations {
		walkNode(d.Id, fn)
		walkNode(d.Init, fn)
	}
}

func (n *FunctionDeclaration) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, p := range n.Params {
		walkNode(p, fn)
	}
	walkNode(n.RestParam, fn)
	walkBlock(n.Body, fn)
}

func (n *ReturnStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Argument, fn)
}

func (n *IfStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Test, fn)
	walkNode(n.Consequent, fn)
	walkNode(n.Alternate, fn)
}

func (n *WhileStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Test, fn)
	walkBlock(n.Body, fn)
}

func (n *ForOfStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Id, fn)
	walkNode(n.Right, fn)
	walkBlock(n.Body, fn)
}

func (n *ThrowStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Argument, fn)
}

func (n *TryStatement) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkBlock(n.Block, fn)
	if n.Handler != nil {
		walkNode(n.Handler.Param, fn)
		walkBlock(n.Handler.Body, fn)
	}
	walkBlock(n.Finally, fn)
}

func (n *ClassDeclaration) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.SuperClass, fn)
	for _, p := range n.Properties {
		walkNode(p.Key, fn)
		walkNode(p.Value, fn)
	}
	for _, m := range n.Methods {
		walkNode(m.Key, fn)
		for _, p := range m.Params {
			walkNode(p, fn)
		}
		walkNode(m.RestParam, fn)
		walkBlock(m.Body, fn)
	}
}

func (n *ImportDeclaration) Walk(fn func(IRNode) bool) { fn(n) }

func (n *ExportNamedDeclaration) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Declaration, fn)
}

func (n *ExportDefaultDeclaration) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	walkNode(n.Declaration, fn)
}

func (n *Program) Walk(fn func(IRNode) bool) {
	if !fn(n) {
		return
	}
	for _, s := range n.Body {
		walkNode(s, fn)
	}
}
