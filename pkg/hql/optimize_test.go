package hql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailCallOptimizeRewritesSelfCall(t *testing.T) {
	// fn countdown(n) { if (n <= 0) { return n; } return countdown(n - 1); }
	params := []IRNode{&Identifier{Name: "n"}}
	body := &BlockStatement{Body: []IRNode{
		&IfStatement{
			Test:       &BinaryExpression{Operator: "<=", Left: &Identifier{Name: "n"}, Right: &NumericLiteral{IsInt: true, IntVal: 0}},
			Consequent: &BlockStatement{Body: []IRNode{&ReturnStatement{Argument: &Identifier{Name: "n"}}}},
		},
		&ReturnStatement{Argument: &CallExpression{
			Callee:    &Identifier{Name: "countdown"},
			Arguments: []IRNode{&BinaryExpression{Operator: "-", Left: &Identifier{Name: "n"}, Right: &NumericLiteral{IsInt: true, IntVal: 1}}},
		}},
	}}

	o := NewOptimizer()
	o.tailCallOptimize("countdown", params, body)

	require.Len(t, body.Body, 1)
	ws, ok := body.Body[0].(*WhileStatement)
	require.True(t, ok)
	last := ws.Body.Body[len(ws.Body.Body)-1]
	_, isContinue := last.(*ContinueStatement)
	assert.True(t, isContinue)
}

func TestTailCallOptimizeSkipsNonRecursiveFunction(t *testing.T) {
	params := []IRNode{&Identifier{Name: "n"}}
	body := &BlockStatement{Body: []IRNode{
		&ReturnStatement{Argument: &BinaryExpression{Operator: "+", Left: &Identifier{Name: "n"}, Right: &NumericLiteral{IsInt: true, IntVal: 1}}},
	}}
	original := body.Body[0]

	o := NewOptimizer()
	o.tailCallOptimize("increment", params, body)

	assert.Same(t, original, body.Body[0])
}

func TestReferencesIdentifierWalksNestedNodes(t *testing.T) {
	prog := &Program{Body: []IRNode{
		&ExpressionStatement{Expression: &CallExpression{
			Callee:    &Identifier{Name: "outer"},
			Arguments: []IRNode{&ArrayExpression{Elements: []IRNode{&Identifier{Name: "target"}}}},
		}},
	}}
	assert.True(t, referencesIdentifier(prog, "target"))
	assert.False(t, referencesIdentifier(prog, "missing"))
}
