package hql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvalVarDefinesInCurrentScope exercises `(var name value)` at
// macro-evaluation time: it must define name in the env it was given
// (no new child scope, unlike `let`) and return the value.
func TestEvalVarDefinesInCurrentScope(t *testing.T) {
	read, err := Parse("t.hql", "(do (var x 5) x)")
	require.NoError(t, err)
	require.Len(t, read.Forms, 1)

	it := NewInterpreter()
	env := NewBuiltinEnv()
	result, err := it.Eval(context.Background(), read.Forms[0], env)
	require.NoError(t, err)

	num, ok := result.(NumberValue)
	require.True(t, ok)
	assert.Equal(t, int64(5), num.IntVal)

	// defined directly in env, not a child scope created by var itself
	defined, ok := env.lookupDirect("x")
	require.True(t, ok)
	assert.Equal(t, result, defined)
}

func TestEvalVarRejectsWrongArity(t *testing.T) {
	read, err := Parse("t.hql", "(var x)")
	require.NoError(t, err)

	it := NewInterpreter()
	env := NewBuiltinEnv()
	_, err = it.Eval(context.Background(), read.Forms[0], env)
	require.Error(t, err)
	var arityErr *ArityError
	require.ErrorAs(t, err, &arityErr)
}

func TestEvalVarRejectsNonSymbolName(t *testing.T) {
	read, err := Parse("t.hql", `(var 5 5)`)
	require.NoError(t, err)

	it := NewInterpreter()
	env := NewBuiltinEnv()
	_, err = it.Eval(context.Background(), read.Forms[0], env)
	require.Error(t, err)
	var syntaxErr *HQLSyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}
