package hql

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspileSimpleFunction(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn add [a b] (+ a b))
`, TranspileOptions{File: "add.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "function add(a, b)")
	assert.Contains(t, result.Code, "return a + b")
	assert.Empty(t, result.Diagnostics)
}

func TestTranspileTailRecursiveFunctionBecomesWhileLoop(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn countdown [n]
  (if (<= n 0)
    n
    (countdown (- n 1))))
`, TranspileOptions{File: "countdown.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "while (true)")
	assert.NotContains(t, result.Code, "countdown(n - 1)")
}

func TestTranspileExpandsUserMacroBody(t *testing.T) {
	result, err := Transpile(context.Background(), "(macro twice [x] `(+ ~x ~x))\n(fn double [n] (twice n))", TranspileOptions{File: "macro.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "n + n")
}

func TestTranspileExportsMacrosForImporter(t *testing.T) {
	result, err := Transpile(context.Background(), "(macro square [x] `(* ~x ~x))", TranspileOptions{File: "lib.hql"})
	require.NoError(t, err)
	require.NotNil(t, result.ExportedMacros)
	_, ok := result.ExportedMacros.Lookup("square")
	assert.True(t, ok)
}

func TestTranspileWithSourceMap(t *testing.T) {
	result, err := Transpile(context.Background(), `(fn id [x] x)`, TranspileOptions{File: "id.hql", SourceMap: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SourceMap)
	assert.True(t, strings.Contains(string(result.SourceMap), `"version":3`))
}

func TestTranspileUnknownCallLeftToRuntime(t *testing.T) {
	_, err := Transpile(context.Background(), `(totally-unknown-fn 1 2)`, TranspileOptions{File: "bad.hql"})
	// undefined-symbol detection is a macro-expansion-time concern only
	// for macro calls; a plain unresolved call is left to the emitted
	// JS's own runtime, so this asserts transpilation still succeeds
	// and simply emits a call expression.
	require.NoError(t, err)
}

func TestTranspileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Transpile(ctx, `(macro noop [] nil) (noop)`, TranspileOptions{File: "cancel.hql"})
	require.Error(t, err)
}
