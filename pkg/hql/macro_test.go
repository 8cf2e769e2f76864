package hql

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMacroRegistryDefineAndLookup(t *testing.T) {
	reg := NewMacroRegistry()
	def := &MacroDef{Name: "twice", Params: []string{"x"}, Env: NewBuiltinEnv()}
	reg.Define(def)

	got, ok := reg.Lookup("twice")
	require.True(t, ok)
	assert.Same(t, def, got)
	assert.Equal(t, []string{"twice"}, reg.Names())
}

func TestMacroRegistryDefinePreservesInsertionOrderOnRedefine(t *testing.T) {
	reg := NewMacroRegistry()
	reg.Define(&MacroDef{Name: "a"})
	reg.Define(&MacroDef{Name: "b"})
	reg.Define(&MacroDef{Name: "a"})
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestMacroRegistryMergeCopiesEntries(t *testing.T) {
	a := NewMacroRegistry()
	a.Define(&MacroDef{Name: "from-a"})

	b := NewMacroRegistry()
	b.Define(&MacroDef{Name: "from-b"})
	b.Merge(a)

	_, ok := b.Lookup("from-a")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"from-b", "from-a"}, b.Names())
}

func TestMacroRegistryMergeNilIsNoop(t *testing.T) {
	reg := NewMacroRegistry()
	reg.Define(&MacroDef{Name: "a"})
	reg.Merge(nil)
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestMacroRegistryMarshalJSON(t *testing.T) {
	reg := NewMacroRegistry()
	reg.Define(&MacroDef{Name: "square", Params: []string{"x"}, Body: []SExp{SynthSymbol("x")}})

	raw, err := json.Marshal(reg)
	require.NoError(t, err)

	var snapshots []macroRegistrySnapshot
	require.NoError(t, json.Unmarshal(raw, &snapshots))
	require.Len(t, snapshots, 1)
	assert.Equal(t, "square", snapshots[0].Name)
	assert.Equal(t, []string{"x"}, snapshots[0].Params)
}

func TestExpanderExpandsMacroCall(t *testing.T) {
	result, err := Parse("t.hql", "(macro twice [x] `(+ ~x ~x)) (twice n)")
	require.NoError(t, err)
	require.Len(t, result.Forms, 2)

	interp := NewInterpreter()
	ex := NewExpander(interp)
	expanded, err := ex.ExpandAll(context.Background(), result.Forms)
	require.NoError(t, err)
	require.Len(t, expanded, 2)

	l, ok := expanded[1].(*List)
	require.True(t, ok)
	head, ok := l.HeadSymbol()
	require.True(t, ok)
	assert.Equal(t, "+", head)
	assert.Equal(t, "n", l.Elements[1].(*Symbol).Name)
	assert.Equal(t, "n", l.Elements[2].(*Symbol).Name)
}

func TestExpanderDetectsExpansionDepthLimit(t *testing.T) {
	result, err := Parse("t.hql", "(macro loopy [] `(loopy)) (loopy)")
	require.NoError(t, err)

	interp := NewInterpreter()
	ex := NewExpander(interp)
	_, err = ex.ExpandAll(context.Background(), result.Forms)
	require.Error(t, err)
	var limitErr *MacroExpansionLimit
	require.ErrorAs(t, err, &limitErr)
}

func TestExpanderRespectsCancellation(t *testing.T) {
	result, err := Parse("t.hql", `(+ 1 2)`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	interp := NewInterpreter()
	ex := NewExpander(interp)
	_, err = ex.ExpandAll(ctx, result.Forms)
	require.Error(t, err)
	var cancelled *CancelledError
	require.ErrorAs(t, err, &cancelled)
}
