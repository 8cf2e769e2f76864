package hql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCall(t *testing.T) {
	result, err := Parse("t.hql", `(+ 1 2)`)
	require.NoError(t, err)
	require.Len(t, result.Forms, 1)
	l, ok := result.Forms[0].(*List)
	require.True(t, ok)
	assert.Equal(t, KindList, l.Kind)
	assert.Len(t, l.Elements, 3)
}

func TestParseVectorSugar(t *testing.T) {
	result, err := Parse("t.hql", `[1 2 3]`)
	require.NoError(t, err)
	l := result.Forms[0].(*List)
	assert.Equal(t, KindVector, l.Kind)
	head, ok := l.HeadSymbol()
	require.True(t, ok)
	assert.Equal(t, "vector", head)
}

func TestParseMapSugarOddPayloadErrors(t *testing.T) {
	_, err := Parse("t.hql", `{:a 1 :b}`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ParseOddMapPayload, perr.Kind)
}

func TestParseQuoteSugar(t *testing.T) {
	result, err := Parse("t.hql", `'(1 2)`)
	require.NoError(t, err)
	l := result.Forms[0].(*List)
	head, ok := l.HeadSymbol()
	require.True(t, ok)
	assert.Equal(t, "quote", head)
}

func TestParseNilTrueFalseAreLiterals(t *testing.T) {
	result, err := Parse("t.hql", `(nil true false)`)
	require.NoError(t, err)
	l := result.Forms[0].(*List)
	for _, el := range l.Elements {
		_, isLiteral := el.(*Literal)
		assert.True(t, isLiteral)
	}
}

func TestParseEmptyInputErrors(t *testing.T) {
	_, err := Parse("t.hql", `   `)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ParseEmptyInput, perr.Kind)
}

func TestParseUnbalancedDelimiters(t *testing.T) {
	_, err := Parse("t.hql", `(+ 1 2`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ParseUnbalanced, perr.Kind)
}

func TestParseTemplateString(t *testing.T) {
	result, err := Parse("t.hql", "`total: ${x}`")
	require.NoError(t, err)
	l := result.Forms[0].(*List)
	head, ok := l.HeadSymbol()
	require.True(t, ok)
	assert.Equal(t, "template-string", head)
}

func TestRenderRoundTrip(t *testing.T) {
	for _, src := range []string{
		`(+ 1 2)`,
		`[1 2 3]`,
		`#{1 2}`,
		`'x`,
		"`x",
	} {
		result, err := Parse("t.hql", src)
		require.NoError(t, err, src)
		require.Len(t, result.Forms, 1)
		assert.Equal(t, src, Render(result.Forms[0]), src)
	}
}
