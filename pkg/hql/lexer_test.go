package hql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lex := NewLexer("test.hql", src)
	var toks []Token
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		if tok.Kind == TokEOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestLexerBasicForms(t *testing.T) {
	toks := lexAll(t, `(+ 1 2.5 "hi" foo-bar)`)
	require.Len(t, toks, 7)
	assert.Equal(t, TokLParen, toks[0].Kind)
	assert.Equal(t, TokSymbol, toks[1].Kind)
	assert.Equal(t, "+", toks[1].Text)
	assert.Equal(t, TokNumber, toks[2].Kind)
	assert.Equal(t, NumInt, toks[2].NumSub)
	assert.Equal(t, TokNumber, toks[3].Kind)
	assert.Equal(t, NumFloat, toks[3].NumSub)
	assert.Equal(t, TokString, toks[4].Kind)
	assert.Equal(t, TokSymbol, toks[5].Kind)
	assert.Equal(t, "foo-bar", toks[5].Text)
	assert.Equal(t, TokRParen, toks[6].Kind)
}

func TestLexerNegativeNumberVsSymbol(t *testing.T) {
	toks := lexAll(t, `(-1 -foo)`)
	assert.Equal(t, TokNumber, toks[1].Kind)
	assert.Equal(t, "-1", toks[1].Text)
	assert.Equal(t, TokSymbol, toks[2].Kind)
	assert.Equal(t, "-foo", toks[2].Text)
}

func TestLexerBigIntSuffix(t *testing.T) {
	toks := lexAll(t, `10n`)
	require.Len(t, toks, 1)
	assert.Equal(t, NumBigInt, toks[0].NumSub)
	assert.Equal(t, "10n", toks[0].Text)
}

func TestLexerHexNumber(t *testing.T) {
	toks := lexAll(t, `0xFF`)
	require.Len(t, toks, 1)
	assert.Equal(t, NumHex, toks[0].NumSub)
}

func TestLexerQuasiquoteVsTemplateString(t *testing.T) {
	toks := lexAll(t, "`hello`")
	require.Len(t, toks, 1)
	assert.Equal(t, TokTemplateString, toks[0].Kind)

	toks = lexAll(t, "`x ${1}`")
	require.Len(t, toks, 1)
	assert.Equal(t, TokTemplateString, toks[0].Kind)

	toks = lexAll(t, "`(x 1)")
	require.Len(t, toks, 5)
	assert.Equal(t, TokQuasiquote, toks[0].Kind)
}

func TestLexerLineComments(t *testing.T) {
	toks := lexAll(t, "; a comment\n(+ 1 1) ; trailing")
	require.Len(t, toks, 5)
	assert.Equal(t, TokLParen, toks[0].Kind)
}

func TestLexerReaderMacroPrefixes(t *testing.T) {
	toks := lexAll(t, "'x ~y ~@z")
	require.Len(t, toks, 6)
	assert.Equal(t, TokQuote, toks[0].Kind)
	assert.Equal(t, TokUnquote, toks[2].Kind)
	assert.Equal(t, TokUnquoteSplicing, toks[4].Kind)
}
