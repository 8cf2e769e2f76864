package hql

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// symbolRune reports whether r may appear inside a symbol token.
func symbolRune(r rune) bool {
	switch r {
	case '-', '?', '!', '*', '/', '.', '<', '>', '=', ':', '&', '+', '%', '^', '~', '|':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isDelimiter(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '{', '}', '\'', '`', ',', ';', '"':
		return true
	}
	return unicode.IsSpace(r)
}

// Lexer scans a UTF-8 source string into a Token stream. Besides its
// forward cursor it keeps at most one peeked token of lookahead, and it
// recognizes multi-character openers itself (e.g. `#{` is emitted as a
// single token).
type Lexer struct {
	file   string
	src    string
	pos    int // byte offset
	line   int
	col    int
	peeked *Token
}

// NewLexer creates a lexer over src, attributing all positions to file
// (used only for error messages and source maps).
func NewLexer(file, src string) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1}
}

func (l *Lexer) here() SourcePosition {
	return SourcePosition{Line: l.line, Column: l.col, ByteOffset: l.pos}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) peekRune() (rune, int) {
	if l.eof() {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	return r, size
}

func (l *Lexer) advance() rune {
	r, size := l.peekRune()
	if size == 0 {
		return 0
	}
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.eof() {
		r, _ := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == ';':
			for !l.eof() {
				if r, _ := l.peekRune(); r == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.scan()
	if err != nil {
		return tok, err
	}
	l.peeked = &tok
	return tok, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.scan()
}

func (l *Lexer) scan() (Token, error) {
	l.skipWhitespaceAndComments()
	start := l.here()
	if l.eof() {
		return Token{Kind: TokEOF, Start: start, End: start}, nil
	}

	r, _ := l.peekRune()
	switch r {
	case '(':
		l.advance()
		return Token{Kind: TokLParen, Text: "(", Start: start, End: l.here()}, nil
	case ')':
		l.advance()
		return Token{Kind: TokRParen, Text: ")", Start: start, End: l.here()}, nil
	case '[':
		l.advance()
		return Token{Kind: TokLBracket, Text: "[", Start: start, End: l.here()}, nil
	case ']':
		l.advance()
		return Token{Kind: TokRBracket, Text: "]", Start: start, End: l.here()}, nil
	case '{':
		l.advance()
		return Token{Kind: TokLBrace, Text: "{", Start: start, End: l.here()}, nil
	case '}':
		l.advance()
		return Token{Kind: TokRBrace, Text: "}", Start: start, End: l.here()}, nil
	case '\'':
		l.advance()
		return Token{Kind: TokQuote, Text: "'", Start: start, End: l.here()}, nil
	case '`':
		return l.scanBacktick(start)
	case '~':
		l.advance()
		if next, _ := l.peekRune(); next == '@' {
			l.advance()
			return Token{Kind: TokUnquoteSplicing, Text: "~@", Start: start, End: l.here()}, nil
		}
		return Token{Kind: TokUnquote, Text: "~", Start: start, End: l.here()}, nil
	case '#':
		l.advance()
		if next, _ := l.peekRune(); next == '{' {
			l.advance()
			return Token{Kind: TokHashBrace, Text: "#{", Start: start, End: l.here()}, nil
		}
		return Token{}, &LexError{Kind: LexInvalidNumber, Location: l.span(start), Detail: "expected '{' after '#'"}
	case '"':
		return l.scanString(start)
	}

	if r == '-' || unicode.IsDigit(r) {
		if tok, ok, err := l.tryScanNumber(start); ok || err != nil {
			return tok, err
		}
	}
	return l.scanSymbol(start)
}

func (l *Lexer) span(start SourcePosition) *SourceLocation {
	end := l.here()
	return &SourceLocation{File: l.file, Start: start, End: end, Length: max(1, end.ByteOffset-start.ByteOffset)}
}

// tryScanNumber attempts to lex a number token starting at the current
// position. A leading '-' only starts a number when followed immediately
// by a digit; the caller only reaches here after whitespace/delimiter,
// so we just additionally require a digit to follow the sign. Returns
// ok=false (no error) when the input
// at this position is not actually a number, so the caller falls back to
// scanSymbol (this lets symbols like "-foo" or "->" lex correctly).
func (l *Lexer) tryScanNumber(start SourcePosition) (Token, bool, error) {
	save := *l
	neg := false
	if r, _ := l.peekRune(); r == '-' {
		l.advance()
		neg = true
	}
	if r, _ := l.peekRune(); !unicode.IsDigit(r) {
		*l = save
		return Token{}, false, nil
	}

	// hex literal
	if r, _ := l.peekRune(); r == '0' {
		peekPos := l.pos + 1
		if peekPos < len(l.src) && (l.src[peekPos] == 'x' || l.src[peekPos] == 'X') {
			l.advance() // 0
			l.advance() // x
			digitsStart := l.pos
			for {
				r, _ := l.peekRune()
				if !isHexDigit(r) {
					break
				}
				l.advance()
			}
			if l.pos == digitsStart {
				loc := l.span(start)
				return Token{}, true, &LexError{Kind: LexInvalidNumber, Location: loc, Detail: "hex literal has no digits"}
			}
			text := l.src[start.ByteOffset:l.pos]
			return Token{Kind: TokNumber, Text: text, NumSub: NumHex, Start: start, End: l.here()}, true, nil
		}
	}

	for {
		r, _ := l.peekRune()
		if !unicode.IsDigit(r) {
			break
		}
		l.advance()
	}

	isFloat := false
	if r, _ := l.peekRune(); r == '.' {
		peekPos := l.pos + 1
		if peekPos < len(l.src) && isASCIIDigit(l.src[peekPos]) {
			isFloat = true
			l.advance() // .
			for {
				r, _ := l.peekRune()
				if !unicode.IsDigit(r) {
					break
				}
				l.advance()
			}
		}
	}

	isBigInt := false
	if !isFloat {
		if r, _ := l.peekRune(); r == 'n' {
			// only a BigInt suffix if not immediately followed by more
			// symbol characters (otherwise this is a symbol like "5neg")
			peekPos := l.pos + 1
			if peekPos >= len(l.src) || !symbolRune(rune(l.src[peekPos])) {
				isBigInt = true
				l.advance()
			}
		}
	}

	// If what follows is still a symbol character, this wasn't a clean
	// number token (e.g. "1st") -- bail out to scanSymbol.
	if r, _ := l.peekRune(); symbolRune(r) && !isDelimiter(r) {
		*l = save
		return Token{}, false, nil
	}

	text := l.src[start.ByteOffset:l.pos]
	_ = neg
	switch {
	case isBigInt:
		return Token{Kind: TokNumber, Text: text, NumSub: NumBigInt, Start: start, End: l.here()}, true, nil
	case isFloat:
		return Token{Kind: TokNumber, Text: text, NumSub: NumFloat, Start: start, End: l.here()}, true, nil
	default:
		return Token{Kind: TokNumber, Text: text, NumSub: NumInt, Start: start, End: l.here()}, true, nil
	}
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *Lexer) scanSymbol(start SourcePosition) (Token, error) {
	for {
		r, _ := l.peekRune()
		if r == 0 || !symbolRune(r) {
			break
		}
		l.advance()
	}
	if l.pos == start.ByteOffset {
		loc := l.span(start)
		return Token{}, &LexError{Kind: LexInvalidNumber, Location: loc, Detail: "unexpected character"}
	}
	text := l.src[start.ByteOffset:l.pos]
	// NFC-normalize so visually identical identifiers compare equal
	// regardless of combining-vs-precomposed Unicode form.
	text = norm.NFC.String(text)
	return Token{Kind: TokSymbol, Text: text, Start: start, End: l.here()}, nil
}

// scanBacktick disambiguates the two meanings of a leading backtick: the
// quasiquote reader-macro prefix (a lone backtick
// followed by a single ordinary form) versus a delimited JS-style
// template-string literal (`` `text ${expr}` ``). Both begin with the
// same byte, so the lexer greedily attempts to find a matching,
// escape-aware closing backtick -- tracking `${...}` nesting depth so a
// `}` inside an interpolation doesn't prematurely end the scan -- and
// only commits to TokTemplateString if one is found before EOF or a
// blank line (quasiquoted forms never span a blank line in practice,
// and capping the lookahead keeps a stray unmatched backtick from
// swallowing the rest of the file as "one template string"). Anything
// else rewinds to just past the opening backtick and yields the
// single-character TokQuasiquote.
func (l *Lexer) scanBacktick(start SourcePosition) (Token, error) {
	save := *l
	l.advance() // opening backtick
	var b strings.Builder
	braceDepth := 0
	for {
		if l.eof() {
			*l = save
			l.advance()
			return Token{Kind: TokQuasiquote, Text: "`", Start: start, End: l.here()}, nil
		}
		r, _ := l.peekRune()
		if r == '\n' && braceDepth == 0 {
			*l = save
			l.advance()
			return Token{Kind: TokQuasiquote, Text: "`", Start: start, End: l.here()}, nil
		}
		if r == '\\' {
			l.advance()
			if !l.eof() {
				b.WriteRune(l.advance())
			}
			continue
		}
		if r == '$' {
			peekPos := l.pos + 1
			if peekPos < len(l.src) && l.src[peekPos] == '{' {
				braceDepth++
			}
		}
		if r == '}' && braceDepth > 0 {
			braceDepth--
		}
		if r == '`' && braceDepth == 0 {
			l.advance()
			return Token{Kind: TokTemplateString, Text: b.String(), Start: start, End: l.here()}, nil
		}
		b.WriteRune(r)
		l.advance()
	}
}

func (l *Lexer) scanString(start SourcePosition) (Token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.eof() {
			return Token{}, &LexError{Kind: LexUnterminated, Location: l.span(start), Detail: "unterminated string"}
		}
		r, _ := l.peekRune()
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc, err := l.scanEscape(start)
			if err != nil {
				return Token{}, err
			}
			b.WriteString(esc)
			continue
		}
		b.WriteRune(r)
		l.advance()
	}
	return Token{Kind: TokString, Text: b.String(), Start: start, End: l.here()}, nil
}

func (l *Lexer) scanEscape(literalStart SourcePosition) (string, error) {
	if l.eof() {
		return "", &LexError{Kind: LexInvalidEscape, Location: l.span(literalStart), Detail: "dangling escape at end of input"}
	}
	r := l.advance()
	switch r {
	case 'n':
		return "\n", nil
	case 't':
		return "\t", nil
	case '"':
		return "\"", nil
	case '\\':
		return "\\", nil
	case 'x':
		return l.scanHexEscape(2, literalStart)
	case 'u':
		if next, _ := l.peekRune(); next == '{' {
			l.advance()
			start := l.pos
			for {
				r, _ := l.peekRune()
				if r == '}' {
					break
				}
				if !isHexDigit(r) {
					return "", &LexError{Kind: LexInvalidEscape, Location: l.span(literalStart), Detail: `invalid \u{...} escape`}
				}
				l.advance()
			}
			hexDigits := l.src[start:l.pos]
			l.advance() // closing }
			return decodeHexRune(hexDigits, literalStart, l)
		}
		return l.scanHexEscape(4, literalStart)
	default:
		return "", &LexError{Kind: LexInvalidEscape, Location: l.span(literalStart), Detail: "unknown escape character"}
	}
}

func (l *Lexer) scanHexEscape(n int, literalStart SourcePosition) (string, error) {
	start := l.pos
	for i := 0; i < n; i++ {
		r, _ := l.peekRune()
		if !isHexDigit(r) {
			return "", &LexError{Kind: LexInvalidEscape, Location: l.span(literalStart), Detail: "incomplete hex escape"}
		}
		l.advance()
	}
	return decodeHexRune(l.src[start:l.pos], literalStart, l)
}

func decodeHexRune(hexDigits string, literalStart SourcePosition, l *Lexer) (string, error) {
	v, err := strconv.ParseUint(hexDigits, 16, 32)
	if err != nil {
		return "", &LexError{Kind: LexInvalidEscape, Location: l.span(literalStart), Detail: "invalid hex escape digits"}
	}
	return string(rune(v)), nil
}
