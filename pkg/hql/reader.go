package hql

import (
	"fmt"
	"strconv"
	"strings"
)

// Reader converts a token stream into a tree of SExp. It keeps a
// running list of SoftErrors so the best-effort partial tree it returns
// alongside a fatal error can still serve an LSP collaborator, even
// though the normal compile driver treats any SoftError as fatal.
type Reader struct {
	file   string
	src    string
	lex    *Lexer
	soft   []*SoftError
}

// ReadResult is what Parse returns: the top-level forms parsed so far
// (possibly incomplete) plus any soft errors collected along the way.
type ReadResult struct {
	Forms []SExp
	Soft  []*SoftError
}

// Parse reads every top-level form out of src. On a hard parse error it
// still returns the partial ReadResult built so far, so the parser
// produces as much as possible for LSP use.
func Parse(file, src string) (ReadResult, error) {
	if err := checkBalance(file, src); err != nil {
		// Still attempt a best-effort parse; checkBalance's error is
		// returned only if the subsequent full parse also fails, so a
		// merely-trailing unclosed paren doesn't mask forms already read.
		r := &Reader{file: file, src: src, lex: NewLexer(file, src)}
		forms, perr := r.readForms()
		if perr != nil {
			return ReadResult{Forms: forms, Soft: r.soft}, err
		}
		return ReadResult{Forms: forms, Soft: r.soft}, nil
	}

	r := &Reader{file: file, src: src, lex: NewLexer(file, src)}
	forms, err := r.readForms()
	return ReadResult{Forms: forms, Soft: r.soft}, err
}

// checkBalance does a delimiter-balance pre-pass for early diagnostics.
// It does not try to produce a precise location for the first imbalance;
// readForms will do that during the real parse.
func checkBalance(file, src string) error {
	type opener struct {
		r    rune
		line int
		col  int
	}
	var stack []opener
	lex := NewLexer(file, src)
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil // let the real parse surface lex errors precisely
		}
		switch tok.Kind {
		case TokEOF:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				return &ParseError{
					Kind:     ParseUnbalanced,
					Location: &SourceLocation{File: file, Start: SourcePosition{Line: top.line, Column: top.col}},
					Detail:   fmt.Sprintf("unclosed %q", string(top.r)),
				}
			}
			return nil
		case TokLParen, TokLBracket, TokLBrace, TokHashBrace:
			stack = append(stack, opener{r: closerFor(tok.Kind), line: tok.Start.Line, col: tok.Start.Column})
		case TokRParen, TokRBracket, TokRBrace:
			if len(stack) == 0 {
				return &ParseError{Kind: ParseUnbalanced, Location: tok.Location(file), Detail: "unexpected closing delimiter"}
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func closerFor(k TokenKind) rune {
	switch k {
	case TokLParen:
		return ')'
	case TokLBracket:
		return ']'
	case TokLBrace, TokHashBrace:
		return '}'
	default:
		return 0
	}
}

func (r *Reader) readForms() ([]SExp, error) {
	var forms []SExp
	for {
		tok, err := r.lex.Peek()
		if err != nil {
			return forms, err
		}
		if tok.Kind == TokEOF {
			break
		}
		form, err := r.readForm()
		if err != nil {
			return forms, err
		}
		forms = append(forms, form)
	}
	if len(forms) == 0 {
		return forms, &ParseError{Kind: ParseEmptyInput}
	}
	return forms, nil
}

func (r *Reader) readForm() (SExp, error) {
	tok, err := r.lex.Next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokEOF:
		return nil, &ParseError{Kind: ParseUnbalanced, Location: tok.Location(r.file), Detail: "unexpected end of input"}
	case TokLParen:
		return r.readSeq(tok, TokRParen, KindList)
	case TokLBracket:
		return r.readSeq(tok, TokRBracket, KindVector)
	case TokLBrace:
		return r.readMap(tok)
	case TokHashBrace:
		return r.readSeq(tok, TokRBrace, KindSet)
	case TokRParen, TokRBracket, TokRBrace:
		return nil, &ParseError{Kind: ParseUnbalanced, Location: tok.Location(r.file), Detail: "unexpected closing delimiter"}
	case TokQuote:
		return r.readWrapped(tok, "quote")
	case TokQuasiquote:
		return r.readWrapped(tok, "quasiquote")
	case TokUnquote:
		return r.readWrapped(tok, "unquote")
	case TokUnquoteSplicing:
		return r.readWrapped(tok, "unquote-splicing")
	case TokString:
		return NewLiteral(StringScalar(tok.Text), tok.Location(r.file)), nil
	case TokTemplateString:
		return r.readTemplate(tok)
	case TokNumber:
		return r.readNumber(tok)
	case TokSymbol:
		return r.readSymbolOrLiteral(tok)
	default:
		return nil, &ParseError{Kind: ParseUnbalanced, Location: tok.Location(r.file), Detail: "unrecognized token"}
	}
}

func (r *Reader) readWrapped(tok Token, head string) (SExp, error) {
	inner, err := r.readForm()
	if err != nil {
		return nil, err
	}
	loc := tok.Location(r.file).Join(inner.GetSourceLocation())
	return NewList([]SExp{NewSymbol(head, tok.Location(r.file)), inner}, KindList, loc), nil
}

func (r *Reader) readSeq(open Token, close TokenKind, kind ListKind) (SExp, error) {
	var elements []SExp
	for {
		tok, err := r.lex.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == close {
			r.lex.Next()
			loc := open.Location(r.file).Join(tok.Location(r.file))
			return wrapReaderSugar(elements, kind, loc), nil
		}
		if tok.Kind == TokEOF {
			return nil, &ParseError{Kind: ParseUnbalanced, Location: open.Location(r.file), Detail: fmt.Sprintf("unclosed %q", open.Text)}
		}
		el, err := r.readForm()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
}

func (r *Reader) readMap(open Token) (SExp, error) {
	var elements []SExp
	for {
		tok, err := r.lex.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokRBrace {
			r.lex.Next()
			loc := open.Location(r.file).Join(tok.Location(r.file))
			if len(elements)%2 != 0 {
				return nil, &ParseError{Kind: ParseOddMapPayload, Location: loc}
			}
			return wrapReaderSugar(elements, KindMap, loc), nil
		}
		if tok.Kind == TokEOF {
			return nil, &ParseError{Kind: ParseUnbalanced, Location: open.Location(r.file), Detail: "unclosed '{'"}
		}
		el, err := r.readForm()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
}

// wrapReaderSugar desugars vector/map/set literal syntax into the
// canonical (vector ...), (hash-map ...), (hash-set ...) list forms,
// preserving Kind so formatting/diagnostics can still print the
// original bracket form.
func wrapReaderSugar(elements []SExp, kind ListKind, loc *SourceLocation) SExp {
	switch kind {
	case KindVector:
		head := []SExp{NewSymbol("vector", loc)}
		return NewList(append(head, elements...), KindVector, loc)
	case KindMap:
		head := []SExp{NewSymbol("hash-map", loc)}
		return NewList(append(head, elements...), KindMap, loc)
	case KindSet:
		head := []SExp{NewSymbol("hash-set", loc)}
		return NewList(append(head, elements...), KindSet, loc)
	default:
		return NewList(elements, KindList, loc)
	}
}

func (r *Reader) readNumber(tok Token) (SExp, error) {
	loc := tok.Location(r.file)
	switch tok.NumSub {
	case NumHex:
		digits := tok.Text[2:] // strip "0x"
		v, err := strconv.ParseInt(digits, 16, 64)
		if err != nil {
			return nil, &ParseError{Kind: ParseDotInvalid, Location: loc, Detail: "invalid hex literal"}
		}
		return NewLiteral(IntScalar(v), loc), nil
	case NumBigInt:
		digits := strings.TrimSuffix(tok.Text, "n")
		return NewLiteral(BigIntScalar(digits), loc), nil
	case NumFloat:
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{Kind: ParseDotInvalid, Location: loc, Detail: "invalid float literal"}
		}
		return NewLiteral(FloatScalar(v), loc), nil
	default:
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, &ParseError{Kind: ParseDotInvalid, Location: loc, Detail: "invalid integer literal"}
		}
		return NewLiteral(IntScalar(v), loc), nil
	}
}

// readSymbolOrLiteral resolves the three symbol-shaped literals
// (nil/true/false) to Literal nodes -- the reader never produces them
// as symbols -- and everything else to a Symbol.
func (r *Reader) readSymbolOrLiteral(tok Token) (SExp, error) {
	loc := tok.Location(r.file)
	switch tok.Text {
	case "nil":
		return NewLiteral(NilScalar(), loc), nil
	case "true":
		return NewLiteral(BoolScalar(true), loc), nil
	case "false":
		return NewLiteral(BoolScalar(false), loc), nil
	}
	if strings.Contains(tok.Text, ".") && tok.Text != "." {
		if !validDotPathStart(tok.Text) {
			return nil, &ParseError{Kind: ParseDotInvalid, Location: loc, Detail: fmt.Sprintf("dot-path %q must begin with an identifier", tok.Text)}
		}
	}
	return NewSymbol(tok.Text, loc), nil
}

// validDotPathStart requires a dot-path's first segment to be a bare
// identifier, never a literal or punctuation-led token.
func validDotPathStart(text string) bool {
	first := strings.SplitN(text, ".", 2)[0]
	if first == "" {
		return false
	}
	r := rune(first[0])
	if r >= '0' && r <= '9' {
		return false
	}
	switch r {
	case '-', '+', '*', '/', '<', '>', '=', '&', '%', '^', '~', '|', ':':
		return false
	}
	return true
}

// readTemplate parses a backtick-delimited template string's raw text
// into a (template-string part...) form, alternating string Literal
// parts and nested expressions read from each ${...} interpolation,
// deferring their parse to an embedded sub-Reader.
func (r *Reader) readTemplate(tok Token) (SExp, error) {
	loc := tok.Location(r.file)
	elements := []SExp{NewSymbol("template-string", loc)}
	text := tok.Text
	i := 0
	for i < len(text) {
		j := strings.Index(text[i:], "${")
		if j < 0 {
			elements = append(elements, NewLiteral(StringScalar(text[i:]), loc))
			break
		}
		j += i
		if j > i {
			elements = append(elements, NewLiteral(StringScalar(text[i:j]), loc))
		}
		depth := 1
		k := j + 2
		for k < len(text) && depth > 0 {
			switch text[k] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth > 0 {
				k++
			}
		}
		if depth != 0 {
			return nil, &ParseError{Kind: ParseUnbalanced, Location: loc, Detail: "unterminated ${...} interpolation in template string"}
		}
		exprSrc := text[j+2 : k]
		sub := &Reader{file: r.file, src: exprSrc, lex: NewLexer(r.file, exprSrc)}
		expr, err := sub.readForm()
		if err != nil {
			return nil, err
		}
		elements = append(elements, expr)
		r.soft = append(r.soft, sub.soft...)
		i = k + 1
	}
	return NewList(elements, KindList, loc), nil
}
