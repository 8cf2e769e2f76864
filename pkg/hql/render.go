package hql

import "strings"

// Render renders an SExp back to HQL source text, using the original
// bracket sugar recorded in List.Kind rather than always expanding to
// (vector ...)/(hash-map ...)/(hash-set ...). render(read(s)) is
// expected to be semantically equivalent to s.
func Render(n SExp) string {
	var b strings.Builder
	renderInto(&b, n)
	return b.String()
}

// RenderAll renders a sequence of top-level forms, one per line.
func RenderAll(forms []SExp) string {
	parts := make([]string, len(forms))
	for i, f := range forms {
		parts[i] = Render(f)
	}
	return strings.Join(parts, "\n")
}

func renderInto(b *strings.Builder, n SExp) {
	switch v := n.(type) {
	case *Literal:
		b.WriteString(v.Value.String())
	case *Symbol:
		b.WriteString(v.Name)
	case *List:
		renderList(b, v)
	default:
		b.WriteString("<unknown>")
	}
}

func renderList(b *strings.Builder, l *List) {
	switch l.Kind {
	case KindVector:
		renderSeq(b, "[", "]", stripHead(l.Elements))
		return
	case KindMap:
		renderSeq(b, "{", "}", stripHead(l.Elements))
		return
	case KindSet:
		renderSeq(b, "#{", "}", stripHead(l.Elements))
		return
	}

	if head, ok := l.HeadSymbol(); ok && len(l.Elements) == 2 {
		switch head {
		case "quote":
			b.WriteString("'")
			renderInto(b, l.Elements[1])
			return
		case "quasiquote":
			b.WriteString("`")
			renderInto(b, l.Elements[1])
			return
		case "unquote":
			b.WriteString("~")
			renderInto(b, l.Elements[1])
			return
		case "unquote-splicing":
			b.WriteString("~@")
			renderInto(b, l.Elements[1])
			return
		}
	}

	renderSeq(b, "(", ")", l.Elements)
}

func stripHead(elements []SExp) []SExp {
	if len(elements) == 0 {
		return elements
	}
	return elements[1:]
}

func renderSeq(b *strings.Builder, open, close string, elements []SExp) {
	b.WriteString(open)
	for i, e := range elements {
		if i > 0 {
			b.WriteString(" ")
		}
		renderInto(b, e)
	}
	b.WriteString(close)
}
