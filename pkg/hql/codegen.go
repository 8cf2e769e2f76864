package hql

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeBuffer accumulates generated JS text while tracking line/column
// position so the code generator can record source mappings as it goes,
// rather than re-scanning the finished text afterward. Mirrors the
// indent-tracking string builder pkg/dang's render helpers use for
// their own code printers, generalized here with an explicit mapping
// sink.
type CodeBuffer struct {
	b        strings.Builder
	indent   int
	line     int
	col      int
	mappings []SourceMapping
	names    []string
	nameIdx  map[string]int
}

func NewCodeBuffer() *CodeBuffer {
	return &CodeBuffer{nameIdx: make(map[string]int)}
}

func (c *CodeBuffer) Indent()   { c.indent++ }
func (c *CodeBuffer) Dedent()   { c.indent-- }

func (c *CodeBuffer) writeRaw(s string) {
	for _, r := range s {
		if r == '\n' {
			c.line++
			c.col = 0
			continue
		}
		c.col++
	}
	c.b.WriteString(s)
}

// WriteIndent emits the current indentation level as two-space steps.
func (c *CodeBuffer) WriteIndent() { c.writeRaw(strings.Repeat("  ", c.indent)) }

// WriteLine writes s followed by a newline, preceded by the current
// indentation.
func (c *CodeBuffer) WriteLine(s string) {
	c.WriteIndent()
	c.writeRaw(s)
	c.writeRaw("\n")
}

func (c *CodeBuffer) Write(s string) { c.writeRaw(s) }

func (c *CodeBuffer) Newline() { c.writeRaw("\n") }

// Mark records a mapping from the buffer's current generated position
// back to loc, with an optional pre-mangling name, as the generator
// visits an IR node carrying a real source location.
func (c *CodeBuffer) Mark(loc *SourceLocation, sourceIndex int, name string) {
	if loc == nil {
		return
	}
	m := SourceMapping{
		GeneratedLine:   c.line,
		GeneratedColumn: c.col,
		SourceIndex:     sourceIndex,
		OriginalLine:    loc.Start.Line - 1,
		OriginalColumn:  loc.Start.Column - 1,
	}
	if name != "" {
		idx, ok := c.nameIdx[name]
		if !ok {
			idx = len(c.names)
			c.names = append(c.names, name)
			c.nameIdx[name] = idx
		}
		m.HasName = true
		m.NameIndex = idx
	}
	c.mappings = append(c.mappings, m)
}

func (c *CodeBuffer) String() string { return c.b.String() }

// CodeGenResult is the output of generating one module's JS.
type CodeGenResult struct {
	Code     string
	Mappings []SourceMapping
	Names    []string
}

// Generator prints IR to JS source text.
type Generator struct {
	buf         *CodeBuffer
	sourceIndex int
}

func NewGenerator() *Generator {
	return &Generator{buf: NewCodeBuffer()}
}

// Generate renders prog to JS, returning the source text plus source
// map mappings (relative to sourceIndex, the position of this module's
// file in the map's "sources" array).
func (g *Generator) Generate(prog *Program) CodeGenResult {
	for _, stmt := range prog.Body {
		g.genStatement(stmt)
	}
	return CodeGenResult{Code: g.buf.String(), Mappings: g.buf.mappings, Names: g.buf.names}
}

func (g *Generator) mark(n IRNode, name string) {
	g.buf.Mark(n.GetSourceLocation(), g.sourceIndex, name)
}

func (g *Generator) genStatement(n IRNode) {
	switch v := n.(type) {
	case *VariableDeclaration:
		g.genVariableDeclaration(v)
	case *ExpressionStatement:
		g.buf.WriteIndent()
		g.genExpr(v.Expression)
		g.buf.Write(";\n")
	case *ReturnStatement:
		g.buf.WriteIndent()
		if v.Argument == nil {
			g.buf.Write("return;\n")
			return
		}
		g.buf.Write("return ")
		g.genExpr(v.Argument)
		g.buf.Write(";\n")
	case *IfStatement:
		g.genIfStatement(v)
	case *WhileStatement:
		g.buf.WriteIndent()
		g.buf.Write("while (")
		g.genExpr(v.Test)
		g.buf.Write(") ")
		g.genBlockInline(v.Body)
		g.buf.Newline()
	case *ForOfStatement:
		g.buf.WriteIndent()
		g.buf.Write(fmt.Sprintf("for (%s ", v.Kind))
		g.genExpr(v.Id)
		g.buf.Write(" of ")
		g.genExpr(v.Right)
		g.buf.Write(") ")
		g.genBlockInline(v.Body)
		g.buf.Newline()
	case *BreakStatement:
		g.buf.WriteLine("break;")
	case *ContinueStatement:
		g.buf.WriteLine("continue;")
	case *ThrowStatement:
		g.buf.WriteIndent()
		g.buf.Write("throw ")
		g.genExpr(v.Argument)
		g.buf.Write(";\n")
	case *TryStatement:
		g.genTryStatement(v)
	case *BlockStatement:
		g.buf.WriteIndent()
		g.genBlockInline(v)
		g.buf.Newline()
	case *FunctionDeclaration:
		g.genFunctionDeclaration(v)
	case *ClassDeclaration:
		g.genClassDeclaration(v)
	case *ImportDeclaration:
		g.genImportDeclaration(v)
	case *ExportNamedDeclaration:
		g.buf.WriteIndent()
		g.buf.Write("export ")
		if v.Declaration != nil {
			g.genStatementInline(v.Declaration)
		} else {
			g.buf.Write("{ " + strings.Join(v.Names, ", ") + " };\n")
		}
	case *ExportDefaultDeclaration:
		g.buf.WriteIndent()
		g.buf.Write("export default ")
		g.genExpr(v.Declaration)
		g.buf.Write(";\n")
	default:
		g.buf.WriteLine(fmt.Sprintf("/* unhandled statement %T */", n))
	}
}

// genStatementInline prints a statement without a preceding indent (used
// right after `export `).
func (g *Generator) genStatementInline(n IRNode) {
	switch v := n.(type) {
	case *FunctionDeclaration:
		g.writeFunctionHeader(v.Name, v.Params, v.RestParam)
		g.genBlockInline(v.Body)
		g.buf.Write("\n")
	case *VariableDeclaration:
		g.writeVariableDeclarationInline(v)
		g.buf.Write("\n")
	case *ClassDeclaration:
		g.genClassDeclaration(v)
	default:
		g.genExpr(n)
		g.buf.Write(";\n")
	}
}

func (g *Generator) genVariableDeclaration(v *VariableDeclaration) {
	g.buf.WriteIndent()
	g.writeVariableDeclarationInline(v)
	g.buf.Write("\n")
}

func (g *Generator) writeVariableDeclarationInline(v *VariableDeclaration) {
	g.buf.Write(string(v.Kind) + " ")
	for i, d := range v.Declarations {
		if i > 0 {
			g.buf.Write(", ")
		}
		if id, ok := d.Id.(*Identifier); ok {
			g.mark(id, id.OriginalName)
		}
		g.genExpr(d.Id)
		if d.Init != nil {
			g.buf.Write(" = ")
			g.genExpr(d.Init)
		}
	}
	g.buf.Write(";")
}

func (g *Generator) genIfStatement(v *IfStatement) {
	g.buf.WriteIndent()
	g.buf.Write("if (")
	g.genExpr(v.Test)
	g.buf.Write(") ")
	g.genBlockInline(asBlock(v.Consequent))
	if v.Alternate != nil {
		g.buf.Write(" else ")
		if nested, ok := v.Alternate.(*IfStatement); ok {
			g.buf.Write("if (")
			g.genExpr(nested.Test)
			g.buf.Write(") ")
			g.genBlockInline(asBlock(nested.Consequent))
			if nested.Alternate != nil {
				g.buf.Write(" else ")
				g.genBlockInline(asBlock(nested.Alternate))
			}
		} else {
			g.genBlockInline(asBlock(v.Alternate))
		}
	}
	g.buf.Newline()
}

func asBlock(n IRNode) *BlockStatement {
	if b, ok := n.(*BlockStatement); ok {
		return b
	}
	return &BlockStatement{Body: []IRNode{n}}
}

func (g *Generator) genBlockInline(block *BlockStatement) {
	g.buf.Write("{\n")
	g.buf.Indent()
	for _, stmt := range block.Body {
		g.genStatement(stmt)
	}
	g.buf.Dedent()
	g.buf.WriteIndent()
	g.buf.Write("}")
}

func (g *Generator) genTryStatement(v *TryStatement) {
	g.buf.WriteIndent()
	g.buf.Write("try ")
	g.genBlockInline(v.Block)
	if v.Handler != nil {
		g.buf.Write(" catch ")
		if v.Handler.Param != nil {
			g.buf.Write("(")
			g.genExpr(v.Handler.Param)
			g.buf.Write(") ")
		}
		g.genBlockInline(v.Handler.Body)
	}
	if v.Finally != nil {
		g.buf.Write(" finally ")
		g.genBlockInline(v.Finally)
	}
	g.buf.Newline()
}

func (g *Generator) writeFunctionHeader(name string, params []IRNode, rest IRNode) {
	g.buf.Write("function " + name + "(")
	g.writeParamList(params, rest)
	g.buf.Write(") ")
}

func (g *Generator) writeParamList(params []IRNode, rest IRNode) {
	for i, p := range params {
		if i > 0 {
			g.buf.Write(", ")
		}
		g.genExpr(p)
	}
	if rest != nil {
		if len(params) > 0 {
			g.buf.Write(", ")
		}
		g.buf.Write("...")
		g.genExpr(rest)
	}
}

func (g *Generator) genFunctionDeclaration(v *FunctionDeclaration) {
	g.buf.WriteIndent()
	g.writeFunctionHeader(v.Name, v.Params, v.RestParam)
	g.genBlockInline(v.Body)
	g.buf.Newline()
}

func (g *Generator) genClassDeclaration(v *ClassDeclaration) {
	g.buf.WriteIndent()
	g.buf.Write("class " + v.Name)
	if v.SuperClass != nil {
		g.buf.Write(" extends ")
		g.genExpr(v.SuperClass)
	}
	g.buf.Write(" {\n")
	g.buf.Indent()
	for _, p := range v.Properties {
		g.buf.WriteIndent()
		if p.Static {
			g.buf.Write("static ")
		}
		g.genExpr(p.Key)
		if p.Value != nil {
			g.buf.Write(" = ")
			g.genExpr(p.Value)
		}
		g.buf.Write(";\n")
	}
	for _, m := range v.Methods {
		g.buf.WriteIndent()
		if m.Static {
			g.buf.Write("static ")
		}
		switch m.Kind {
		case "get", "set":
			g.buf.Write(m.Kind + " ")
		}
		if m.Kind == "constructor" {
			g.buf.Write("constructor")
		} else {
			g.genExpr(m.Key)
		}
		g.buf.Write("(")
		g.writeParamList(m.Params, m.RestParam)
		g.buf.Write(") ")
		g.genBlockInline(m.Body)
		g.buf.Write("\n")
	}
	g.buf.Dedent()
	g.buf.WriteIndent()
	g.buf.Write("}\n")
}

func (g *Generator) genImportDeclaration(v *ImportDeclaration) {
	g.buf.WriteIndent()
	g.buf.Write("import ")
	var named []string
	for _, s := range v.Specifiers {
		switch {
		case s.Namespace:
			g.buf.Write("* as " + s.Local + " ")
		case s.Default:
			g.buf.Write(s.Local + " ")
		default:
			if s.Imported != s.Local {
				named = append(named, s.Imported+" as "+s.Local)
			} else {
				named = append(named, s.Local)
			}
		}
	}
	if len(named) > 0 {
		g.buf.Write("{ " + strings.Join(named, ", ") + " } ")
	}
	g.buf.Write("from " + strconv.Quote(v.Source) + ";\n")
}

// genExpr prints an expression with precedence-safe parenthesization
// for binary/logical/conditional operands, since IR does not carry
// explicit grouping nodes.
func (g *Generator) genExpr(n IRNode) {
	switch v := n.(type) {
	case *Identifier:
		g.mark(v, v.OriginalName)
		g.buf.Write(v.Name)
	case *NumericLiteral:
		g.genNumericLiteral(v)
	case *StringLiteral:
		g.buf.Write(strconv.Quote(v.Value))
	case *BoolLiteral:
		g.buf.Write(strconv.FormatBool(v.Value))
	case *NullLiteral:
		g.buf.Write("null")
	case *ArrayExpression:
		g.genArrayExpression(v)
	case *ObjectExpression:
		g.genObjectExpression(v)
	case *MemberExpression:
		g.genMemberExpression(v)
	case *SpreadElement:
		g.buf.Write("...")
		g.genExpr(v.Argument)
	case *CallExpression:
		g.genCallExpression(v)
	case *NewExpression:
		g.buf.Write("new ")
		g.genMaybeParen(v.Callee)
		g.buf.Write("(")
		g.genArgList(v.Arguments)
		g.buf.Write(")")
	case *BinaryExpression:
		g.genMaybeParen(v.Left)
		g.buf.Write(" " + v.Operator + " ")
		g.genMaybeParen(v.Right)
	case *LogicalExpression:
		g.genMaybeParen(v.Left)
		g.buf.Write(" " + v.Operator + " ")
		g.genMaybeParen(v.Right)
	case *UnaryExpression:
		if v.Prefix {
			g.buf.Write(v.Operator)
			if isWordOperator(v.Operator) {
				g.buf.Write(" ")
			}
			g.genMaybeParen(v.Argument)
		} else {
			g.genMaybeParen(v.Argument)
			g.buf.Write(v.Operator)
		}
	case *AssignmentExpression:
		g.genExpr(v.Target)
		g.buf.Write(" " + v.Operator + " ")
		g.genExpr(v.Value)
	case *ConditionalExpression:
		g.genMaybeParen(v.Test)
		g.buf.Write(" ? ")
		g.genExpr(v.Consequent)
		g.buf.Write(" : ")
		g.genExpr(v.Alternate)
	case *SequenceExpression:
		g.buf.Write("(")
		for i, e := range v.Expressions {
			if i > 0 {
				g.buf.Write(", ")
			}
			g.genExpr(e)
		}
		g.buf.Write(")")
	case *TemplateLiteral:
		g.genTemplateLiteral(v)
	case *ArrowFunctionExpression:
		g.genArrowFunction(v)
	case *FunctionExpression:
		g.buf.Write("function")
		if v.Name != "" {
			g.buf.Write(" " + v.Name)
		}
		g.buf.Write("(")
		g.writeParamList(v.Params, v.RestParam)
		g.buf.Write(") ")
		g.genBlockInline(v.Body)
	case *AssignmentPattern:
		g.genExpr(v.Target)
		g.buf.Write(" = ")
		g.genExpr(v.Default)
	default:
		g.buf.Write(fmt.Sprintf("/* unhandled expr %T */", n))
	}
}

func isWordOperator(op string) bool { return op == "typeof" || op == "void" || op == "delete" }

func (g *Generator) genNumericLiteral(v *NumericLiteral) {
	switch {
	case v.IsBigInt:
		g.buf.Write(v.BigVal + "n")
	case v.IsInt:
		g.buf.Write(strconv.FormatInt(v.IntVal, 10))
	default:
		g.buf.Write(strconv.FormatFloat(v.Value, 'g', -1, 64))
	}
}

func (g *Generator) genArrayExpression(v *ArrayExpression) {
	g.buf.Write("[")
	g.genArgList(v.Elements)
	g.buf.Write("]")
}

func (g *Generator) genArgList(args []IRNode) {
	for i, a := range args {
		if i > 0 {
			g.buf.Write(", ")
		}
		g.genExpr(a)
	}
}

func (g *Generator) genObjectExpression(v *ObjectExpression) {
	if len(v.Properties) == 0 {
		g.buf.Write("{}")
		return
	}
	g.buf.Write("{ ")
	for i, p := range v.Properties {
		if i > 0 {
			g.buf.Write(", ")
		}
		if p.Computed {
			g.buf.Write("[")
			g.genExpr(p.Key)
			g.buf.Write("]")
		} else {
			g.genExpr(p.Key)
		}
		g.buf.Write(": ")
		g.genExpr(p.Value)
	}
	g.buf.Write(" }")
}

func (g *Generator) genMemberExpression(v *MemberExpression) {
	g.genMaybeParen(v.Object)
	if v.Computed {
		if v.Optional {
			g.buf.Write("?.")
		}
		g.buf.Write("[")
		g.genExpr(v.Property)
		g.buf.Write("]")
		return
	}
	if v.Optional {
		g.buf.Write("?.")
	} else {
		g.buf.Write(".")
	}
	g.genExpr(v.Property)
}

func (g *Generator) genCallExpression(v *CallExpression) {
	g.genMaybeParen(v.Callee)
	if v.Optional {
		g.buf.Write("?.")
	}
	g.buf.Write("(")
	g.genArgList(v.Arguments)
	g.buf.Write(")")
}

func (g *Generator) genTemplateLiteral(v *TemplateLiteral) {
	g.buf.Write("`")
	for i, q := range v.Quasis {
		g.buf.Write(escapeTemplateChunk(q))
		if i < len(v.Expressions) {
			g.buf.Write("${")
			g.genExpr(v.Expressions[i])
			g.buf.Write("}")
		}
	}
	g.buf.Write("`")
}

func escapeTemplateChunk(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func (g *Generator) genArrowFunction(v *ArrowFunctionExpression) {
	g.buf.Write("(")
	g.writeParamList(v.Params, v.RestParam)
	g.buf.Write(") => ")
	if v.ExprBody {
		if _, isObj := v.Body.(*ObjectExpression); isObj {
			g.buf.Write("(")
			g.genExpr(v.Body)
			g.buf.Write(")")
			return
		}
		g.genExpr(v.Body)
		return
	}
	if block, ok := v.Body.(*BlockStatement); ok {
		g.genBlockInline(block)
		return
	}
	g.genExpr(v.Body)
}

// genMaybeParen wraps an operand in parentheses when it is a node kind
// whose own precedence could otherwise bind incorrectly to a surrounding
// operator (conservative: always parenthesizes these, at the cost of a
// few harmless extra parens rather than tracking full JS precedence
// tables).
func (g *Generator) genMaybeParen(n IRNode) {
	switch n.(type) {
	case *BinaryExpression, *LogicalExpression, *ConditionalExpression, *AssignmentExpression,
		*ArrowFunctionExpression, *FunctionExpression, *SequenceExpression:
		g.buf.Write("(")
		g.genExpr(n)
		g.buf.Write(")")
	default:
		g.genExpr(n)
	}
}
