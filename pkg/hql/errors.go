package hql

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	pkgerrors "github.com/pkg/errors"
)

// stageName identifies which pipeline stage produced an error, used by
// InternalCompilerError to wrap the underlying cause with the current
// pipeline stage.
type stageName string

const (
	StageLex       stageName = "lex"
	StageRead      stageName = "read"
	StageExpand    stageName = "expand"
	StageTransform stageName = "transform"
	StageOptimize  stageName = "optimize"
	StageCodegen   stageName = "codegen"
	StageResolve   stageName = "resolve"
)

// SourceLocatable is implemented by anything an error can point at: SExp
// nodes, IR nodes, or a bare *SourceLocation. Mirrors pkg/dang/errors.go's
// SourceLocatable interface.
type SourceLocatable interface {
	GetSourceLocation() *SourceLocation
}

// locationOf extracts a *SourceLocation from anything SourceLocatable,
// tolerating nil.
func locationOf(n SourceLocatable) *SourceLocation {
	if n == nil {
		return nil
	}
	return n.GetSourceLocation()
}

// withLocation formats "file:line:col: message", or just "message" when
// loc is nil (synthetic nodes have no location).
func withLocation(loc *SourceLocation, message string) string {
	if loc == nil {
		return message
	}
	return fmt.Sprintf("%s: %s", loc.String(), message)
}

// HQLError is the common interface satisfied by every member of the
// error taxonomy, so callers of transpile() can type-switch without
// needing to know every concrete type.
type HQLError interface {
	error
	GetSourceLocation() *SourceLocation
	// Snippet renders a multi-line, source-highlighted message: an
	// "error:" line, a "-->" file:line:col header, the failing source
	// line with one line of context on each side, and a "^" underline at
	// the failing position. Without a location it returns the message
	// alone.
	Snippet(source string) string
}

// -----------------------------------------------------------------------
// Lex / Parse

type LexErrorKind int

const (
	LexUnterminated LexErrorKind = iota
	LexInvalidEscape
	LexInvalidNumber
)

func (k LexErrorKind) String() string {
	switch k {
	case LexUnterminated:
		return "unterminated literal"
	case LexInvalidEscape:
		return "invalid escape sequence"
	case LexInvalidNumber:
		return "invalid number literal"
	default:
		return "lex error"
	}
}

type LexError struct {
	Kind     LexErrorKind
	Location *SourceLocation
	Detail   string
}

func (e *LexError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	return withLocation(e.Location, msg)
}

func (e *LexError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *LexError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

type ParseErrorKind int

const (
	ParseUnbalanced ParseErrorKind = iota
	ParseEmptyInput
	ParseOddMapPayload
	ParseDotInvalid
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseUnbalanced:
		return "unbalanced delimiters"
	case ParseEmptyInput:
		return "empty input"
	case ParseOddMapPayload:
		return "map literal has an odd number of elements"
	case ParseDotInvalid:
		return "dot-path must begin with an identifier"
	default:
		return "parse error"
	}
}

type ParseError struct {
	Kind     ParseErrorKind
	Location *SourceLocation
	Detail   string
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	return withLocation(e.Location, msg)
}

func (e *ParseError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *ParseError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

// SoftError is collected by the Reader alongside a best-effort partial
// tree (for LSP use) but is treated as fatal by the normal compile
// driver.
type SoftError struct {
	*ParseError
}

// -----------------------------------------------------------------------
// Semantic

type UndefinedSymbolError struct {
	Name       string
	Location   *SourceLocation
	candidates []string
}

func (e *UndefinedSymbolError) Error() string {
	msg := fmt.Sprintf("undefined symbol %q", e.Name)
	if sugg, ok := suggest(e.Name, e.candidates); ok {
		msg += fmt.Sprintf(" (did you mean %q?)", sugg)
	}
	return withLocation(e.Location, msg)
}

func (e *UndefinedSymbolError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *UndefinedSymbolError) Snippet(source string) string {
	return formatSnippet(e.Error(), e.Location, source)
}

// NewUndefinedSymbolError builds an UndefinedSymbolError and computes its
// "did you mean" suggestion eagerly against the bindings visible at the
// point of failure.
func NewUndefinedSymbolError(name string, loc *SourceLocation, visibleNames []string) *UndefinedSymbolError {
	return &UndefinedSymbolError{Name: name, Location: loc, candidates: visibleNames}
}

type ArityError struct {
	FunctionName string
	Expected     string // e.g. "2" or "at least 1"
	Received     int
	Location     *SourceLocation
}

func (e *ArityError) Error() string {
	return withLocation(e.Location, fmt.Sprintf(
		"%s: expected %s argument(s), received %d", e.FunctionName, e.Expected, e.Received))
}

func (e *ArityError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *ArityError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

type HQLTypeError struct {
	FunctionName string
	Expected     string
	Received     string
	Location     *SourceLocation
}

func (e *HQLTypeError) Error() string {
	return withLocation(e.Location, fmt.Sprintf(
		"%s: expected %s, received %s", e.FunctionName, e.Expected, e.Received))
}

func (e *HQLTypeError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *HQLTypeError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

type HQLSyntaxError struct {
	Message  string
	Location *SourceLocation
}

func (e *HQLSyntaxError) Error() string { return withLocation(e.Location, e.Message) }

func (e *HQLSyntaxError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *HQLSyntaxError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

type ImmutableAssignment struct {
	Name     string
	Location *SourceLocation
}

func (e *ImmutableAssignment) Error() string {
	return withLocation(e.Location, fmt.Sprintf("cannot assign to const binding %q", e.Name))
}

func (e *ImmutableAssignment) GetSourceLocation() *SourceLocation { return e.Location }
func (e *ImmutableAssignment) Snippet(source string) string {
	return formatSnippet(e.Error(), e.Location, source)
}

// -----------------------------------------------------------------------
// Resource

type MacroExpansionLimit struct {
	Limit    int
	Observed int
	Kind     string // "depth" or "iterations"
	Location *SourceLocation
}

func (e *MacroExpansionLimit) Error() string {
	return withLocation(e.Location, fmt.Sprintf(
		"macro expansion exceeded %s limit (%d, observed %d); check for infinite recursion in macro definitions",
		e.Kind, e.Limit, e.Observed))
}

func (e *MacroExpansionLimit) GetSourceLocation() *SourceLocation { return e.Location }
func (e *MacroExpansionLimit) Snippet(source string) string {
	return formatSnippet(e.Error(), e.Location, source)
}

type MaxCallDepthError struct {
	Limit    int
	Location *SourceLocation
}

func (e *MaxCallDepthError) Error() string {
	return withLocation(e.Location, fmt.Sprintf(
		"exceeded maximum call depth (%d); check for infinite recursion", e.Limit))
}

func (e *MaxCallDepthError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *MaxCallDepthError) Snippet(source string) string {
	return formatSnippet(e.Error(), e.Location, source)
}

// -----------------------------------------------------------------------
// Module

type ModuleNotFound struct {
	Specifier string
	Importer  string
	Location  *SourceLocation
}

func (e *ModuleNotFound) Error() string {
	return withLocation(e.Location, fmt.Sprintf("module %q not found (imported from %s)", e.Specifier, e.Importer))
}

func (e *ModuleNotFound) GetSourceLocation() *SourceLocation { return e.Location }
func (e *ModuleNotFound) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

type ImportCycleError struct {
	Chain    []string
	Location *SourceLocation
}

func (e *ImportCycleError) Error() string {
	return withLocation(e.Location, fmt.Sprintf("unresolved cyclic import: %s", strings.Join(e.Chain, " -> ")))
}

func (e *ImportCycleError) GetSourceLocation() *SourceLocation { return e.Location }
func (e *ImportCycleError) Snippet(source string) string       { return formatSnippet(e.Error(), e.Location, source) }

// -----------------------------------------------------------------------
// Cancellation

type CancelledError struct {
	Stage stageName
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("compilation cancelled during %s", e.Stage)
}
func (e *CancelledError) GetSourceLocation() *SourceLocation { return nil }
func (e *CancelledError) Snippet(string) string              { return e.Error() }

// -----------------------------------------------------------------------
// Internal

// InternalCompilerError is the catch-all taxonomy member; it should
// never surface in production. It wraps the underlying cause with a
// stack trace via github.com/pkg/errors so a bug report has something to
// go on, and records which pipeline stage panicked or returned an
// unrecognized error shape.
type InternalCompilerError struct {
	Stage stageName
	cause error
}

func NewInternalCompilerError(stage stageName, cause error) *InternalCompilerError {
	return &InternalCompilerError{Stage: stage, cause: pkgerrors.WithStack(cause)}
}

func (e *InternalCompilerError) Error() string {
	return fmt.Sprintf("internal compiler error during %s: %+v", e.Stage, e.cause)
}

func (e *InternalCompilerError) Unwrap() error                    { return e.cause }
func (e *InternalCompilerError) GetSourceLocation() *SourceLocation { return nil }
func (e *InternalCompilerError) Snippet(string) string              { return e.Error() }

// recoverToInternalError converts a panic into an *InternalCompilerError
// instead of letting it cross the transpile() boundary: a library must
// never panic across a public API boundary.
func recoverToInternalError(stage stageName, errOut *error) {
	if r := recover(); r != nil {
		var cause error
		if err, ok := r.(error); ok {
			cause = err
		} else {
			cause = fmt.Errorf("%v", r)
		}
		*errOut = NewInternalCompilerError(stage, cause)
	}
}

// -----------------------------------------------------------------------
// Shared helpers

// suggest finds the closest candidate to name by Levenshtein edit
// distance, used to offer a nearest-by-edit-distance "did you mean"
// name. Ties are broken by input order; candidates more than
// len(name)/2+1 edits away are not suggested, to avoid nonsensical
// suggestions for totally unrelated names.
func suggest(name string, candidates []string) (string, bool) {
	best := ""
	bestDist := -1
	threshold := len(name)/2 + 1
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := levenshtein.ComputeDistance(name, c)
		if d > threshold {
			continue
		}
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist >= 0
}

// formatSnippet renders the user-visible error format: a header, a
// window of context lines, and a "^" underline at the failing column.
// Mirrors pkg/dang/errors.go's SourceError.FormatWithHighlighting,
// simplified to plain (non-ANSI) text: the core is a pure function and
// must not assume a terminal; cmd/hqlc recolorizes this text with
// lipgloss when attached to a tty.
func formatSnippet(message string, loc *SourceLocation, source string) string {
	if loc == nil {
		return message
	}
	if source == "" {
		if contents, err := os.ReadFile(loc.File); err == nil {
			source = string(contents)
		}
	}
	if source == "" {
		return message
	}
	lines := strings.Split(source, "\n")
	if loc.Start.Line < 1 || loc.Start.Line > len(lines) {
		return message
	}

	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", message)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", loc.File, loc.Start.Line, loc.Start.Column)

	start := max(1, loc.Start.Line-1)
	end := min(len(lines), loc.Start.Line+1)
	width := len(fmt.Sprintf("%d", end))

	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, " %*d | %s\n", width, i, lines[i-1])
		if i == loc.Start.Line {
			pad := strings.Repeat(" ", width+3+loc.Start.Column-1)
			underlineLen := max(1, loc.Length)
			fmt.Fprintf(&b, "%s%s\n", pad, strings.Repeat("^", underlineLen))
		}
	}
	return b.String()
}

// asHQLError recovers a typed HQLError from an arbitrary error chain, used
// by transpile() to decide whether to wrap with InternalCompilerError.
func asHQLError(err error) (HQLError, bool) {
	var herr HQLError
	if errors.As(err, &herr) {
		return herr, true
	}
	return nil, false
}
