// Package ioctx carries the hqlc CLI's output streams on a
// context.Context so deep pipeline code (diagnostic printers, the
// build command) can reach them without threading *os.File arguments
// through every function signature.
package ioctx

import (
	"context"
	"io"
)

type compiledOutputKey struct{}
type diagnosticsKey struct{}

// DiagnosticsFromContext returns the stream a reader/macro/transform
// error and warning diagnostics are printed to, or io.Discard if none
// was attached.
func DiagnosticsFromContext(ctx context.Context) io.Writer {
	w := ctx.Value(diagnosticsKey{})
	if w == nil {
		w = io.Discard
	}

	return w.(io.Writer)
}

// DiagnosticsToContext attaches w as the destination for diagnostic
// output (see DiagnosticsFromContext).
func DiagnosticsToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, diagnosticsKey{}, w)
}

// CompiledOutputFromContext returns the stream generated JS is written
// to when a build targets stdout, or io.Discard if none was attached.
func CompiledOutputFromContext(ctx context.Context) io.Writer {
	w := ctx.Value(compiledOutputKey{})
	if w == nil {
		w = io.Discard
	}

	return w.(io.Writer)
}

// CompiledOutputToContext attaches w as the destination for generated
// JS (see CompiledOutputFromContext).
func CompiledOutputToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, compiledOutputKey{}, w)
}
