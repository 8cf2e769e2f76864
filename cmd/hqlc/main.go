// Command hqlc transpiles HQL source files to JavaScript.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hlvm-dev/hql/internal/logctx"
	"github.com/hlvm-dev/hql/pkg/hql"
	"github.com/hlvm-dev/hql/pkg/ioctx"
)

func main() {
	ctx := context.Background()
	ctx = ioctx.CompiledOutputToContext(ctx, os.Stdout)
	ctx = ioctx.DiagnosticsToContext(ctx, os.Stderr)
	ctx = logctx.WithLogger(ctx, newLogger(os.Stderr, wantsDebugLogging(os.Args)))

	root := newRootCommand()
	if err := fang.Execute(ctx, root); err != nil {
		os.Exit(1)
	}
}

// wantsDebugLogging scans raw args for -v/--verbose or --timing so the
// logger's level can be set before cobra parses flags: hql.Transpile
// calls logger.Debug for stage node counts, and those records would be
// silently dropped by an Info-level handler otherwise.
func wantsDebugLogging(args []string) bool {
	for _, a := range args {
		switch a {
		case "-v", "--verbose", "--timing":
			return true
		}
	}
	return false
}

func newLogger(w *os.File, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if isatty.IsTerminal(w.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hqlc",
		Short: "Transpile HQL source to JavaScript",
	}
	root.AddCommand(newBuildCommand())
	return root
}

func newBuildCommand() *cobra.Command {
	var (
		outPath    string
		sourceMap  bool
		verbose    bool
		showTiming bool
	)
	cmd := &cobra.Command{
		Use:   "build <file.hql>",
		Short: "Transpile a single HQL file to JavaScript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file := args[0]
			logger := logctx.FromContext(ctx)

			source, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			result, err := hql.Transpile(ctx, string(source), hql.TranspileOptions{
				File:       file,
				BaseDir:    filepath.Dir(file),
				SourceMap:  sourceMap,
				Verbose:    verbose,
				ShowTiming: showTiming,
			})
			if err != nil {
				printDiagnostic(ioctx.DiagnosticsFromContext(ctx), err, string(source))
				return fmt.Errorf("build failed")
			}

			for _, soft := range result.Diagnostics {
				logger.Warn(soft.Error())
			}

			if outPath == "-" {
				_, err := io.WriteString(ioctx.CompiledOutputFromContext(ctx), result.Code)
				return err
			}

			out := outPath
			if out == "" {
				out = strings.TrimSuffix(file, filepath.Ext(file)) + ".js"
			}
			if err := os.WriteFile(out, []byte(result.Code), 0o644); err != nil {
				return err
			}
			logger.Info("wrote output", "path", out)

			if sourceMap && result.SourceMap != nil {
				mapPath := out + ".map"
				if err := os.WriteFile(mapPath, result.SourceMap, 0o644); err != nil {
					return err
				}
				logger.Info("wrote source map", "path", mapPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path, or - for stdout (default: <file>.js)")
	cmd.Flags().BoolVar(&sourceMap, "source-map", false, "emit a .js.map alongside the output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log stage node counts and intermediate trees")
	cmd.Flags().BoolVar(&showTiming, "timing", false, "log per-stage compile duration")
	return cmd
}

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// printDiagnostic recolorizes an HQLError's plain-text snippet for a
// terminal; the compiler core stays free of any ANSI assumption, and
// the CLI is the one place that knows whether stderr is a tty.
func printDiagnostic(w io.Writer, err error, source string) {
	herr, ok := err.(hql.HQLError)
	if !ok {
		fmt.Fprintln(w, errorStyle.Render("error:"), err)
		return
	}
	snippet := herr.Snippet(source)
	lines := strings.Split(snippet, "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "error:"):
			fmt.Fprintln(w, errorStyle.Render(line))
		case strings.Contains(line, "-->"):
			fmt.Fprintln(w, gutterStyle.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}
