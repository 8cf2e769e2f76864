package hql

import (
	"context"
	"fmt"
	"time"

	"github.com/hlvm-dev/hql/internal/logctx"
	"github.com/kr/pretty"
	"golang.org/x/sync/errgroup"
)

// TranspileOptions configures one call to Transpile. File and BaseDir
// are used for module resolution and diagnostics; SourceMap controls
// whether a V3 source map is produced; ImportedMacros lets a caller
// (the Resolver, compiling an importing module) seed macros visible
// from already-compiled sibling modules. Verbose and ShowTiming enable
// diagnostic slog output through the logger attached to ctx (see
// internal/logctx); neither affects Code/SourceMap/Diagnostics.
type TranspileOptions struct {
	File           string
	BaseDir        string
	SourceMap      bool
	ImportedMacros *MacroRegistry
	Verbose        bool
	ShowTiming     bool
}

// TranspileResult is the pure-function output of Transpile: generated
// JS, an optional source map, and any non-fatal reader diagnostics
// collected along the way.
type TranspileResult struct {
	Code           string
	SourceMap      []byte
	Diagnostics    []*SoftError
	ExportedMacros *MacroRegistry
}

// Transpile runs the full HQL-to-JS pipeline over source: read, macro
// expand, transform, optimize, generate. It is a pure function of its
// inputs (no global state survives a call), so a Resolver can safely run
// many of these concurrently. Mirrors pkg/dang/eval.go's top-level Eval
// entry point, which similarly wires its own pipeline stages (parse ->
// typecheck -> eval) behind one function with panic recovery at the
// boundary.
func Transpile(ctx context.Context, source string, opts TranspileOptions) (result TranspileResult, err error) {
	var current stageName = StageRead
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = NewInternalCompilerError(current, cause)
		}
	}()

	logger := logctx.Discard()
	if opts.Verbose || opts.ShowTiming {
		logger = logctx.FromContext(ctx)
	}
	stage := func(name stageName) func(nodeCount int, tree any) {
		current = name
		start := time.Now()
		return func(nodeCount int, tree any) {
			if opts.Verbose {
				logger.Debug("stage", "name", name, "nodes", nodeCount)
				if tree != nil {
					logger.Debug("stage tree", "name", name, "tree", pretty.Sprint(tree))
				}
			}
			if opts.ShowTiming {
				logger.Info("stage", "name", name, "duration", time.Since(start))
			}
		}
	}

	done := stage(StageRead)
	readResult, err := Parse(opts.File, source)
	if err != nil {
		if _, ok := asHQLError(err); ok {
			return TranspileResult{}, err
		}
		return TranspileResult{}, NewInternalCompilerError(StageRead, err)
	}
	done(len(readResult.Forms), readResult.Forms)
	result.Diagnostics = readResult.Soft

	interp := NewInterpreter()
	if opts.ImportedMacros != nil {
		interp.Macros.Merge(opts.ImportedMacros)
	}
	expander := NewExpander(interp)
	done = stage(StageExpand)
	expanded, err := expander.ExpandAll(ctx, readResult.Forms)
	if err != nil {
		if _, ok := asHQLError(err); ok {
			return TranspileResult{}, err
		}
		return TranspileResult{}, NewInternalCompilerError(StageExpand, err)
	}
	done(len(expanded), expanded)

	if ctx.Err() != nil {
		return TranspileResult{}, &CancelledError{Stage: StageTransform}
	}
	transformer := NewTransformer(opts.File)
	done = stage(StageTransform)
	prog, err := transformer.TransformProgram(expanded)
	if err != nil {
		if _, ok := asHQLError(err); ok {
			return TranspileResult{}, err
		}
		return TranspileResult{}, NewInternalCompilerError(StageTransform, err)
	}
	done(len(prog.Body), prog)

	if ctx.Err() != nil {
		return TranspileResult{}, &CancelledError{Stage: StageOptimize}
	}
	done = stage(StageOptimize)
	optimizer := NewOptimizer()
	prog = optimizer.OptimizeProgram(prog)
	done(len(prog.Body), prog)

	if ctx.Err() != nil {
		return TranspileResult{}, &CancelledError{Stage: StageCodegen}
	}
	done = stage(StageCodegen)
	gen := NewGenerator()
	genResult := gen.Generate(prog)
	result.Code = genResult.Code
	result.ExportedMacros = interp.Macros
	done(len(genResult.Mappings), nil)

	if opts.SourceMap {
		sourceMap, err := BuildSourceMap(opts.File+".js", []string{opts.File}, []string{source}, genResult.Names, genResult.Mappings)
		if err != nil {
			return TranspileResult{}, NewInternalCompilerError(StageCodegen, err)
		}
		result.SourceMap = sourceMap
	}

	return result, nil
}

// TranspileModuleGraph compiles entryFile and every module it
// transitively imports, using resolver's cache so a module imported by
// more than one file compiles once. Returns the entry module's result;
// callers needing every module's output should walk resolver's cache
// directly after this returns.
func TranspileModuleGraph(ctx context.Context, resolver *Resolver, entryFile string) (TranspileResult, error) {
	return transpileWithChain(ctx, resolver, entryFile, "", nil)
}

func transpileWithChain(ctx context.Context, resolver *Resolver, path, importer string, chain []string) (TranspileResult, error) {
	entry, owner, err := resolver.BeginCompile(path, chain)
	if err != nil {
		return TranspileResult{}, err
	}
	if !owner {
		res, err := resolver.Await(ctx, entry)
		if err != nil {
			return TranspileResult{}, err
		}
		return *res, nil
	}

	src, err := resolver.Resolve(ctx, path, importer)
	if err != nil {
		resolver.FinishCompile(entry, nil, err)
		return TranspileResult{}, err
	}

	nextChain := append(append([]string{}, chain...), path)
	imports, err := ScanImports(path, src.Code)
	if err != nil {
		resolver.FinishCompile(entry, nil, err)
		return TranspileResult{}, err
	}

	// Sibling imports don't depend on each other's output (only the
	// importer's ImportedMacros registry does), so they compile
	// concurrently via errgroup; results are merged back in import order
	// afterward so macro-name collisions resolve deterministically
	// regardless of which goroutine finishes first.
	localImports := make([]string, 0, len(imports))
	for _, imp := range imports {
		if ClassifySpecifier(imp) == SpecifierLocal {
			localImports = append(localImports, imp)
		}
	}
	depResults := make([]TranspileResult, len(localImports))
	g, gctx := errgroup.WithContext(ctx)
	for i, imp := range localImports {
		i, imp := i, imp
		g.Go(func() error {
			depResult, err := transpileWithChain(gctx, resolver, imp, path, nextChain)
			if err != nil {
				return err
			}
			depResults[i] = depResult
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resolver.FinishCompile(entry, nil, err)
		return TranspileResult{}, err
	}

	importedMacros := NewMacroRegistry()
	for _, depResult := range depResults {
		importedMacros.Merge(depResult.ExportedMacros)
	}

	result, err := Transpile(ctx, src.Code, TranspileOptions{File: path, ImportedMacros: importedMacros})
	resolver.FinishCompile(entry, &result, err)
	if err != nil {
		return TranspileResult{}, err
	}
	return result, nil
}

// ScanImports reads file's top-level `(import [...] "specifier")` forms
// without running the full pipeline, so the module graph can be walked
// before macro expansion (imports must be visible prior to expansion,
// since an imported module may itself export macros the importer uses).
func ScanImports(file, source string) ([]string, error) {
	result, err := Parse(file, source)
	if err != nil {
		return nil, err
	}
	var specs []string
	for _, form := range result.Forms {
		l, ok := form.(*List)
		if !ok || l.Kind != KindList {
			continue
		}
		head, ok := l.HeadSymbol()
		if !ok || head != "import" {
			continue
		}
		args := l.Tail()
		if len(args) < 2 {
			continue
		}
		if lit, ok := args[1].(*Literal); ok && lit.Value.Kind == ScalarString {
			specs = append(specs, lit.Value.S)
		}
	}
	return specs, nil
}
