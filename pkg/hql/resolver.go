package hql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
)

// SpecifierKind classifies an import specifier string, determining how
// the resolver locates its source.
type SpecifierKind int

const (
	SpecifierLocal SpecifierKind = iota
	SpecifierNPM
	SpecifierJSR
	SpecifierHTTPS
)

// ClassifySpecifier inspects an import string's prefix/shape to decide
// how it should be resolved, mirroring Deno-style specifier schemes.
func ClassifySpecifier(spec string) SpecifierKind {
	switch {
	case strings.HasPrefix(spec, "npm:"):
		return SpecifierNPM
	case strings.HasPrefix(spec, "jsr:"):
		return SpecifierJSR
	case strings.HasPrefix(spec, "https://"), strings.HasPrefix(spec, "http://"):
		return SpecifierHTTPS
	default:
		return SpecifierLocal
	}
}

// ModuleSource is a compiled module's source text plus the absolute
// path or specifier it was loaded from.
type ModuleSource struct {
	Path string
	Code string
}

// moduleCacheEntry is either a placeholder (Ready == nil, currently
// being compiled) or a resolved entry. The placeholder-then-real-entry
// pattern lets concurrent resolutions of the same module observe an
// in-flight compilation rather than starting a duplicate one, and lets
// the resolver detect import cycles by noticing a path is already
// "in progress" on the current resolution chain.
type moduleCacheEntry struct {
	mu       sync.Mutex
	ready    bool
	result   *TranspileResult
	err      error
	done     chan struct{}
}

// Resolver loads and compiles a module graph, caching every module by
// absolute path so a diamond-shaped import graph compiles each module
// exactly once. Mirrors pkg/dang/project.go's module loader (path
// resolution relative to a project root, cached by absolute path).
// Concurrent compiles of the same path share one cache entry through
// BeginCompile/Await; golang.org/x/sync's singleflight collapses
// concurrent fetches of the same remote (https:) URL, which
// cenkalti/backoff/v5 retries.
type Resolver struct {
	baseDir    string
	httpClient *http.Client
	mu         sync.Mutex
	cache      map[string]*moduleCacheEntry
	sf         singleflight.Group
	inFlight   map[string][]string // path -> import chain currently resolving it, for cycle detection
}

func NewResolver(baseDir string) *Resolver {
	return &Resolver{
		baseDir:    baseDir,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]*moduleCacheEntry),
		inFlight:   make(map[string][]string),
	}
}

// Resolve locates and loads the source for specifier as imported from
// importer (an absolute path, or "" for the entry module).
func (r *Resolver) Resolve(ctx context.Context, specifier, importer string) (ModuleSource, error) {
	switch ClassifySpecifier(specifier) {
	case SpecifierLocal:
		return r.resolveLocal(specifier, importer)
	case SpecifierHTTPS:
		return r.resolveRemote(ctx, specifier)
	default:
		// npm:/jsr: specifiers are left for the emitted JS's own runtime
		// (Node/Deno/bundler) to resolve; the compiler only needs to know
		// they're not local so it doesn't try to read them off disk.
		return ModuleSource{Path: specifier, Code: ""}, nil
	}
}

func (r *Resolver) resolveLocal(specifier, importer string) (ModuleSource, error) {
	dir := r.baseDir
	if importer != "" {
		dir = filepath.Dir(importer)
	}
	path := specifier
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, specifier)
	}
	for _, candidate := range candidatePaths(path) {
		if contents, err := os.ReadFile(candidate); err == nil {
			return ModuleSource{Path: candidate, Code: string(contents)}, nil
		}
	}
	return ModuleSource{}, &ModuleNotFound{Specifier: specifier, Importer: importer}
}

func candidatePaths(path string) []string {
	if strings.HasSuffix(path, ".hql") {
		return []string{path}
	}
	return []string{path, path + ".hql", filepath.Join(path, "index.hql")}
}

// resolveRemote fetches specifier over HTTPS with bounded retry,
// collapsing concurrent fetches of the same URL via singleflight.
func (r *Resolver) resolveRemote(ctx context.Context, specifier string) (ModuleSource, error) {
	v, err, _ := r.sf.Do(specifier, func() (any, error) {
		op := func() (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, specifier, nil)
			if err != nil {
				return "", backoff.Permanent(err)
			}
			resp, err := r.httpClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return "", fmt.Errorf("remote module fetch: server error %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return "", backoff.Permanent(fmt.Errorf("remote module fetch: status %d", resp.StatusCode))
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
		return backoff.Retry(ctx, op, backoff.WithMaxTries(4))
	})
	if err != nil {
		return ModuleSource{}, &ModuleNotFound{Specifier: specifier, Importer: "<remote>"}
	}
	return ModuleSource{Path: specifier, Code: v.(string)}, nil
}

// BeginCompile registers path as in-progress on chain (the sequence of
// importer paths leading to it), returning an *ImportCycleError if path
// already appears in chain. Callers must pair a successful BeginCompile
// with FinishCompile.
func (r *Resolver) BeginCompile(path string, chain []string) (*moduleCacheEntry, bool, error) {
	for _, p := range chain {
		if p == path {
			return nil, false, &ImportCycleError{Chain: append(append([]string{}, chain...), path)}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.cache[path]; ok {
		return entry, false, nil
	}
	entry := &moduleCacheEntry{done: make(chan struct{})}
	r.cache[path] = entry
	return entry, true, nil
}

// FinishCompile publishes a module's compiled result (or error) and
// wakes any goroutine blocked waiting on the same path.
func (r *Resolver) FinishCompile(entry *moduleCacheEntry, result *TranspileResult, err error) {
	entry.mu.Lock()
	entry.result = result
	entry.err = err
	entry.ready = true
	entry.mu.Unlock()
	close(entry.done)
}

// Await blocks until entry is resolved, for a second importer of the
// same module that lost the BeginCompile race.
func (r *Resolver) Await(ctx context.Context, entry *moduleCacheEntry) (*TranspileResult, error) {
	select {
	case <-entry.done:
		return entry.result, entry.err
	case <-ctx.Done():
		return nil, &CancelledError{Stage: StageResolve}
	}
}
