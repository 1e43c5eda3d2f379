// Package engine orchestrates regeneration across a set of documents.
//
// For each document the engine extracts regions, fingerprints them, asks the
// compile cache to get-or-compute each region's output through its strategy,
// joins all region results, and atomically rewrites the file when anything
// changed. Failures are isolated: one region's error never stops its
// siblings, and one document's failure never stops the run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/polyipseity/pytextgen/internal/cache"
	"github.com/polyipseity/pytextgen/internal/document"
	"github.com/polyipseity/pytextgen/internal/fingerprint"
	"github.com/polyipseity/pytextgen/internal/rewrite"
	"github.com/polyipseity/pytextgen/internal/strategy"
)

// OnError selects the failure policy within one document.
type OnError string

const (
	// SkipRegion regenerates the healthy regions of a document even when
	// a sibling region fails; failed regions keep their prior bytes.
	SkipRegion OnError = "skip-region"

	// AbortDocument leaves the whole document untouched when any of its
	// regions fails.
	AbortDocument OnError = "abort-document"
)

// Defaults for the concurrency bounds.
const (
	DefaultMaxDocuments = 8
	DefaultMaxRegions   = 4
)

// timestampFormat is the optional generated-at comment prepended to a
// region's body. It is excluded from change detection so a stale stamp never
// forces a rewrite by itself.
const timestampFormat = "<!--pytextgen generated at %s-->\n"

var timestampPattern = regexp.MustCompile(`^<!--pytextgen generated at [^>]*-->\n`)

// Engine drives a bounded-concurrency regeneration pass.
//
// The compile cache is the only shared mutable state; documents and their
// spans are owned exclusively by one task from read until the final text is
// handed to the atomic write.
type Engine struct {
	cache    *cache.Cache
	registry *strategy.Registry

	maxDocuments int
	maxRegions   int
	onError      OnError
	timestamp    bool
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDocuments bounds simultaneously in-flight documents.
func WithMaxDocuments(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDocuments = n
		}
	}
}

// WithMaxRegions bounds simultaneously in-flight regions within one document.
func WithMaxRegions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRegions = n
		}
	}
}

// WithOnError selects the per-document failure policy. Default: SkipRegion.
func WithOnError(policy OnError) Option {
	return func(e *Engine) { e.onError = policy }
}

// WithTimestamp enables the generated-at comment on rewritten bodies.
func WithTimestamp(enabled bool) Option {
	return func(e *Engine) { e.timestamp = enabled }
}

// WithClock overrides the time source for timestamp comments. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given cache and strategy registry.
func New(c *cache.Cache, registry *strategy.Registry, opts ...Option) *Engine {
	e := &Engine{
		cache:        c,
		registry:     registry,
		maxDocuments: DefaultMaxDocuments,
		maxRegions:   DefaultMaxRegions,
		onError:      SkipRegion,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run regenerates every document in paths and returns the aggregated result.
//
// Run never returns an error for per-document or per-region failures; those
// are collected in the RunResult. The returned error is non-nil only for
// run-level conditions (currently: context cancellation before any work
// could be recorded is still reported per document).
func (e *Engine) Run(ctx context.Context, paths []string, env *strategy.Environment) (*RunResult, error) {
	if env == nil {
		env = &strategy.Environment{}
	}
	paths = dedupePaths(paths)

	result := &RunResult{
		Token:     uuid.Must(uuid.NewV7()).String(),
		Documents: make(map[string]DocumentResult, len(paths)),
	}
	slog.Debug("run starting", "token", result.Token, "documents", len(paths))

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(e.maxDocuments)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			dr := e.processDocument(ctx, path, env.ForDocument(path))
			mu.Lock()
			result.add(dr)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the result

	slog.Debug("run finished",
		"token", result.Token,
		"changed", result.Changed,
		"unchanged", result.Unchanged,
		"failed", result.Failed)
	return result, nil
}

// dedupePaths drops repeated paths, keeping first-occurrence order. A path
// listed twice would race on its own rewrite and bump the outcome counters
// once per occurrence while Documents keeps a single key.
func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	unique := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		unique = append(unique, path)
	}
	return unique
}

// processDocument runs the full pipeline for one document. It owns the
// document exclusively and never lets a failure escape into other documents.
func (e *Engine) processDocument(ctx context.Context, path string, env *strategy.Environment) DocumentResult {
	dr := DocumentResult{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		dr.Outcome = OutcomeFailed
		dr.Errors = append(dr.Errors, &RegionError{
			Code:    ErrCodeRead,
			Message: "failed to read document",
			Path:    path,
			Offset:  -1,
			Err:     err,
		})
		return dr
	}

	doc, parseErrs := document.Parse(path, string(raw))
	for _, perr := range parseErrs {
		offset := -1
		if pe, ok := perr.(*document.ParseError); ok {
			offset = pe.Offset
		}
		dr.Errors = append(dr.Errors, &RegionError{
			Code:    ErrCodeParse,
			Message: perr.Error(),
			Path:    path,
			Offset:  offset,
			Err:     perr,
		})
	}

	regions := doc.Regions()
	dr.Regions = len(regions)

	if e.onError == AbortDocument && len(dr.Errors) > 0 {
		dr.Outcome = OutcomeFailed
		return dr
	}

	outputs, regionErrs := e.evaluateRegions(ctx, doc, regions, env)
	dr.Errors = append(dr.Errors, regionErrs...)

	// Cancellation must not trigger partial writes.
	if ctx.Err() != nil {
		dr.Outcome = OutcomeFailed
		return dr
	}
	if e.onError == AbortDocument && len(dr.Errors) > 0 {
		dr.Outcome = OutcomeFailed
		return dr
	}

	if len(outputs) == 0 {
		if len(dr.Errors) > 0 {
			dr.Outcome = OutcomeFailed
		} else {
			dr.Outcome = OutcomeUnchanged
		}
		return dr
	}

	merged, err := rewrite.Merge(doc.Source, doc.Spans, outputs)
	if err != nil {
		dr.Outcome = OutcomeFailed
		dr.Errors = append(dr.Errors, &RegionError{
			Code:    ErrCodeWrite,
			Message: "failed to assemble document",
			Path:    path,
			Offset:  -1,
			Err:     err,
		})
		return dr
	}

	perm := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := rewrite.WriteFile(path, []byte(merged), perm); err != nil {
		dr.Outcome = OutcomeFailed
		dr.Errors = append(dr.Errors, &RegionError{
			Code:    ErrCodeWrite,
			Message: "atomic rewrite failed",
			Path:    path,
			Offset:  -1,
			Err:     err,
		})
		return dr
	}

	if len(dr.Errors) > 0 {
		dr.Outcome = OutcomeFailed
	} else {
		dr.Outcome = OutcomeChanged
	}
	slog.Debug("document rewritten", "path", path, "regions", len(regions), "replaced", len(outputs))
	return dr
}

// evaluateRegions computes every region's output concurrently and returns
// the bodies that actually changed, keyed by region ordinal. The join on the
// inner group is the barrier: the rewriter only ever sees a complete set.
func (e *Engine) evaluateRegions(ctx context.Context, doc *document.Document, regions []document.Region, env *strategy.Environment) (map[int]string, []*RegionError) {
	type evaluated struct {
		output string
		err    *RegionError
		fresh  bool
	}
	results := make([]evaluated, len(regions))

	g := &errgroup.Group{}
	g.SetLimit(e.maxRegions)

	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			output, rerr := e.evaluateRegion(ctx, doc.Path, region, env)
			if rerr != nil {
				results[i] = evaluated{err: rerr}
				return nil
			}
			results[i] = evaluated{output: output, fresh: true}
			return nil
		})
	}
	_ = g.Wait()

	outputs := make(map[int]string)
	var errs []*RegionError
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		if !res.fresh {
			continue
		}
		// Unchanged bodies are not rewritten: comparing without the
		// generated-at stamp keeps reruns diff-free.
		if stripTimestamp(regions[i].Prior) == res.output {
			continue
		}
		outputs[i] = e.stampBody(res.output)
	}
	return outputs, errs
}

// evaluateRegion resolves, fingerprints and computes one region through the
// compile cache.
func (e *Engine) evaluateRegion(ctx context.Context, path string, region document.Region, env *strategy.Environment) (string, *RegionError) {
	strat, err := e.registry.Resolve(region.Directive)
	if err != nil {
		return "", &RegionError{
			Code:      ErrCodeUnknownDirective,
			Message:   err.Error(),
			Path:      path,
			Directive: region.Directive,
			Offset:    region.Start,
			Err:       err,
		}
	}

	key, err := fingerprint.Key(region.Directive, region.Payload, env.Snapshot())
	if err != nil {
		return "", &RegionError{
			Code:      ErrCodeStrategy,
			Message:   "failed to fingerprint region",
			Path:      path,
			Directive: region.Directive,
			Offset:    region.Start,
			Err:       err,
		}
	}

	output, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (string, error) {
		return strat.Evaluate(ctx, region.Payload, env)
	})
	if err != nil {
		code := ErrCodeStrategy
		var be *cache.BackingError
		if errors.As(err, &be) {
			code = ErrCodeCache
		}
		return "", &RegionError{
			Code:      code,
			Message:   fmt.Sprintf("region %q failed: %v", region.Directive, err),
			Path:      path,
			Directive: region.Directive,
			Offset:    region.Start,
			Err:       err,
		}
	}
	return output, nil
}

// stampBody prepends the generated-at comment when timestamps are enabled.
// Empty bodies (cleared regions) are never stamped.
func (e *Engine) stampBody(output string) string {
	if !e.timestamp || output == "" {
		return output
	}
	return fmt.Sprintf(timestampFormat, e.now().Format(time.RFC3339)) + output
}

// stripTimestamp removes a leading generated-at comment from a body.
func stripTimestamp(body string) string {
	return timestampPattern.ReplaceAllString(body, "")
}
