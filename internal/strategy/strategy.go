// Package strategy defines the pluggable generation strategies that turn a
// region's payload into output text, and the registry that resolves them by
// directive name.
//
// The capability set is closed: a strategy evaluates a payload against a
// caller-supplied environment and returns replacement text. Registering a new
// strategy never requires changes to the extractor, the fingerprinter, or the
// rewriter.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Strategy produces the replacement body for one region.
type Strategy interface {
	// Evaluate consumes the region's payload and returns the new body
	// text. The environment is supplied by the external caller per run
	// and passed explicitly, never ambient. Evaluate must honor ctx
	// cancellation.
	Evaluate(ctx context.Context, payload string, env *Environment) (string, error)
}

// Environment is the execution context a strategy evaluates against. It is
// opaque to the core: the engine only threads it through to Evaluate and
// folds its snapshot into region fingerprints.
type Environment struct {
	// File is the path of the document being regenerated ("cwf" in the
	// payload's view).
	File string

	// Dir is the document's directory ("cwd").
	Dir string

	// Vars holds caller-supplied variables shared by every document in a
	// run.
	Vars map[string]string
}

// ForDocument derives a per-document environment sharing the run's
// variables.
func (e *Environment) ForDocument(path string) *Environment {
	derived := &Environment{
		File: path,
		Dir:  filepath.Dir(path),
		Vars: e.Vars,
	}
	return derived
}

// Snapshot returns the declared-input set for fingerprinting and for the
// payload's view of the environment. The snapshot is an explicit, stable
// copy: changing any value changes every dependent region's fingerprint.
func (e *Environment) Snapshot() map[string]string {
	snapshot := make(map[string]string, len(e.Vars)+2)
	for k, v := range e.Vars {
		snapshot[k] = v
	}
	if e.File != "" {
		snapshot["cwf"] = e.File
	}
	if e.Dir != "" {
		snapshot["cwd"] = e.Dir
	}
	return snapshot
}

// ErrNotFound reports a directive with no registered strategy.
var ErrNotFound = errors.New("no strategy registered for directive")

// Registry maps directive names to strategies. External collaborators
// register pairs at process start; the core only resolves.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register binds a directive to a strategy. A directive must resolve to
// exactly one strategy, so duplicate registration is an error.
func (r *Registry) Register(directive string, s Strategy) error {
	if directive == "" {
		return fmt.Errorf("directive must not be empty")
	}
	if s == nil {
		return fmt.Errorf("strategy for directive %q must not be nil", directive)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[directive]; exists {
		return fmt.Errorf("directive %q already registered", directive)
	}
	r.strategies[directive] = s
	return nil
}

// Resolve returns the strategy for a directive, or an error wrapping
// ErrNotFound.
func (r *Registry) Resolve(directive string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[directive]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, directive)
	}
	return s, nil
}

// Directives returns the registered directive names, sorted.
func (r *Registry) Directives() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
