package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// DefaultEvalTimeout bounds a single payload evaluation. Payloads are small
// snippets; anything slower is runaway code.
const DefaultEvalTimeout = 30 * time.Second

// evalAllowedImports is the stdlib allowlist for interpreted payloads.
// Filesystem, network, process and unsafe packages are deliberately absent so
// a payload cannot reach outside its environment.
var evalAllowedImports = map[string]bool{
	"bytes":           true,
	"encoding/base64": true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"path":            true,
	"path/filepath":   true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"text/template":   true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
}

// Eval executes a region's payload as an interpreted Go snippet and captures
// its textual result.
//
// The payload must define
//
//	func Generate(env map[string]string) (string, error)
//
// which receives the environment snapshot (cwf, cwd and run variables) and
// returns the new region body. The snippet runs in a fresh sandboxed
// interpreter per evaluation: stdlib symbols only, import allowlist, no
// shared state between regions. Runtime failures are region-level errors,
// never fatal to the run.
type Eval struct {
	timeout time.Duration
}

// EvalOption configures an Eval strategy.
type EvalOption func(*Eval)

// WithEvalTimeout overrides DefaultEvalTimeout.
func WithEvalTimeout(d time.Duration) EvalOption {
	return func(e *Eval) { e.timeout = d }
}

// NewEval creates the evaluate strategy.
func NewEval(opts ...EvalOption) *Eval {
	e := &Eval{timeout: DefaultEvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements Strategy.
func (e *Eval) Evaluate(ctx context.Context, payload string, env *Environment) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", fmt.Errorf("empty payload: nothing to evaluate")
	}
	if err := validateImports(payload); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// The interpreter has no preemption point anywhere, top-level init
	// included, so compile and run the payload on its own goroutine and
	// race the whole thing against the context.
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("payload panicked: %v", r)}
			}
		}()
		text, err := runPayload(payload, env)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", out.err
		}
		return out.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("payload evaluation aborted: %w", ctx.Err())
	}
}

// runPayload compiles the payload in a fresh interpreter, resolves Generate
// and invokes it. Must only be called from the evaluation goroutine.
func runPayload(payload string, env *Environment) (string, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("failed to load interpreter stdlib: %w", err)
	}

	if _, err := i.Eval(wrapPayload(payload)); err != nil {
		return "", fmt.Errorf("payload did not compile: %w", err)
	}

	v, err := i.Eval("main.Generate")
	if err != nil {
		return "", fmt.Errorf("payload must define Generate: %w", err)
	}
	generate, ok := v.Interface().(func(map[string]string) (string, error))
	if !ok {
		return "", fmt.Errorf("Generate has wrong signature: want func(map[string]string) (string, error)")
	}

	text, err := generate(env.Snapshot())
	if err != nil {
		return "", fmt.Errorf("payload evaluation failed: %w", err)
	}
	return text, nil
}

// wrapPayload prepends a package clause when the snippet omits one.
func wrapPayload(payload string) string {
	for _, line := range strings.Split(payload, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "package ") {
			return payload
		}
		break
	}
	return "package main\n\n" + payload
}

// validateImports rejects payloads importing packages outside the allowlist.
func validateImports(payload string) error {
	imports := collectImports(payload)
	for _, pkg := range imports {
		if !evalAllowedImports[pkg] {
			return fmt.Errorf("import %q is not allowed in payloads", pkg)
		}
	}
	return nil
}

// collectImports extracts import paths from both single and block import
// forms.
func collectImports(payload string) []string {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(payload, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if pkg := importPath(trimmed); pkg != "" {
				imports = append(imports, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			if pkg := importPath(strings.TrimPrefix(trimmed, "import ")); pkg != "" {
				imports = append(imports, pkg)
			}
		}
	}
	return imports
}

// importPath strips an optional alias and the surrounding quotes.
func importPath(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.HasPrefix(spec, "//") {
		return ""
	}
	if idx := strings.IndexByte(spec, '"'); idx >= 0 {
		spec = spec[idx:]
	}
	spec = strings.Trim(spec, `"`)
	return spec
}
