package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/polyipseity/pytextgen/internal/cache"
	"github.com/polyipseity/pytextgen/internal/engine"
	"github.com/polyipseity/pytextgen/internal/strategy"
	"github.com/polyipseity/pytextgen/internal/testutil"
)

// clockBase anchors the deterministic clock so stamped output is identical
// across runs.
var clockBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result captures one scenario execution: the final pass's run result and
// the final bytes of every document, keyed by the scenario's document name.
type Result struct {
	Scenario  *Scenario
	Run       *engine.RunResult
	Documents map[string]string
}

// Run executes a scenario in a fresh directory and returns the result.
// Expectations are not checked here; see Result.Assert and RunWithGolden.
func Run(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(scenario.Documents))
	for name, content := range scenario.Documents {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		paths = append(paths, path)
	}

	registry := strategy.NewRegistry()
	if err := registry.Register("evaluate", strategy.NewEval()); err != nil {
		return nil, err
	}
	if err := registry.Register("clear", strategy.NewClear()); err != nil {
		return nil, err
	}

	clock := testutil.NewDeterministicClock(clockBase, time.Second)
	onError := engine.SkipRegion
	if scenario.OnError != "" {
		onError = engine.OnError(scenario.OnError)
	}

	passes := scenario.Passes
	if passes == 0 {
		passes = 1
	}

	var result *engine.RunResult
	for pass := 0; pass < passes; pass++ {
		// A fresh cache per pass, so later passes prove idempotence of
		// the documents rather than of the cache.
		store := cache.New()
		eng := engine.New(store, registry,
			engine.WithOnError(onError),
			engine.WithTimestamp(scenario.Timestamp),
			engine.WithClock(clock.Now),
		)
		var err error
		result, err = eng.Run(context.Background(), paths, &strategy.Environment{Vars: scenario.Inputs})
		closeErr := store.Close()
		if err != nil {
			return nil, fmt.Errorf("scenario %s pass %d: %w", scenario.Name, pass+1, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("scenario %s pass %d: %w", scenario.Name, pass+1, closeErr)
		}
	}

	finals := make(map[string]string, len(scenario.Documents))
	for name := range scenario.Documents {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		finals[name] = string(raw)
	}

	return &Result{Scenario: scenario, Run: result, Documents: finals}, nil
}

// Assert checks the scenario's expectations against the final pass.
func (r *Result) Assert(t *testing.T) {
	t.Helper()

	expect := r.Scenario.Expect
	if r.Run.Changed != expect.Changed {
		t.Errorf("scenario %s: changed = %d, want %d", r.Scenario.Name, r.Run.Changed, expect.Changed)
	}
	if r.Run.Unchanged != expect.Unchanged {
		t.Errorf("scenario %s: unchanged = %d, want %d", r.Scenario.Name, r.Run.Unchanged, expect.Unchanged)
	}
	if r.Run.Failed != expect.Failed {
		t.Errorf("scenario %s: failed = %d, want %d", r.Scenario.Name, r.Run.Failed, expect.Failed)
	}

	for _, code := range expect.ErrorCodes {
		if !r.hasErrorCode(code) {
			t.Errorf("scenario %s: expected an error with code %s, got %v",
				r.Scenario.Name, code, r.Run.Errors())
		}
	}
}

func (r *Result) hasErrorCode(code string) bool {
	for _, rerr := range r.Run.Errors() {
		if string(rerr.Code) == code {
			return true
		}
	}
	return false
}
