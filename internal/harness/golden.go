package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// snapshot is the golden-file shape for one scenario execution. The run token
// is deliberately absent: it is fresh per run and would break comparison.
type snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Changed      int               `json:"changed"`
	Unchanged    int               `json:"unchanged"`
	Failed       int               `json:"failed"`
	Documents    map[string]string `json:"documents"`
}

// RunWithGolden executes a scenario, checks its expectations and compares the
// final document bytes against a golden file under
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(t, scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	result.Assert(t)

	snap := snapshot{
		ScenarioName: scenario.Name,
		Changed:      result.Run.Changed,
		Unchanged:    result.Run.Unchanged,
		Failed:       result.Run.Failed,
		Documents:    result.Documents,
	}
	// Map keys marshal in sorted order, so the snapshot is deterministic.
	// HTML escaping is off to keep the region markers readable in goldens.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&snap); err != nil {
		t.Fatalf("scenario %s: marshal snapshot: %v", scenario.Name, err)
	}
	raw := buf.Bytes()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, raw)
}
