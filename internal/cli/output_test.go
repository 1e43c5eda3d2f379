package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyipseity/pytextgen/internal/engine"
)

func TestExitError(t *testing.T) {
	base := errors.New("base failure")
	err := WrapExitError(ExitCommandError, "wrapped", base)

	assert.Equal(t, "wrapped: base failure", err.Error())
	assert.Equal(t, base, errors.Unwrap(err))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCodeDefaults(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestGetExitCodeWrapped(t *testing.T) {
	inner := NewExitError(ExitCommandError, "inner")
	outer := fmt.Errorf("context: %w", inner)
	assert.Equal(t, ExitCommandError, GetExitCode(outer))
}

func sampleResult() *engine.RunResult {
	return &engine.RunResult{
		Token: "0190abcd-0000-7000-8000-000000000000",
		Documents: map[string]engine.DocumentResult{
			"b.md": {Path: "b.md", Outcome: engine.OutcomeFailed, Regions: 1, Errors: []*engine.RegionError{
				{Code: engine.ErrCodeStrategy, Message: "boom", Path: "b.md", Directive: "evaluate"},
			}},
			"a.md": {Path: "a.md", Outcome: engine.OutcomeChanged, Regions: 2},
			"c.md": {Path: "c.md", Outcome: engine.OutcomeUnchanged, Regions: 1},
		},
		Changed:   1,
		Unchanged: 1,
		Failed:    1,
	}
}

func TestRunSummaryText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.RunSummary(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "changed 1, unchanged 1, failed 1")
	assert.Contains(t, out, "failed: b.md")
	assert.Contains(t, out, "STRATEGY_ERROR: boom")
	assert.NotContains(t, out, "a.md")
	assert.NotContains(t, out, "c.md")
}

func TestRunSummaryJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.RunSummary(sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(1), decoded["failed"])
	assert.Contains(t, decoded, "documents")
}

func TestRunSummaryTextStableOrder(t *testing.T) {
	result := &engine.RunResult{
		Documents: map[string]engine.DocumentResult{},
	}
	for _, path := range []string{"z.md", "m.md", "a.md"} {
		result.Documents[path] = engine.DocumentResult{Path: path, Outcome: engine.OutcomeFailed}
		result.Failed++
	}

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.RunSummary(result))

	out := buf.String()
	assert.Less(t, strings.Index(out, "a.md"), strings.Index(out, "m.md"))
	assert.Less(t, strings.Index(out, "m.md"), strings.Index(out, "z.md"))
}

func TestExitForResult(t *testing.T) {
	ok := &engine.RunResult{Changed: 2}
	assert.NoError(t, exitForResult(ok))

	bad := &engine.RunResult{Failed: 1}
	err := exitForResult(bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
