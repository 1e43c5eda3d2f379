package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyipseity/pytextgen/internal/engine"
)

func loadAndRun(t *testing.T, name string) *Result {
	t.Helper()
	scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	result, err := Run(t, scenario)
	require.NoError(t, err)
	return result
}

func TestRunSecondPassIsNoop(t *testing.T) {
	result := loadAndRun(t, "idempotent")
	result.Assert(t)

	assert.Contains(t, result.Documents["notes.md"], "-->stable output<!--/pytextgen-->")
}

func TestRunAbortedDocumentUntouched(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/abort_document.yaml")
	require.NoError(t, err)

	result, err := Run(t, scenario)
	require.NoError(t, err)
	result.Assert(t)

	// The valid region after the unmatched marker was never rewritten.
	assert.Equal(t, scenario.Documents["broken.md"], result.Documents["broken.md"])
}

func TestRunUnknownDirectiveKeepsPrior(t *testing.T) {
	result := loadAndRun(t, "unknown_directive")
	result.Assert(t)

	assert.Contains(t, result.Documents["notes.md"], "prior body")

	doc := result.Run.Documents[onlyDocumentPath(t, result)]
	assert.Equal(t, engine.OutcomeFailed, doc.Outcome)
}

func onlyDocumentPath(t *testing.T, result *Result) string {
	t.Helper()
	require.Len(t, result.Run.Documents, 1)
	for path := range result.Run.Documents {
		return path
	}
	return ""
}
