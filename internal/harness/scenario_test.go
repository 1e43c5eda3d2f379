package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/regenerate.yaml")
	require.NoError(t, err)

	assert.Equal(t, "regenerate", scenario.Name)
	assert.NotEmpty(t, scenario.Description)
	require.Contains(t, scenario.Documents, "notes.md")
	assert.Contains(t, scenario.Documents["notes.md"], "<!--pytextgen:evaluate")
	assert.Equal(t, 1, scenario.Expect.Changed)
}

func TestLoadScenarioMissingName(t *testing.T) {
	path := writeScenario(t, `
documents:
  a.md: "text"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have a name")
}

func TestLoadScenarioNoDocuments(t *testing.T) {
	path := writeScenario(t, "name: empty\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one document")
}

func TestLoadScenarioBadOnError(t *testing.T) {
	path := writeScenario(t, `
name: bad
documents:
  a.md: "text"
on_error: explode
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown on_error")
}

func TestLoadScenarioNegativePasses(t *testing.T) {
	path := writeScenario(t, `
name: bad
documents:
  a.md: "text"
passes: -1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passes must be >= 0")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario")
}

func TestLoadScenarioInvalidYAML(t *testing.T) {
	path := writeScenario(t, "name: [unclosed\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario")
}
