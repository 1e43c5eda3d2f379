package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/polyipseity/pytextgen/internal/engine"
)

// Scenario defines one conformance test: a document set, run parameters and
// the expected outcome of a single regeneration pass.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Documents maps file names to initial document content. Each run
	// materializes them in a fresh directory.
	Documents map[string]string `yaml:"documents"`

	// Inputs are run-wide variables folded into every region fingerprint.
	Inputs map[string]string `yaml:"inputs,omitempty"`

	// OnError selects the failure policy: "skip-region" (default) or
	// "abort-document".
	OnError string `yaml:"on_error,omitempty"`

	// Timestamp enables generated-at comments. The harness clock is
	// deterministic, so stamped output is still reproducible.
	Timestamp bool `yaml:"timestamp,omitempty"`

	// Passes is the number of regeneration passes to run over the same
	// documents. Defaults to 1; use 2 to validate idempotence. Expect
	// applies to the final pass.
	Passes int `yaml:"passes,omitempty"`

	// Expect validates the final pass's outcome counts and error codes.
	Expect Expectation `yaml:"expect"`
}

// Expectation pins down the outcome of the final pass.
type Expectation struct {
	Changed   int `yaml:"changed"`
	Unchanged int `yaml:"unchanged"`
	Failed    int `yaml:"failed"`

	// ErrorCodes lists the error codes that must each appear at least
	// once across the run's region errors.
	ErrorCodes []string `yaml:"error_codes,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// Validate rejects scenarios the harness cannot execute.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario must have a name")
	}
	if len(s.Documents) == 0 {
		return fmt.Errorf("scenario %q must define at least one document", s.Name)
	}
	if s.Passes < 0 {
		return fmt.Errorf("scenario %q: passes must be >= 0, got %d", s.Name, s.Passes)
	}
	switch engine.OnError(s.OnError) {
	case "", engine.SkipRegion, engine.AbortDocument:
	default:
		return fmt.Errorf("scenario %q: unknown on_error %q", s.Name, s.OnError)
	}
	return nil
}
