package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/polyipseity/pytextgen/internal/engine"
)

// RunConfig is the optional YAML run configuration shared by generate and
// clear. Flags given on the command line take precedence over file values.
type RunConfig struct {
	// Jobs bounds simultaneously in-flight documents.
	Jobs int `yaml:"jobs,omitempty"`

	// RegionJobs bounds simultaneously in-flight regions per document.
	RegionJobs int `yaml:"region_jobs,omitempty"`

	// Cache is the path of the durable cache database. Empty means
	// in-memory only.
	Cache string `yaml:"cache,omitempty"`

	// OnError selects the per-document failure policy:
	// "skip-region" (default) or "abort-document".
	OnError string `yaml:"on_error,omitempty"`

	// Timestamp enables the generated-at comment on rewritten bodies.
	// A nil pointer means the key was absent and the flag default applies.
	Timestamp *bool `yaml:"timestamp,omitempty"`

	// Inputs are run-wide variables exposed to payloads and folded into
	// every region fingerprint.
	Inputs map[string]string `yaml:"inputs,omitempty"`
}

// LoadRunConfig reads and validates a YAML run configuration.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot honor.
func (c *RunConfig) Validate() error {
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.RegionJobs < 0 {
		return fmt.Errorf("region_jobs must be >= 0, got %d", c.RegionJobs)
	}
	switch engine.OnError(c.OnError) {
	case "", engine.SkipRegion, engine.AbortDocument:
	default:
		return fmt.Errorf("on_error must be %q or %q, got %q",
			engine.SkipRegion, engine.AbortDocument, c.OnError)
	}
	return nil
}
