// Package harness provides conformance testing for document regeneration.
//
// The harness loads YAML scenarios describing a set of input documents, runs
// one regeneration pass over them, and validates outcome counts plus the final
// document bytes as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	documents:
//	  notes.md: |
//	    <!--pytextgen:evaluate
//	    func Generate(env map[string]string) (string, error) { ... }
//	    -->
//	    stale
//	    <!--/pytextgen-->
//	inputs:
//	  lang: en
//	on_error: skip-region
//	timestamp: false
//	expect:
//	  changed: 1
//	  unchanged: 0
//	  failed: 0
//	  error_codes: []
//
// # Deterministic Testing
//
// Scenarios execute with a deterministic clock so timestamp comments are
// reproducible, and the run token is excluded from snapshots. The final
// document bytes are therefore identical across runs and suitable for golden
// file comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/regenerate.yaml")
//	if err != nil {
//	    t.Fatal(err)
//	}
//	result, err := harness.Run(t, scenario)
//
// Or compare the final documents against a golden file:
//
//	harness.RunWithGolden(t, scenario)
package harness
