package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/polyipseity/pytextgen/internal/document"
	"github.com/polyipseity/pytextgen/internal/strategy"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts, cacheVersion: clearCacheVersion}

	cmd := &cobra.Command{
		Use:   "clear <files...>",
		Short: "Empty every generation region in the given documents",
		Long: `Empty the body of every generation region in the given documents,
regardless of directive. Markers and payloads stay in place, so a later
generate run restores the regions.

Example:
  pytextgen clear notes/*.md`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			directives, err := scanDirectives(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to scan documents", err)
			}

			// Bind the clearing strategy to each directive actually
			// present, so unknown-directive handling still fires for
			// regions that appear between scan and run.
			registry := strategy.NewRegistry()
			clearer := strategy.NewClear()
			for _, directive := range directives {
				if err := registry.Register(directive, clearer); err != nil {
					return WrapExitError(ExitCommandError, "failed to register strategies", err)
				}
			}

			opts.Timestamp = false
			return runEngine(cmd, opts, registry, args)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML run configuration")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max documents processed simultaneously")
	cmd.Flags().IntVar(&opts.RegionJobs, "region-jobs", 0, "max regions evaluated simultaneously per document")
	cmd.Flags().StringVar(&opts.OnError, "on-error", "skip-region", "failure policy: skip-region|abort-document")

	return cmd
}

// scanDirectives collects the distinct directives used across the given
// documents. Unreadable or malformed documents are skipped here; the engine
// reports them properly during the run itself.
func scanDirectives(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		spans, _ := document.Extract(string(raw))
		for _, span := range spans {
			if region, ok := span.(document.Region); ok {
				seen[region.Directive] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no generation regions found in %d document(s)", len(paths))
	}
	directives := make([]string, 0, len(seen))
	for directive := range seen {
		directives = append(directives, directive)
	}
	sort.Strings(directives)
	return directives, nil
}
