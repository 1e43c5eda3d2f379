package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polyipseity/pytextgen/internal/cache"
	"github.com/polyipseity/pytextgen/internal/engine"
	"github.com/polyipseity/pytextgen/internal/strategy"
)

// Cache version strings stamp durable rows with the strategy set that
// produced them, so generate and clear never read each other's outputs and a
// semantics bump turns old rows into plain misses.
const (
	generateCacheVersion = "pytextgen/strategies/v1"
	clearCacheVersion    = "pytextgen/clear/v1"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	ConfigPath   string
	cacheVersion string
	Jobs         int
	RegionJobs   int
	CachePath    string
	OnError      string
	Timestamp    bool
	Inputs       []string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts, cacheVersion: generateCacheVersion}

	cmd := &cobra.Command{
		Use:   "generate <files...>",
		Short: "Regenerate the generation regions in the given documents",
		Long: `Regenerate every generation region in the given documents.

Regions tagged with the "evaluate" directive run their payload as an
interpreted Go snippet; regions tagged "clear" are reset to empty. Text
outside the regions is preserved byte-for-byte, and documents whose regions
are already up to date are not rewritten at all.

Example:
  pytextgen generate notes/*.md
  pytextgen generate --cache ~/.cache/pytextgen.db --jobs 16 notes/*.md
  pytextgen generate --input lang=en --on-error abort-document notes/today.md`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := strategy.NewRegistry()
			if err := registry.Register("evaluate", strategy.NewEval()); err != nil {
				return WrapExitError(ExitCommandError, "failed to register strategies", err)
			}
			if err := registry.Register("clear", strategy.NewClear()); err != nil {
				return WrapExitError(ExitCommandError, "failed to register strategies", err)
			}
			return runEngine(cmd, opts, registry, args)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML run configuration")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", engine.DefaultMaxDocuments, "max documents processed simultaneously")
	cmd.Flags().IntVar(&opts.RegionJobs, "region-jobs", engine.DefaultMaxRegions, "max regions evaluated simultaneously per document")
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "durable cache database path (default: in-memory only)")
	cmd.Flags().StringVar(&opts.OnError, "on-error", string(engine.SkipRegion), "failure policy: skip-region|abort-document")
	cmd.Flags().BoolVarP(&opts.Timestamp, "timestamp", "t", true, "write a generated-at comment into rewritten regions")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "declared input as key=value (repeatable)")

	return cmd
}

// runEngine assembles cache, engine and environment from the resolved
// options and executes one pass. Shared by generate and clear.
func runEngine(cmd *cobra.Command, opts *GenerateOptions, registry *strategy.Registry, paths []string) error {
	if err := opts.applyConfig(cmd); err != nil {
		return err
	}

	// The config path is validated on load; the flag path needs the same
	// check, or a typo silently falls back to skip-region.
	switch engine.OnError(opts.OnError) {
	case engine.SkipRegion, engine.AbortDocument:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf(
			"invalid --on-error %q: must be %q or %q",
			opts.OnError, engine.SkipRegion, engine.AbortDocument))
	}

	vars, err := parseInputs(opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --input", err)
	}

	cacheOpts := []cache.Option{}
	if opts.CachePath != "" {
		// A cache backing that cannot be opened at all aborts the run
		// before any document is touched.
		backing, berr := cache.OpenSQLite(opts.CachePath, opts.cacheVersion)
		if berr != nil {
			return WrapExitError(ExitCommandError, "failed to open durable cache", berr)
		}
		cacheOpts = append(cacheOpts, cache.WithBacking(backing))
	}
	store := cache.New(cacheOpts...)
	defer store.Close()

	eng := engine.New(store, registry,
		engine.WithMaxDocuments(opts.Jobs),
		engine.WithMaxRegions(opts.RegionJobs),
		engine.WithOnError(engine.OnError(opts.OnError)),
		engine.WithTimestamp(opts.Timestamp),
	)

	result, err := eng.Run(cmd.Context(), paths, &strategy.Environment{Vars: vars})
	if err != nil {
		return WrapExitError(ExitCommandError, "run aborted", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.RunSummary(result); err != nil {
		return WrapExitError(ExitCommandError, "failed to render summary", err)
	}
	return exitForResult(result)
}

// applyConfig folds the YAML run configuration under explicitly set flags.
func (o *GenerateOptions) applyConfig(cmd *cobra.Command) error {
	if o.ConfigPath == "" {
		return nil
	}
	cfg, err := LoadRunConfig(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	flags := cmd.Flags()
	if cfg.Jobs > 0 && !flags.Changed("jobs") {
		o.Jobs = cfg.Jobs
	}
	if cfg.RegionJobs > 0 && !flags.Changed("region-jobs") {
		o.RegionJobs = cfg.RegionJobs
	}
	if cfg.Cache != "" && !flags.Changed("cache") {
		o.CachePath = cfg.Cache
	}
	if cfg.OnError != "" && !flags.Changed("on-error") {
		o.OnError = cfg.OnError
	}
	if cfg.Timestamp != nil && !flags.Changed("timestamp") {
		o.Timestamp = *cfg.Timestamp
	}
	for k, v := range cfg.Inputs {
		o.Inputs = append(o.Inputs, fmt.Sprintf("%s=%s", k, v))
	}
	return nil
}

// parseInputs converts key=value pairs into the run variable map.
func parseInputs(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
