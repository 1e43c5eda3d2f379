package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polyipseity/pytextgen/internal/document"
)

// regionInfo is one row of the list output.
type regionInfo struct {
	Path      string `json:"path"`
	Directive string `json:"directive"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Payload   string `json:"payload,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := rootOpts

	cmd := &cobra.Command{
		Use:   "list <files...>",
		Short: "List the generation regions in the given documents",
		Long: `List every generation region in the given documents without rewriting
anything: document path, directive, byte offsets and payload.

Example:
  pytextgen list notes/*.md
  pytextgen list --format json notes/today.md`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []regionInfo
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read document", err)
				}
				doc, perrs := document.Parse(path, string(raw))
				if len(perrs) > 0 {
					return WrapExitError(ExitCommandError,
						fmt.Sprintf("failed to parse %s", path), perrs[0])
				}
				for _, region := range doc.Regions() {
					start, end := region.Bounds()
					rows = append(rows, regionInfo{
						Path:      path,
						Directive: region.Directive,
						Start:     start,
						End:       end,
						Payload:   region.Payload,
					})
				}
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return json.NewEncoder(out).Encode(rows)
			}
			for _, row := range rows {
				fmt.Fprintf(out, "%s\t%s\t[%d:%d]\t%s\n",
					row.Path, row.Directive, row.Start, row.End, row.Payload)
			}
			return nil
		},
	}

	return cmd
}
