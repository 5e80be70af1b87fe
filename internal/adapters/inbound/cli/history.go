package cli

import (
	"encoding/json"
	"fmt"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/history"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/tui"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		script     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded validation runs",
		Long:  "Show the runs recorded with --history, oldest first, with per-script score trends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.New().Load(opts.dir)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}

			if script != "" {
				entries = history.ForScript(entries, script)
			}

			if jsonOutput {
				if entries == nil {
					entries = []domain.HistoryEntry{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output history as JSON")
	cmd.Flags().StringVar(&script, "script", "", "Only show entries for one script")

	return cmd
}
