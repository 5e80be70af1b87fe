package cli

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/spf13/cobra"
)

var ruleSections = []string{"syntax", "security", "guards", "content", "policies"}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		section    string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the loaded rule catalogue",
		Long:  "Print every rule the checkers apply, including overrides from the configured rules_file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if section != "" && !slices.Contains(ruleSections, section) {
				return usageError(fmt.Errorf("unknown section %q (valid: syntax, security, guards, content, policies)", section))
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var entries []rules.Entry
			for _, entry := range rules.Catalogue(e.rules) {
				if section == "" || entry.Section == section {
					entries = append(entries, entry)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			fmt.Fprintf(out, "rules %s: %d entries\n\n", e.rules.Version, len(entries))
			for _, entry := range entries {
				sev := entry.Severity
				if sev == "" {
					sev = "-"
				}
				fmt.Fprintf(out, "%-9s %-9s %-24s %s\n", entry.ID, entry.Section, entry.Category, entry.Message)
				fmt.Fprintf(out, "%-9s severity: %s\n", "", sev)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the catalogue as JSON")
	cmd.Flags().StringVar(&section, "section", "", "Only list one section (syntax, security, guards, content, policies)")

	return cmd
}
