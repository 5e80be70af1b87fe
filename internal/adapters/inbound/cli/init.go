package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/config"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Generate a .luaguard.yaml configuration file",
		Long:  "Create a .luaguard.yaml holding the default weights, limits and thresholds.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			dest := filepath.Join(absPath, config.FileName)

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return usageError(fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName))
				}
			}

			if err := os.WriteFile(dest, []byte(generateConfig(domain.DefaultConfig())), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing .luaguard.yaml")

	return cmd
}

func generateConfig(cfg domain.EngineConfig) string {
	var b strings.Builder
	b.WriteString("# luaguard configuration\n\n")

	b.WriteString("weights:\n")
	// Ordered output for readability
	for _, name := range domain.CheckerOrder {
		fmt.Fprintf(&b, "  %s: %.2f\n", name, cfg.Weight(name))
	}

	fmt.Fprintf(&b, "\nchecker_timeout: %s\n", cfg.Timeout())
	fmt.Fprintf(&b, "max_script_bytes: %d\n", cfg.MaxScriptBytes)
	fmt.Fprintf(&b, "batch_concurrency: %d\n", cfg.BatchConcurrency)

	b.WriteString("\n# All listed security flags must hold for a report to be platform compliant.\n")
	b.WriteString("required_security_flags:\n")
	for _, f := range cfg.RequiredSecurityFlags {
		fmt.Fprintf(&b, "  - %s\n", f)
	}

	q := cfg.Quality
	fmt.Fprintf(&b, "\nquality:\n  max_complexity: %d\n  max_nesting: %d\n  max_function_lines: %d\n  max_params: %d\n  min_comment_ratio: %.2f\n",
		q.MaxComplexity, q.MaxNesting, q.MaxFunctionLines, q.MaxParams, q.MinCommentRatio)

	e := cfg.Educational
	fmt.Fprintf(&b, "\neducational:\n  subject_target: %d\n  engagement_target: %d\n  objective_threshold: %.2f\n",
		e.SubjectTarget, e.EngagementTarget, e.ObjectiveThreshold)

	b.WriteString("\n# rules_file: rules.yaml\n")
	return b.String()
}
