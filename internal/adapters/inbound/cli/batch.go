package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/abdidvp/luaguard/internal/adapters/inbound/schema"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/export"
	"github.com/abdidvp/luaguard/internal/application"
	"github.com/spf13/cobra"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var run runFlags

	cmd := &cobra.Command{
		Use:   "batch <requests.json>",
		Short: "Validate a JSON batch of requests",
		Long:  "Validate every request in a JSON file (an array, or an object with a \"requests\" array). Use - to read from stdin. Items are reported in input order.",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(run.format)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, args[0])
			if err != nil {
				return usageError(err)
			}
			decoded, err := schema.DecodeBatch(data)
			if err != nil {
				return err
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			validated, err := newProjectService(e, opts.dir).ValidateRequests(cmd.Context(), decoded.Requests, run.options(opts.dir))
			if err != nil {
				return err
			}
			batch := application.Reassemble(decoded.Size, decoded.Index, validated, decoded.Rejected)

			out, err := export.Batch(batch, format)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			return exitFor(batchCode(batch))
		},
	}

	run.register(cmd)

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
