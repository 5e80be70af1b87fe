package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/cache"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/export"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/gitinfo"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/history"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/scanner"
	"github.com/abdidvp/luaguard/internal/application"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/spf13/cobra"
)

// requestFlags holds the request fields shared by validate and batch.
type requestFlags struct {
	validationType string
	grade          string
	subject        string
	objectives     []string
	strict         bool
	suggestions    bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.validationType, "type", "", "Validation type (syntax, security, quality, compliance, educational, comprehensive)")
	cmd.Flags().StringVar(&f.grade, "grade", "", "Audience grade level (elementary, middle_school, high_school, college)")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Curriculum subject (math, science, computer_science, ...)")
	cmd.Flags().StringArrayVar(&f.objectives, "objective", nil, "Learning objective (repeatable)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Escalate community-standards findings")
	cmd.Flags().BoolVar(&f.suggestions, "suggestions", false, "Include remediation suggestions")
}

func (f *requestFlags) template() domain.ValidationRequest {
	return domain.ValidationRequest{
		ValidationType:     domain.ValidationType(f.validationType),
		GradeLevel:         domain.GradeLevel(f.grade),
		Subject:            domain.Subject(f.subject),
		LearningObjectives: f.objectives,
		StrictMode:         f.strict,
		IncludeSuggestions: f.suggestions,
	}
}

// runFlags holds persistence and output flags shared by validate and batch.
type runFlags struct {
	format  string
	noCache bool
	history bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format (text, json, sarif)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Re-run every checker instead of reusing cached reports")
	cmd.Flags().BoolVar(&f.history, "history", false, "Record the results in the run history")
}

func (f *runFlags) options(dir string) application.RunOptions {
	opts := application.RunOptions{UseCache: !f.noCache}
	if f.history {
		opts.HistoryDir = dir
	}
	return opts
}

func newProjectService(e *engine, dir string) *application.ProjectService {
	return application.NewProjectService(e.svc, scanner.New(), cache.New(dir), history.New(), gitinfo.New(), e.rules.Digest)
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		req       requestFlags
		run       runFlags
		useStdin  bool
		stdinName string
	)

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Validate Luau scripts",
		Long:  "Validate .lua and .luau files, or every script under the given directories, and print a report. Exits 1 when a script fails, 2 on invalid input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(run.format)
			if err != nil {
				return err
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			if useStdin {
				if len(args) > 0 {
					return usageError(errors.New("--stdin does not take paths"))
				}
				return validateStdin(cmd, e, req.template(), stdinName, format)
			}

			if len(args) == 0 {
				args = []string{"."}
			}
			runOpts := run.options(opts.dir)
			runOpts.Template = req.template()
			batch, err := newProjectService(e, opts.dir).ValidatePaths(cmd.Context(), args, runOpts)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return usageError(err)
				}
				return err
			}
			if len(batch.Items) == 0 {
				return usageError(errors.New("no .lua or .luau scripts found"))
			}

			var out []byte
			if len(batch.Items) == 1 && batch.Items[0].Report != nil {
				out, err = export.Report(batch.Items[0].Report, format)
			} else {
				out, err = export.Batch(batch, format)
			}
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			return exitFor(batchCode(batch))
		},
	}

	req.register(cmd)
	run.register(cmd)
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read one script from standard input")
	cmd.Flags().StringVar(&stdinName, "name", "stdin", "Script name used with --stdin")

	return cmd
}

func validateStdin(cmd *cobra.Command, e *engine, req domain.ValidationRequest, name string, format export.Format) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	req.ScriptCode = string(data)
	req.ScriptName = name

	report, err := e.svc.Validate(cmd.Context(), req)
	if err != nil {
		return err
	}
	out, err := export.Report(report, format)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return exitFor(statusCode(report.OverallStatus))
}
