package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdidvp/luaguard/internal/adapters/outbound/config"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/export"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/luau"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/telemetry"
	"github.com/abdidvp/luaguard/internal/application"
	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitInput  = 2
	ExitSystem = 3
)

type rootOptions struct {
	verbose bool
	dir     string

	// shutdown flushes telemetry opened by load.
	shutdown func(context.Context) error
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "luaguard",
		Short:         "Validate Roblox Luau scripts before they ship",
		Long:          "luaguard statically checks Luau scripts for syntax, security, quality, platform compliance and educational suitability, and reports whether they are ready to deploy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log checker activity to stderr")
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "Directory holding .luaguard.yaml and the .luaguard state directory")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newRulesCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newMCPCmd(opts))
	return cmd, opts
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	export.ToolVersion = version
	cmd, opts := newRoot()
	err := cmd.Execute()
	opts.flush()
	return err
}

const flushTimeout = 5 * time.Second

func (o *rootOptions) flush() {
	if o.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := o.shutdown(ctx); err != nil {
		o.log.Warn("flushing telemetry", "error", err)
	}
}

// exitError carries a process exit code. A nil err means the outcome was
// already reported on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: ExitInput, err: err}
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if domain.IsInputError(err) {
		return ExitInput
	}
	return ExitSystem
}

// Silent reports whether err needs no message on stderr.
func Silent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.err == nil
}

// engine bundles everything a command needs to validate scripts.
type engine struct {
	cfg    domain.EngineConfig
	rules  *domain.RuleSet
	svc    *application.ValidationService
	logger *slog.Logger
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// load reads .luaguard.yaml and the rule catalogue and builds the engine.
// A broken config or catalogue is the user's to fix, so both surface as
// usage errors.
func (o *rootOptions) load(cmd *cobra.Command) (*engine, error) {
	logger := o.logger(cmd)

	cfg, err := config.New().Load(o.dir)
	if err != nil {
		return nil, usageError(fmt.Errorf("loading config: %w", err))
	}
	rs, err := rules.New().Load(cfg.RulesFile)
	if err != nil {
		return nil, usageError(fmt.Errorf("loading rules: %w", err))
	}
	logger.Debug("engine configured", "rules_version", rs.Version, "timeout", cfg.Timeout(), "concurrency", cfg.BatchConcurrency)

	observer, shutdown, err := telemetry.Setup(cmd.Context(), version)
	if err != nil {
		return nil, err
	}
	o.shutdown, o.log = shutdown, logger
	if telemetry.Enabled() {
		logger.Debug("exporting spans over OTLP")
	}

	svc := application.NewValidationService(cfg, rs, luau.New(),
		application.WithLogger(logger),
		application.WithObserver(observer),
	)
	return &engine{cfg: cfg, rules: rs, svc: svc, logger: logger}, nil
}

func statusCode(s domain.OverallStatus) int {
	switch s {
	case domain.StatusPassed, domain.StatusPassedWithWarnings:
		return ExitOK
	default:
		return ExitFailed
	}
}

// batchCode returns the worst exit code across items.
func batchCode(batch *domain.BatchResult) int {
	code := ExitOK
	for _, item := range batch.Items {
		c := statusCode(item.Status)
		if item.Error != nil {
			c = ExitSystem
			if item.Error.Kind == domain.KindInput {
				c = ExitInput
			}
		}
		code = max(code, c)
	}
	return code
}

func exitFor(code int) error {
	if code == ExitOK {
		return nil
	}
	return &exitError{code: code}
}
