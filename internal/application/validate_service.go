package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/abdidvp/luaguard/internal/domain/compliance"
	"github.com/abdidvp/luaguard/internal/domain/educational"
	"github.com/abdidvp/luaguard/internal/domain/quality"
	"github.com/abdidvp/luaguard/internal/domain/security"
	"github.com/abdidvp/luaguard/internal/domain/syntax"
	"golang.org/x/sync/errgroup"
)

// ValidationService orchestrates one validation:
// boundary checks → parse once → applicable checkers in parallel → report.
type ValidationService struct {
	cfg      domain.EngineConfig
	parser   domain.ScriptParser
	checkers []domain.Checker
	observer domain.Observer
	logger   *slog.Logger
}

// Option configures a ValidationService.
type Option func(*ValidationService)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *ValidationService) { s.logger = l }
}

// WithObserver sets the lifecycle observer used for telemetry.
func WithObserver(o domain.Observer) Option {
	return func(s *ValidationService) { s.observer = o }
}

// WithCheckers replaces the default checker set.
func WithCheckers(checkers ...domain.Checker) Option {
	return func(s *ValidationService) { s.checkers = checkers }
}

// DefaultCheckers builds the five stock checkers over a compiled rule set.
func DefaultCheckers(rs *domain.RuleSet, cfg domain.EngineConfig) []domain.Checker {
	return []domain.Checker{
		syntax.New(rs.Syntax),
		security.New(rs),
		quality.New(cfg.Quality),
		compliance.New(rs.Policies),
		educational.New(rs, cfg.Educational),
	}
}

func NewValidationService(
	cfg domain.EngineConfig,
	rules *domain.RuleSet,
	parser domain.ScriptParser,
	opts ...Option,
) *ValidationService {
	s := &ValidationService{
		cfg:      cfg,
		parser:   parser,
		checkers: DefaultCheckers(rules, cfg),
		observer: domain.NopObserver{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the service runs with.
func (s *ValidationService) Config() domain.EngineConfig { return s.cfg }

// Validate runs every applicable checker over req and returns the report.
// Input errors are returned before any checker runs. Checker crashes and
// timeouts become error results inside the report. Caller cancellation
// returns the context's error.
func (s *ValidationService) Validate(ctx context.Context, req domain.ValidationRequest) (*domain.Report, error) {
	if err := req.CheckShape(s.cfg.MaxScriptBytes); err != nil {
		return nil, err
	}
	id, err := RequestID(req)
	if err != nil {
		return nil, domain.NewInputError(domain.CodeMalformed, err.Error())
	}
	req.ID = id

	ctx, end := s.observer.StartValidation(ctx, req)
	report, err := s.run(ctx, req)
	end(report, err)
	return report, err
}

func (s *ValidationService) run(ctx context.Context, req domain.ValidationRequest) (report *domain.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("validation engine panicked", "request_id", req.ID, "panic", r)
			report = nil
			err = domain.NewSystemError(domain.CodeEnginePanic, "validation engine failed", fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Parse once; every checker shares the immutable script
	parsed, parseErr := s.parse(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	script := domain.NewScript(req, parsed, parseErr)

	// 2. Select and run checkers concurrently
	var active []domain.Checker
	for _, c := range s.checkers {
		if c.Applies(req) {
			active = append(active, c)
		}
	}
	results := make([]domain.CheckerResult, len(active))
	var wg sync.WaitGroup
	for i, c := range active {
		wg.Go(func() {
			results[i] = s.runChecker(ctx, c, script)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Aggregate into the frozen report
	return BuildReport(req, results, s.cfg)
}

// parse runs the parser under the per-checker timeout. Parser panics and
// overruns degrade into checker errors instead of an engine failure.
func (s *ValidationService) parse(ctx context.Context, req domain.ValidationRequest) (parsed *domain.ParsedScript, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("parser panicked", "request_id", req.ID, "panic", r)
			parsed = nil
			err = domain.NewCheckerError(domain.CodeCheckerPanic, "parser panicked", fmt.Errorf("%v", r))
		}
	}()

	timeout := s.checkerTimeout()
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parsed, err = s.parser.Parse(pctx, req.ScriptCode)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Warn("parser timed out", "request_id", req.ID, "timeout", timeout)
		return nil, domain.ErrCheckerTimeout
	}
	return parsed, err
}

func (s *ValidationService) checkerTimeout() time.Duration {
	if timeout := s.cfg.Timeout(); timeout > 0 {
		return timeout
	}
	return domain.DefaultCheckerTimeout
}

func (s *ValidationService) runChecker(ctx context.Context, c domain.Checker, script *domain.Script) domain.CheckerResult {
	ctx, end := s.observer.StartChecker(ctx, c.Name())
	start := time.Now()
	res := s.invoke(ctx, c, script)
	end(res, time.Since(start))
	return res
}

type outcome struct {
	res domain.CheckerResult
	err error
}

// invoke runs one checker under the per-checker timeout. A checker that
// overruns is abandoned; its goroutine finishes on its own and its result
// is discarded.
func (s *ValidationService) invoke(ctx context.Context, c domain.Checker, script *domain.Script) domain.CheckerResult {
	name := c.Name()
	timeout := s.checkerTimeout()
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domain.NewCheckerError(domain.CodeCheckerPanic,
					fmt.Sprintf("%s checker panicked", name), fmt.Errorf("%v", r))}
			}
		}()
		res, err := c.Check(tctx, script)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil {
			o.res.Checker = name
			if o.res.Findings == nil {
				o.res.Findings = []domain.Finding{}
			}
			return o.res
		}
		if errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			o.err = domain.ErrCheckerTimeout
		}
		s.logger.Warn("checker failed", "checker", name, "request_id", script.Request.ID, "error", o.err)
		return domain.ErrorResult(name, o.err)
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return domain.ErrorResult(name, err)
		}
		s.logger.Warn("checker timed out", "checker", name, "request_id", script.Request.ID, "timeout", timeout)
		return domain.ErrorResult(name, domain.ErrCheckerTimeout)
	}
}

// BatchValidate validates every request with bounded concurrency. Items
// keep input order and one item's failure never aborts the others.
func (s *ValidationService) BatchValidate(ctx context.Context, reqs []domain.ValidationRequest) *domain.BatchResult {
	items := make([]domain.BatchItem, len(reqs))

	limit := s.cfg.BatchConcurrency
	if limit <= 0 {
		limit = domain.DefaultBatchConcurrency
	}
	// A plain Group: siblings keep running when one item fails.
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range reqs {
		g.Go(func() error {
			items[i] = s.batchItem(ctx, i, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	stats := domain.ComputeStats(items)
	s.logger.Info("batch validated",
		"total", stats.Total, "passed", stats.Passed, "failed", stats.Failed,
		"errored", stats.Errored, "average_score", stats.AverageScore)
	return &domain.BatchResult{Items: items, Stats: stats}
}

func (s *ValidationService) batchItem(ctx context.Context, i int, req domain.ValidationRequest) domain.BatchItem {
	item := domain.BatchItem{Index: i, ScriptName: req.ScriptName}
	if err := ctx.Err(); err != nil {
		item.Status = domain.StatusError
		item.Error = &domain.ItemError{Kind: domain.KindSystem, Code: domain.CodeCancelled, Message: err.Error()}
		return item
	}

	report, err := s.Validate(ctx, req)
	if err != nil {
		item.Status = domain.StatusError
		item.Error = itemError(err)
		if id, idErr := RequestID(req); idErr == nil {
			item.RequestID = id
		}
		return item
	}
	item.RequestID = report.RequestID
	item.Status = report.OverallStatus
	item.Report = report
	return item
}

// Reassemble spreads result over n input slots. Item j of result belongs
// at index[j]; every rejected input becomes an error item at its own index.
// Stats are recomputed over all n items.
func Reassemble(n int, index []int, result *domain.BatchResult, rejected []domain.RejectedInput) *domain.BatchResult {
	if len(rejected) == 0 && result != nil && len(result.Items) == n {
		return result
	}
	items := make([]domain.BatchItem, n)
	if result != nil {
		for j, item := range result.Items {
			item.Index = index[j]
			items[index[j]] = item
		}
	}
	for _, r := range rejected {
		items[r.Index] = domain.BatchItem{
			Index:      r.Index,
			ScriptName: r.ScriptName,
			Status:     domain.StatusError,
			Error:      itemError(r.Err),
		}
	}
	return &domain.BatchResult{Items: items, Stats: domain.ComputeStats(items)}
}

func itemError(err error) *domain.ItemError {
	kind, code := domain.KindOf(err), domain.CodeOf(err)
	if kind == "" {
		kind = domain.KindSystem
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = domain.CodeCancelled
		}
	}
	return &domain.ItemError{Kind: kind, Code: code, Message: err.Error()}
}
