package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdidvp/luaguard/internal/domain"
)

// ProjectService runs the engine over files on disk:
// scan → read → stamp revision → cache lookup → batch validate → cache + history.
type ProjectService struct {
	engine      *ValidationService
	scanner     domain.ScriptScanner
	cache       domain.ReportCache
	history     domain.RunHistory
	git         domain.GitInfo
	rulesDigest string
	now         func() time.Time
}

// RunOptions controls one project run.
type RunOptions struct {
	// Template carries the audience and mode fields applied to every file.
	Template domain.ValidationRequest
	// UseCache serves unchanged scripts from the report cache.
	UseCache bool
	// HistoryDir, when set, appends one history entry per report there.
	HistoryDir string
}

// NewProjectService wires the file-level pipeline. cache, history and git
// may be nil to disable the corresponding step.
func NewProjectService(
	engine *ValidationService,
	scanner domain.ScriptScanner,
	cache domain.ReportCache,
	history domain.RunHistory,
	git domain.GitInfo,
	rulesDigest string,
) *ProjectService {
	return &ProjectService{
		engine:      engine,
		scanner:     scanner,
		cache:       cache,
		history:     history,
		git:         git,
		rulesDigest: rulesDigest,
		now:         time.Now,
	}
}

// ValidatePaths validates every script found under paths, in scan order.
func (s *ProjectService) ValidatePaths(ctx context.Context, paths []string, opts RunOptions) (*domain.BatchResult, error) {
	// 1. Expand directories
	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		found, err := s.scanner.Scan(p)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	// 2. Build one request per file
	reqs := make([]domain.ValidationRequest, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		req := opts.Template
		req.ID = ""
		req.ScriptName = filepath.ToSlash(f)
		req.ScriptCode = string(data)
		req.LearningObjectives = append([]string(nil), opts.Template.LearningObjectives...)
		if s.git != nil {
			if rev, err := s.git.CommitHash(f); err == nil {
				req.Revision = rev
			}
		}
		reqs = append(reqs, req)
	}

	return s.ValidateRequests(ctx, reqs, opts)
}

// ValidateRequests validates reqs, serving cache hits without re-running
// checkers. Item order always equals input order.
func (s *ProjectService) ValidateRequests(ctx context.Context, reqs []domain.ValidationRequest, opts RunOptions) (*domain.BatchResult, error) {
	logger := s.engine.logger
	cfg := s.engine.Config()
	items := make([]domain.BatchItem, len(reqs))
	keys := make([]string, len(reqs))

	// 1. Cache lookup
	var missIdx []int
	var missReqs []domain.ValidationRequest
	for i, req := range reqs {
		if opts.UseCache && s.cache != nil {
			key, err := CacheKey(req, cfg, s.rulesDigest)
			if err != nil {
				return nil, fmt.Errorf("computing cache key: %w", err)
			}
			keys[i] = key
			if cached, err := s.cache.Load(key); err == nil && cached != nil {
				logger.Debug("cache hit", "script", req.ScriptName, "key", key)
				items[i] = domain.BatchItem{
					Index:      i,
					RequestID:  cached.RequestID,
					ScriptName: cached.ScriptName,
					Status:     cached.OverallStatus,
					Report:     cached,
				}
				continue
			} else if err != nil {
				logger.Warn("ignoring unreadable cache entry", "key", key, "error", err)
			}
		}
		missIdx = append(missIdx, i)
		missReqs = append(missReqs, req)
	}

	// 2. Validate misses
	if len(missReqs) > 0 {
		batch := s.engine.BatchValidate(ctx, missReqs)
		for j, item := range batch.Items {
			i := missIdx[j]
			item.Index = i
			items[i] = item
			if item.Report != nil && keys[i] != "" {
				if err := s.cache.Save(keys[i], item.Report); err != nil {
					logger.Warn("saving report to cache", "script", item.ScriptName, "error", err)
				}
			}
		}
	}

	// 3. History
	if opts.HistoryDir != "" && s.history != nil {
		ts := s.now().UTC().Format(time.RFC3339)
		for _, item := range items {
			if item.Report == nil {
				continue
			}
			entry := domain.HistoryEntry{
				Timestamp:  ts,
				ScriptName: item.ScriptName,
				Revision:   item.Report.Revision,
				Status:     item.Status,
				Score:      item.Report.OverallScore,
				Digest:     item.Report.Digest,
			}
			if err := s.history.Save(opts.HistoryDir, entry); err != nil {
				return nil, fmt.Errorf("saving history: %w", err)
			}
		}
	}

	return &domain.BatchResult{Items: items, Stats: domain.ComputeStats(items)}, nil
}
