// Package runner drives the per-file pipeline: read, parse, analyze, plan,
// rewrite, back up, write. Files are processed concurrently with a bounded
// worker pool and a wall-clock budget per file; one bad file never takes the
// run down.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/backup"
	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/edit"
	"github.com/scriptmaint/luaopt/internal/parser"
	"github.com/scriptmaint/luaopt/internal/rules"
)

// Status classifies a file's outcome.
type Status int

const (
	StatusOK Status = iota
	StatusParseError
	StatusTimeout
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusParseError:
		return "PARSE_ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// FileResult is one file's outcome. Findings are populated for StatusOK
// only; Note explains skips and rewrite failures.
type FileResult struct {
	Path     string
	Status   Status
	Findings []edit.Planned
	Applied  int // edits written to disk
	Changed  bool
	Note     string
	Duration time.Duration
	Err      error
}

// Runner executes the pipeline over a file set.
type Runner struct {
	cfg     *config.Config
	policy  config.FixPolicy
	backups *backup.Manager
}

func New(cfg *config.Config, policy config.FixPolicy, backups *backup.Manager) *Runner {
	return &Runner{cfg: cfg, policy: policy, backups: backups}
}

// Run processes files concurrently and returns results sorted by path. The
// pool size is the configured worker count capped at the file count.
func (r *Runner) Run(ctx context.Context, files []string) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.Performance.Workers
	if limit > len(files) {
		limit = len(files)
	}
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			results[i] = r.processFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, ctx.Err()
}

// processFile runs one file through the full pipeline. The per-file timeout
// is checked at stage boundaries; a file that exhausts its budget is
// reported as TIMEOUT with its content untouched.
func (r *Runner) processFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	done := func() FileResult {
		res.Duration = time.Since(start)
		return res
	}

	budget := time.Duration(r.cfg.Performance.FileTimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if timedOut(ctx, &res) {
		return done()
	}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Status = StatusSkipped
		res.Note = "unreadable"
		res.Err = err
		return done()
	}
	if len(src) > r.cfg.Performance.MaxFileSize {
		res.Status = StatusSkipped
		res.Note = fmt.Sprintf("file exceeds size limit (%d bytes)", len(src))
		return done()
	}

	if timedOut(ctx, &res) {
		return done()
	}

	chunk, err := parser.Parse(src)
	if err != nil {
		res.Status = StatusParseError
		res.Err = err
		return done()
	}

	if timedOut(ctx, &res) {
		return done()
	}

	info := analysis.Analyze(chunk, src, &r.cfg.Analysis)
	findings := rules.Run(info, r.cfg, r.policy)

	if timedOut(ctx, &res) {
		return done()
	}

	plan := edit.Build(findings, r.policy)
	res.Findings = plan.Findings

	if len(plan.Edits) == 0 || !r.policy.Fixing() {
		return done()
	}

	out, err := edit.Rewrite(src, plan)
	if err != nil {
		var terr *edit.TransformationError
		if errors.As(err, &terr) {
			res.Note = terr.Error()
			for i := range res.Findings {
				res.Findings[i].Fixed = false
			}
			return done()
		}
		res.Err = err
		return done()
	}

	if timedOut(ctx, &res) {
		return done()
	}

	if _, err := r.backups.Snapshot(path); err != nil {
		if errors.Is(err, backup.ErrBackupExists) {
			res.Status = StatusSkipped
			res.Note = "backup already exists, not overwriting"
			return done()
		}
		res.Err = fmt.Errorf("backup failed: %w", err)
		res.Note = res.Err.Error()
		for i := range res.Findings {
			res.Findings[i].Fixed = false
		}
		return done()
	}
	if err := r.backups.Write(path, out); err != nil {
		res.Err = fmt.Errorf("write failed: %w", err)
		res.Note = res.Err.Error()
		for i := range res.Findings {
			res.Findings[i].Fixed = false
		}
		return done()
	}

	res.Changed = true
	res.Applied = len(plan.Edits)
	return done()
}

func timedOut(ctx context.Context, res *FileResult) bool {
	if ctx.Err() == nil {
		return false
	}
	res.Status = StatusTimeout
	res.Err = ctx.Err()
	return true
}
