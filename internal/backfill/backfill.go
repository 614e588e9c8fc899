// Package backfill re-scores stored sessions in bulk, throttled and bounded.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

// #region config
// Config controls a backfill run.
type Config struct {
	Workers int
	// RatePerSecond caps scoring invocations; 0 disables the throttle.
	RatePerSecond float64
	Burst         int
	// DryRun computes candidates and compares hashes without writing.
	DryRun bool
	// StaleOnly skips sessions whose stored profile was produced by the
	// current results version.
	StaleOnly bool
}

// DefaultConfig returns conservative settings for production backfills.
func DefaultConfig() Config {
	return Config{Workers: 4, RatePerSecond: 20, Burst: 4}
}

// #endregion config

// #region deps
// Scorer is the subset of *engine.Engine a backfill drives.
type Scorer interface {
	Score(ctx context.Context, sessionID string) (engine.Result, error)
	Preview(ctx context.Context, sessionID string) (profile.Profile, validate.Result, error)
}

// Store lists sessions and reads their current profiles.
type Store interface {
	ListSessions(ctx context.Context) ([]string, error)
	Get(ctx context.Context, sessionID string) (profile.Profile, error)
}

// #endregion deps

// #region summary
// Summary counts per-session outcomes of a run. In dry-run mode Written counts
// sessions that would be written.
type Summary struct {
	Total     int  `json:"total"`
	Written   int  `json:"written"`
	Unchanged int  `json:"unchanged"`
	Skipped   int  `json:"skipped"`
	Refused   int  `json:"refused"`
	Failed    int  `json:"failed"`
	DryRun    bool `json:"dry_run"`

	// Failures maps session id to the error text for refused and failed sessions.
	Failures map[string]string `json:"failures,omitempty"`
}

type outcome string

const (
	outWritten   outcome = "written"
	outUnchanged outcome = "unchanged"
	outSkipped   outcome = "skipped"
	outRefused   outcome = "refused"
	outFailed    outcome = "failed"
)

func (s *Summary) add(o outcome, session string, err error) {
	switch o {
	case outWritten:
		s.Written++
	case outUnchanged:
		s.Unchanged++
	case outSkipped:
		s.Skipped++
	case outRefused:
		s.Refused++
	case outFailed:
		s.Failed++
	}
	if err != nil {
		if s.Failures == nil {
			s.Failures = map[string]string{}
		}
		s.Failures[session] = err.Error()
	}
}

// #endregion summary

// #region runner
// Runner executes backfills.
type Runner struct {
	scorer  Scorer
	store   Store
	version catalog.Version
	cfg     Config
	logger  *zap.Logger
}

// New creates a runner. version is the results version the scorer stamps.
func New(scorer Scorer, store Store, version catalog.Version, cfg Config, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{scorer: scorer, store: store, version: version, cfg: cfg, logger: logger}
}

// Run scores every stored session, or only those named in sessions when
// non-empty. Per-session failures are counted, not returned; the error is
// non-nil only when listing fails or ctx ends the run early.
func (r *Runner) Run(ctx context.Context, sessions ...string) (Summary, error) {
	if len(sessions) == 0 {
		all, err := r.store.ListSessions(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("list sessions: %w", err)
		}
		sessions = all
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), max(r.cfg.Burst, 1))
	}

	var (
		mu  sync.Mutex
		sum = Summary{Total: len(sessions), DryRun: r.cfg.DryRun}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, id := range sessions {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			o, err := r.one(gctx, id)
			metrics.BackfillSessions.WithLabelValues(string(o)).Inc()
			mu.Lock()
			sum.add(o, id, err)
			mu.Unlock()
			if o == outFailed {
				r.logger.Warn("backfill session failed", zap.String("session_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("backfill finished",
		zap.Int("total", sum.Total),
		zap.Int("written", sum.Written),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("skipped", sum.Skipped),
		zap.Int("refused", sum.Refused),
		zap.Int("failed", sum.Failed),
		zap.Bool("dry_run", sum.DryRun))
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("backfill interrupted: %w", err)
	}
	return sum, nil
}

func (r *Runner) one(ctx context.Context, id string) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outFailed, err
	}
	if r.cfg.StaleOnly || r.cfg.DryRun {
		stored, err := r.store.Get(ctx, id)
		switch {
		case err == nil:
			if r.cfg.StaleOnly && !stored.IsStale(r.version) {
				return outSkipped, nil
			}
			if r.cfg.DryRun {
				return r.preview(ctx, id, &stored)
			}
		case errors.Is(err, profile.ErrNotFound):
			if r.cfg.DryRun {
				return r.preview(ctx, id, nil)
			}
		default:
			return outFailed, err
		}
	}

	res, err := r.scorer.Score(ctx, id)
	if err != nil {
		return classify(err), err
	}
	if res.Decision == profile.DecisionUnchanged {
		return outUnchanged, nil
	}
	return outWritten, nil
}

// preview reports what Score would do without persisting. stored is nil when
// the session has no profile yet.
func (r *Runner) preview(ctx context.Context, id string, stored *profile.Profile) (outcome, error) {
	p, _, err := r.scorer.Preview(ctx, id)
	if err != nil {
		return classify(err), err
	}
	if stored != nil && stored.SameInputs(p) {
		return outUnchanged, nil
	}
	return outWritten, nil
}

func classify(err error) outcome {
	switch scoreerr.KindOf(err) {
	case scoreerr.KindStructuralInvalid, scoreerr.KindCatalogMismatch:
		return outRefused
	default:
		return outFailed
	}
}

// #endregion runner
