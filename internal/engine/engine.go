// Package engine wires the scoring stages into Score(session_id).
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/response"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

// #region interfaces
// ResponseSource supplies the stored raw responses of a session and the
// catalog version they were taken under. *profile.Store implements it.
type ResponseSource interface {
	LoadResponses(ctx context.Context, sessionID string) ([]response.Raw, error)
	SessionCatalog(ctx context.Context, sessionID string) (catalog.Version, error)
}

// Persister applies the hash-gate rule. *profile.Gate implements it.
type Persister interface {
	Persist(ctx context.Context, candidate profile.Profile) (profile.Profile, profile.Decision, error)
}

// #endregion interfaces

// #region result
// Result is the outcome of one successful Score call.
type Result struct {
	Profile    profile.Profile
	Decision   profile.Decision
	Validation validate.Result
	// Warnings are TransientDependency errors from post-write hooks. The
	// profile is already durable when these are reported.
	Warnings []error
}

// #endregion result

// #region engine
// Engine scores sessions. Safe for concurrent use across sessions.
type Engine struct {
	src    ResponseSource
	reg    *catalog.Registry
	gate   Persister
	cfg    Config
	logger *zap.Logger
	hooks  []Hook
}

// New creates an engine. Each session scores against the catalog version it
// was pinned to in reg; unpinned sessions use the latest. logger may be nil.
func New(src ResponseSource, reg *catalog.Registry, gate Persister, cfg Config, logger *zap.Logger, hooks ...Hook) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{src: src, reg: reg, gate: gate, cfg: cfg, logger: logger, hooks: hooks}
}

// Registry returns the catalogs the engine can score against.
func (e *Engine) Registry() *catalog.Registry { return e.reg }

// CatalogFor resolves the catalog a session's responses were taken under.
// A version missing from the registry is a CatalogMismatch.
func (e *Engine) CatalogFor(ctx context.Context, sessionID string) (*catalog.Catalog, error) {
	v, err := e.src.SessionCatalog(ctx, sessionID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, scoreerr.TransientDependency(sessionID, "load session catalog", err)
	}
	if v.IsZero() {
		cat, err := e.reg.Latest()
		if err != nil {
			return nil, scoreerr.UnknownCatalog("latest", err).WithSession(sessionID)
		}
		return cat, nil
	}
	cat, err := e.reg.Get(v)
	if err != nil {
		return nil, scoreerr.UnknownCatalog(v.String(), err).WithSession(sessionID)
	}
	return cat, nil
}

// Score loads, validates, scores and persists one session.
func (e *Engine) Score(ctx context.Context, sessionID string) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.ScoreDuration.WithLabelValues(e.cfg.Trigger).Observe(time.Since(start).Seconds())
	}()

	raws, err := e.src.LoadResponses(ctx, sessionID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return e.refuse(ctx, Outcome{SessionID: sessionID},
				scoreerr.StructuralInvalid("no responses stored for session"))
		}
		return Result{}, e.fail(sessionID, scoreerr.TransientDependency(sessionID, "load responses", err))
	}
	cat, err := e.CatalogFor(ctx, sessionID)
	if err != nil {
		if scoreerr.KindOf(err) == scoreerr.KindCatalogMismatch {
			return e.refuse(ctx, Outcome{SessionID: sessionID}, err)
		}
		return Result{}, e.fail(sessionID, err)
	}

	set, err := response.Ingest(raws, cat)
	if err != nil {
		return e.refuse(ctx, Outcome{SessionID: sessionID}, err)
	}
	return e.ScoreSet(ctx, sessionID, set, cat)
}

// Preview computes the candidate for a stored session without persisting it.
func (e *Engine) Preview(ctx context.Context, sessionID string) (profile.Profile, validate.Result, error) {
	raws, err := e.src.LoadResponses(ctx, sessionID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return profile.Profile{}, validate.Result{}, scoreerr.StructuralInvalid("no responses stored for session").WithSession(sessionID)
		}
		return profile.Profile{}, validate.Result{}, scoreerr.TransientDependency(sessionID, "load responses", err)
	}
	cat, err := e.CatalogFor(ctx, sessionID)
	if err != nil {
		return profile.Profile{}, validate.Result{}, err
	}
	set, err := response.Ingest(raws, cat)
	if err != nil {
		return profile.Profile{}, validate.Result{}, bindSession(err, sessionID)
	}
	p, vres, err := Compute(sessionID, set, cat, e.cfg)
	return p, vres, bindSession(err, sessionID)
}

// ScoreSet scores a set already ingested against cat. Used by Score and by
// callers that receive responses inline.
func (e *Engine) ScoreSet(ctx context.Context, sessionID string, set response.Set, cat *catalog.Catalog) (Result, error) {
	candidate, vres, err := Compute(sessionID, set, cat, e.cfg)
	if err != nil {
		return e.refuse(ctx, Outcome{SessionID: sessionID, Hash: set.Hash(), Answered: set.Len(), Validation: vres}, err)
	}

	stored, decision, err := e.persist(ctx, candidate)
	if err != nil {
		return Result{}, e.fail(sessionID, err)
	}

	res := Result{Profile: stored, Decision: decision, Validation: vres}
	out := Outcome{
		SessionID:  sessionID,
		Hash:       candidate.ResponsesHash,
		Answered:   set.Len(),
		Profile:    stored,
		Decision:   decision,
		Validation: vres,
	}
	for _, h := range e.hooks {
		if err := h.Run(ctx, out); err != nil {
			w := scoreerr.TransientDependency(sessionID, h.Name, err)
			res.Warnings = append(res.Warnings, w)
			e.logger.Warn("post-write hook failed", zap.String("session_id", sessionID),
				zap.String("hook", h.Name), zap.Error(err))
		}
	}

	metrics.ScoreTotal.WithLabelValues(string(decision)).Inc()
	if decision != profile.DecisionUnchanged {
		metrics.ValidityTotal.WithLabelValues(string(stored.Validity.Status)).Inc()
		metrics.ConfidenceBandTotal.WithLabelValues(string(stored.Confidence.Band)).Inc()
	}
	e.logger.Info("session scored",
		zap.String("session_id", sessionID),
		zap.String("decision", string(decision)),
		zap.String("type_code", stored.TypeCode),
		zap.String("band", string(stored.Confidence.Band)),
		zap.String("validity", string(stored.Validity.Status)),
		zap.Float64("top_gap", stored.TopGap))
	return res, nil
}

// refuse reports a scoring refusal to hooks and returns the error bound to the session.
func (e *Engine) refuse(ctx context.Context, out Outcome, err error) (Result, error) {
	sessionID := out.SessionID
	err = bindSession(err, sessionID)
	out.Err = err
	for _, h := range e.hooks {
		if herr := h.Run(ctx, out); herr != nil {
			e.logger.Warn("refusal hook failed", zap.String("session_id", sessionID),
				zap.String("hook", h.Name), zap.Error(herr))
		}
	}
	return Result{}, e.fail(sessionID, err)
}

func (e *Engine) fail(sessionID string, err error) error {
	err = bindSession(err, sessionID)
	kind := scoreerr.KindOf(err)
	if kind == "" {
		kind = "error"
	}
	metrics.ScoreTotal.WithLabelValues(string(kind)).Inc()
	e.logger.Warn("scoring failed", zap.String("session_id", sessionID), zap.Error(err))
	return err
}

func bindSession(err error, sessionID string) error {
	var se *scoreerr.Error
	if errors.As(err, &se) && se.SessionID == "" {
		return se.WithSession(sessionID)
	}
	return err
}

// #endregion engine
