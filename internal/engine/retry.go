package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region retry
// persist retries lost compare-and-swaps up to MaxConflictRetries times.
func (e *Engine) persist(ctx context.Context, candidate profile.Profile) (profile.Profile, profile.Decision, error) {
	for attempt := 0; ; attempt++ {
		p, d, err := e.gate.Persist(ctx, candidate)
		if err == nil {
			return p, d, nil
		}
		if !shouldRetry(ctx, err, attempt, e.cfg.MaxConflictRetries) {
			return profile.Profile{}, "", err
		}
		metrics.ConflictRetries.Inc()
		e.logger.Debug("persist conflict, retrying",
			zap.String("session_id", candidate.SessionID), zap.Int("attempt", attempt+1))
	}
}

// shouldRetry allows another attempt only for persistence conflicts while
// attempts remain and the context is live.
func shouldRetry(ctx context.Context, err error, attempt, limit int) bool {
	if !errors.Is(err, scoreerr.ErrPersistenceConflict) || ctx.Err() != nil {
		return false
	}
	return attempt < limit
}

// #endregion retry
