package engine

import (
	"context"
	"database/sql"

	"github.com/danielpatrickdp/prism-engine/internal/logging"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/reliability"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

// #region hooks
// Outcome is what a hook sees after a scoring call. Err is set for refusals,
// in which case Profile and Decision are zero.
type Outcome struct {
	SessionID  string
	Hash       string
	Answered   int
	Profile    profile.Profile
	Decision   profile.Decision
	Validation validate.Result
	Err        error
}

// Hook is a best-effort step run after the gate. A failing hook never rolls
// back the profile; it surfaces as a TransientDependency warning.
type Hook struct {
	Name string
	Run  func(ctx context.Context, out Outcome) error
}

// ProvenanceHook appends one provenance_log row per scoring call, including
// refusals and unchanged re-scores.
func ProvenanceHook(db *sql.DB, trigger string) Hook {
	return Hook{
		Name: "provenance",
		Run: func(ctx context.Context, out Outcome) error {
			rec := logging.ScoreRecord{
				SessionID:  out.SessionID,
				Answered:   out.Answered,
				FCAnswered: out.Validation.FCAnswered,
				Errors:     out.Validation.Errors,
				Warnings:   out.Validation.Warnings,
			}
			decision := "refused"
			reason := ""
			if out.Err != nil {
				reason = out.Err.Error()
			} else {
				p := out.Profile
				decision = string(out.Decision)
				rec.CatalogVersion = p.CatalogVersion.String()
				rec.ResultsVersion = p.ResultsVersion.String()
				rec.TypeCode = p.TypeCode
				rec.TopGap = p.TopGap
				rec.RawConfidence = p.Confidence.Raw
				rec.Calibrated = p.Confidence.Calibrated
				rec.Band = string(p.Confidence.Band)
				rec.ValidityStatus = string(p.Validity.Status)
				rec.Overlay = string(p.Overlay)
			}
			return logging.LogScore(db, trigger, decision, out.Hash, rec, reason)
		},
	}
}

// ReliabilityHook feeds profile writes into the auditor's refresh cadence.
func ReliabilityHook(a *reliability.Auditor) Hook {
	return Hook{
		Name: "reliability",
		Run: func(ctx context.Context, out Outcome) error {
			if out.Err != nil || out.Decision == profile.DecisionUnchanged {
				return nil
			}
			a.Observe(ctx)
			return nil
		},
	}
}

// #endregion hooks
