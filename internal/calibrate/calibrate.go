// Package calibrate derives response validity from raw answers and turns the
// fit distribution into a calibrated confidence band.
package calibrate

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// #region config
// Config holds validity cutoffs and confidence calibration constants.
type Config struct {
	// Validity.
	InconsistencyThreshold float64 // mean pair delta above this flags the session
	ViolationDelta         float64 // a pair delta at or above this is a violation
	InvalidViolations      int     // violations at or above this invalidate the session
	SocialDesirabilityHigh float64 // normalized SD index at or above this flags the session

	// Raw confidence. GapScale must be small enough that
	// GapWeight*(1-exp(-CloseCallGap/GapScale)) reaches HighCut, so a valid
	// ranking that is not a close call can be High even with zero spread.
	GapScale     float64
	GapWeight    float64
	SpreadWeight float64

	// Calibration.
	CloseCallGap    float64
	FlaggedFactor   float64
	InvalidFactor   float64
	CloseCallFactor float64
	HighCut         float64
	ModerateCut     float64
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		InconsistencyThreshold: 1.0,
		ViolationDelta:         2.0,
		InvalidViolations:      2,
		SocialDesirabilityHigh: 0.8,

		GapScale:     0.9,
		GapWeight:    0.8,
		SpreadWeight: 0.2,

		CloseCallGap:    2.0,
		FlaggedFactor:   0.8,
		InvalidFactor:   0.55,
		CloseCallFactor: 0.7,
		HighCut:         0.70,
		ModerateCut:     0.45,
	}
}

// #endregion config

// #region validity
// Status is the validity verdict for a session.
type Status string

const (
	StatusValid   Status = "valid"
	StatusFlagged Status = "flagged"
	StatusInvalid Status = "invalid"
)

// Validity is computed from raw responses only.
type Validity struct {
	InconsistencyIndex      float64  `json:"inconsistency_index"`
	SocialDesirabilityIndex float64  `json:"social_desirability_index"`
	PairsAnswered           int      `json:"pairs_answered"`
	PairViolations          int      `json:"pair_violations"`
	AttentionFailures       int      `json:"attention_failures"`
	Status                  Status   `json:"status"`
	Reasons                 []string `json:"reasons,omitempty"`
}

// Assess scores the validity-control items.
func Assess(set response.Set, cat *catalog.Catalog, cfg Config) Validity {
	var v Validity

	var deltaSum float64
	for _, p := range cat.Pairs() {
		a, okA := common(set, cat, p.A)
		b, okB := common(set, cat, p.B)
		if !okA || !okB {
			continue
		}
		delta := math.Abs(a - b)
		deltaSum += delta
		v.PairsAnswered++
		if delta >= cfg.ViolationDelta {
			v.PairViolations++
			v.Reasons = append(v.Reasons, fmt.Sprintf("pair %s differs by %.2f", p.Group, delta))
		}
	}
	if v.PairsAnswered > 0 {
		v.InconsistencyIndex = deltaSum / float64(v.PairsAnswered)
	}

	var sdSum float64
	var sdN int
	for _, it := range cat.ByTag(catalog.TagSocialDesirability) {
		c, ok := common(set, cat, it.ID)
		if !ok {
			continue
		}
		sdSum += (c - 1) / 4
		sdN++
	}
	if sdN > 0 {
		v.SocialDesirabilityIndex = sdSum / float64(sdN)
	}

	for _, it := range cat.ByTag(catalog.TagAttentionCheck) {
		got, ok := set.Likert(it.ID)
		if !ok || got != it.Expected {
			v.AttentionFailures++
			v.Reasons = append(v.Reasons, fmt.Sprintf("attention check %s failed", it.ID))
		}
	}

	switch {
	case v.AttentionFailures > 0 || v.PairViolations >= cfg.InvalidViolations:
		v.Status = StatusInvalid
	case v.InconsistencyIndex > cfg.InconsistencyThreshold || v.PairViolations > 0:
		v.Status = StatusFlagged
	case v.SocialDesirabilityIndex >= cfg.SocialDesirabilityHigh:
		v.Status = StatusFlagged
		v.Reasons = append(v.Reasons, fmt.Sprintf("social desirability %.2f", v.SocialDesirabilityIndex))
	default:
		v.Status = StatusValid
	}
	return v
}

func common(set response.Set, cat *catalog.Catalog, id string) (float64, bool) {
	raw, ok := set.Likert(id)
	if !ok {
		return 0, false
	}
	it, err := cat.Resolve(id)
	if err != nil {
		return 0, false
	}
	return aggregate.Common(it, raw), true
}

// #endregion validity

// #region confidence
// Band is the reported confidence level.
type Band string

const (
	BandHigh     Band = "High"
	BandModerate Band = "Moderate"
	BandLow      Band = "Low"
)

// Confidence is the calibrated confidence for a ranking.
type Confidence struct {
	Raw        float64 `json:"raw"`
	Calibrated float64 `json:"calibrated"`
	Band       Band    `json:"band"`
	CloseCall  bool    `json:"close_call"`
}

// RawConfidence grows with the top gap and with dimensionality spread.
func RawConfidence(topGap, spread float64, cfg Config) float64 {
	gap := 0.0
	if topGap > 0 && cfg.GapScale > 0 {
		gap = 1 - math.Exp(-topGap/cfg.GapScale)
	}
	raw := cfg.GapWeight*gap + cfg.SpreadWeight*clamp01(spread)
	return clamp01(raw)
}

// Calibrate computes raw confidence from the ranking and profile, then
// adjusts it for validity and close calls.
func Calibrate(r rank.Ranking, p dimension.Profile, v Validity, cfg Config) Confidence {
	return Adjust(RawConfidence(r.TopGap, p.Spread(), cfg), r.TopGap, v.Status, cfg)
}

// Adjust applies the validity and close-call factors. Every factor is at most
// 1, so the calibrated value never exceeds raw. A close call is never High.
func Adjust(raw, topGap float64, status Status, cfg Config) Confidence {
	raw = clamp01(raw)
	c := Confidence{Raw: raw, CloseCall: topGap < cfg.CloseCallGap}

	cal := raw * factor(status, cfg)
	if c.CloseCall {
		cal *= math.Min(1, cfg.CloseCallFactor)
	}
	c.Calibrated = math.Min(cal, raw)

	switch {
	case c.Calibrated >= cfg.HighCut:
		c.Band = BandHigh
	case c.Calibrated >= cfg.ModerateCut:
		c.Band = BandModerate
	default:
		c.Band = BandLow
	}
	if c.CloseCall && c.Band == BandHigh {
		c.Band = BandModerate
	}
	return c
}

func factor(s Status, cfg Config) float64 {
	switch s {
	case StatusValid:
		return 1
	case StatusFlagged:
		return math.Min(1, cfg.FlaggedFactor)
	default:
		return math.Min(1, cfg.InvalidFactor)
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// #endregion confidence
