// Package rank scores the 16 types against a function profile.
package rank

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
)

// #region config
// Config weights the fit formula. StrengthWeight, DimensionWeight and
// PenaltyWeight sum to 1 so fit stays in [0,100].
type Config struct {
	BaseWeight      float64
	CreativeWeight  float64
	StrengthWeight  float64
	DimensionWeight float64
	PenaltyWeight   float64
	Temperature     float64

	Coherence CoherenceConfig
	Blocks    BlockWeights
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		BaseWeight:      0.65,
		CreativeWeight:  0.35,
		StrengthWeight:  0.6,
		DimensionWeight: 0.2,
		PenaltyWeight:   0.2,
		Temperature:     8,
		Coherence:       DefaultCoherenceConfig(),
		Blocks:          DefaultBlockWeights(),
	}
}

// #endregion config

// #region result
// Entry is one type's fit.
type Entry struct {
	TypeCode string  `json:"type_code"`
	FitAbs   float64 `json:"fit_abs"`
	SharePct float64 `json:"share_pct"`
}

// Ranking is the full ordered fit distribution.
type Ranking struct {
	Entries []Entry `json:"entries"`
	TopGap  float64 `json:"top_gap"`
	// Entropy of the share distribution normalized to [0,1].
	Entropy float64 `json:"entropy"`
}

// Top returns up to n leading entries.
func (r Ranking) Top(n int) []Entry {
	if n > len(r.Entries) {
		n = len(r.Entries)
	}
	return append([]Entry(nil), r.Entries[:n]...)
}

// Leader returns the best-fitting entry.
func (r Ranking) Leader() Entry {
	if len(r.Entries) == 0 {
		return Entry{}
	}
	return r.Entries[0]
}

// #endregion result

// #region rank
// Rank computes fit for every type, sorts descending with ties broken by type
// code, and normalizes shares with a temperature softmax.
func Rank(p dimension.Profile, cfg Config) Ranking {
	entries := make([]Entry, 0, len(types))
	for _, t := range types {
		entries = append(entries, Entry{TypeCode: t.Code, FitAbs: Fit(p, t, cfg)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].FitAbs != entries[j].FitAbs {
			return entries[i].FitAbs > entries[j].FitAbs
		}
		return entries[i].TypeCode < entries[j].TypeCode
	})

	temp := cfg.Temperature
	if temp <= 0 {
		temp = 1
	}
	top := entries[0].FitAbs
	exps := make([]float64, len(entries))
	var sum float64
	for i, e := range entries {
		exps[i] = math.Exp((e.FitAbs - top) / temp)
		sum += exps[i]
	}
	var entropy float64
	for i := range entries {
		share := exps[i] / sum
		entries[i].SharePct = share * 100
		if share > 0 {
			entropy -= share * math.Log(share)
		}
	}

	r := Ranking{Entries: entries, Entropy: entropy / math.Log(float64(len(entries)))}
	if len(entries) > 1 {
		r.TopGap = entries[0].FitAbs - entries[1].FitAbs
	}
	return r
}

// Fit scores one type in [0,100]. Strength and dimensionality of the base and
// creative functions raise fit; strength in the vulnerable function lowers it.
func Fit(p dimension.Profile, t Type, cfg Config) float64 {
	s := func(f catalog.Function) float64 { return clamp01((p[f].Strength - 1) / 4) }
	d := func(f catalog.Function) float64 { return clamp01(float64(p[f].Dimensionality-1) / 3) }

	strength := cfg.BaseWeight*s(t.Base()) + cfg.CreativeWeight*s(t.Creative())
	dims := cfg.BaseWeight*d(t.Base()) + cfg.CreativeWeight*d(t.Creative())
	penalty := 1 - s(t.Vulnerable())

	fit := 100 * (cfg.StrengthWeight*strength + cfg.DimensionWeight*dims + cfg.PenaltyWeight*penalty)
	return math.Max(0, math.Min(100, fit))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// #endregion rank

// #region fit-band
const (
	FitHigh     = "high_fit"
	FitModerate = "moderate_fit"
	FitLow      = "low_fit"
)

// FitBand labels an absolute fit score.
func FitBand(fit float64) string {
	switch {
	case fit >= 75:
		return FitHigh
	case fit >= 55:
		return FitModerate
	default:
		return FitLow
	}
}

// #endregion fit-band

// #region blocks
// BlockScores are the per-block mean strengths for one type and their share
// of the total.
type BlockScores struct {
	Mean    [NumBlocks]float64 `json:"mean"`
	Percent [NumBlocks]float64 `json:"percent"`
}

// Blocks groups a profile's strengths by the seats of t.
func Blocks(p dimension.Profile, t Type) BlockScores {
	var out BlockScores
	for seat, f := range t.Seats {
		out.Mean[Seat(seat).Block()] += p[f].Strength / 2
	}
	var total float64
	for _, m := range out.Mean {
		total += m
	}
	if total <= 0 {
		return out
	}
	for b, m := range out.Mean {
		out.Percent[b] = m / total * 100
	}
	return out
}

// #endregion blocks
