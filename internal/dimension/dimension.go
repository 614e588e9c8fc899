// Package dimension rates how robustly each function's strength is evidenced.
package dimension

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
)

// #region config
// Config holds coverage and consistency thresholds.
type Config struct {
	MinCoverage       int     // items needed for level 2
	HighCoverage      int     // items needed for level 3
	MinPerSource      int     // Likert and forced-choice items each needed for level 4
	VarianceThreshold float64 // max variance of [0,1] observations counted as consistent

	CoherentLevel int // level at or above which a function is highlighted as coherent
	UniqueLevel   int // level at or above which a function is highlighted as unique
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinCoverage:       3,
		HighCoverage:      6,
		MinPerSource:      2,
		VarianceThreshold: 0.06,
		CoherentLevel:     3,
		UniqueLevel:       4,
	}
}

// #endregion config

// #region estimate
// Rating is one function's dimensionality.
type Rating struct {
	Level       int
	LowCoverage bool
}

// Estimate starts at 1 and climbs while coverage and consistency allow it.
// Level 4 needs both item sources to be individually covered and consistent.
func Estimate(c aggregate.Coverage, cfg Config) Rating {
	n := c.N()
	r := Rating{Level: 1, LowCoverage: n < cfg.MinCoverage}
	if n < cfg.MinCoverage {
		return r
	}
	r.Level = 2
	if n < cfg.HighCoverage || c.PooledVariance() > cfg.VarianceThreshold {
		return r
	}
	r.Level = 3
	if len(c.Likert) >= cfg.MinPerSource && len(c.ForcedChoice) >= cfg.MinPerSource &&
		c.LikertVariance() <= cfg.VarianceThreshold &&
		c.ForcedChoiceVariance() <= cfg.VarianceThreshold {
		r.Level = 4
	}
	return r
}

// #endregion estimate

// #region profile
// Score is one function's entry in a Profile.
type Score struct {
	Strength       float64 `json:"raw_strength"`
	Dimensionality int     `json:"dimensionality"`
	LowCoverage    bool    `json:"low_coverage,omitempty"`
}

// Profile maps every function to its score, indexed by catalog.Function.
type Profile [catalog.NumFunctions]Score

// Build derives the function profile from an aggregate. A function with no
// evidence gets the midpoint strength and is flagged low-coverage.
func Build(agg aggregate.Result, cfg Config) Profile {
	var p Profile
	for _, f := range catalog.Functions() {
		strength, ok := agg.Strength(f)
		rating := Estimate(agg.Coverage[f], cfg)
		p[f] = Score{
			Strength:       strength,
			Dimensionality: rating.Level,
			LowCoverage:    rating.LowCoverage || !ok,
		}
	}
	return p
}

// Spread is the range of dimensionality across functions scaled to [0,1].
func (p Profile) Spread() float64 {
	lo, hi := 4, 1
	for _, s := range p {
		if s.Dimensionality < lo {
			lo = s.Dimensionality
		}
		if s.Dimensionality > hi {
			hi = s.Dimensionality
		}
	}
	if hi < lo {
		return 0
	}
	return float64(hi-lo) / 3
}

// LowCoverage lists functions flagged for thin evidence.
func (p Profile) LowCoverage() []catalog.Function {
	var out []catalog.Function
	for _, f := range catalog.Functions() {
		if p[f].LowCoverage {
			out = append(out, f)
		}
	}
	return out
}

// Highlights lists functions whose dimensionality stands out.
type Highlights struct {
	Coherent []catalog.Function `json:"coherent"`
	Unique   []catalog.Function `json:"unique"`
}

// Highlight picks out coherent and unique functions in canonical order.
func (p Profile) Highlight(cfg Config) Highlights {
	h := Highlights{Coherent: []catalog.Function{}, Unique: []catalog.Function{}}
	for _, f := range catalog.Functions() {
		lvl := p[f].Dimensionality
		if lvl >= cfg.CoherentLevel {
			h.Coherent = append(h.Coherent, f)
		}
		if lvl >= cfg.UniqueLevel {
			h.Unique = append(h.Unique, f)
		}
	}
	return h
}

// #endregion profile

// #region json
// MarshalJSON encodes the profile as an object keyed by function code.
func (p Profile) MarshalJSON() ([]byte, error) {
	m := make(map[string]Score, catalog.NumFunctions)
	for _, f := range catalog.Functions() {
		m[f.String()] = p[f]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by function code.
func (p *Profile) UnmarshalJSON(b []byte) error {
	var m map[string]Score
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Profile
	for code, s := range m {
		f, err := catalog.ParseFunction(code)
		if err != nil {
			return fmt.Errorf("function profile: %w", err)
		}
		out[f] = s
	}
	*p = out
	return nil
}

// #endregion json
