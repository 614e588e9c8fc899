package rank

import (
	"math"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
)

// #region coherence
// CoherenceConfig sets the strength expected at each seat and how far a
// function may sit from it and still count as aligned.
type CoherenceConfig struct {
	BaseLevel     float64
	CreativeLevel float64
	OtherLevel    float64
	Tolerance     float64
}

// DefaultCoherenceConfig returns the production expectations on the common 1..5 scale.
func DefaultCoherenceConfig() CoherenceConfig {
	return CoherenceConfig{BaseLevel: 4.5, CreativeLevel: 3.5, OtherLevel: 2.5, Tolerance: 0.75}
}

// SeatCoherence is the fraction of functions whose strength lies within
// Tolerance of the level expected for their seat in t.
func SeatCoherence(p dimension.Profile, t Type, cfg CoherenceConfig) float64 {
	aligned := 0
	for seat, f := range t.Seats {
		want := cfg.OtherLevel
		switch Seat(seat) {
		case Base:
			want = cfg.BaseLevel
		case Creative:
			want = cfg.CreativeLevel
		}
		if math.Abs(p[f].Strength-want) <= cfg.Tolerance {
			aligned++
		}
	}
	return float64(aligned) / NumSeats
}

// #endregion coherence

// #region distance
// Distance places one type's fit relative to the whole distribution.
type Distance struct {
	TypeCode string  `json:"code"`
	Raw      float64 `json:"raw"`
	// Dist is the absolute distance of Raw from the mean fit of all types.
	Dist float64 `json:"dist"`
	// Norm is Raw scaled to [0,1].
	Norm float64 `json:"norm"`
}

// Distances reports every entry of r, in ranking order.
func Distances(r Ranking) []Distance {
	if len(r.Entries) == 0 {
		return nil
	}
	var sum float64
	for _, e := range r.Entries {
		sum += e.FitAbs
	}
	mean := sum / float64(len(r.Entries))
	out := make([]Distance, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = Distance{
			TypeCode: e.TypeCode,
			Raw:      e.FitAbs,
			Dist:     math.Abs(e.FitAbs - mean),
			Norm:     clamp01(e.FitAbs / 100),
		}
	}
	return out
}

// #endregion distance

// #region block-norm
// BlockNorm is the share of each block, in percent, computed from Likert
// answers only, forced-choice answers only, and a weighted blend of the two.
type BlockNorm struct {
	Likert  [NumBlocks]float64
	FC      [NumBlocks]float64
	Blended [NumBlocks]float64
}

// BlockWeights sets the blend of Likert and forced-choice block shares.
type BlockWeights struct {
	Likert float64
	FC     float64
}

// DefaultBlockWeights returns the production blend.
func DefaultBlockWeights() BlockWeights {
	return BlockWeights{Likert: 0.7, FC: 0.3}
}

// NormalizeBlocks groups per-source function levels by the seats of t. A
// function with no evidence from a source contributes 0 to that source. The
// forced-choice weight drops out when no forced-choice item was answered.
func NormalizeBlocks(agg aggregate.Result, t Type, w BlockWeights) BlockNorm {
	var likert, fc [NumBlocks]float64
	for seat, f := range t.Seats {
		b := Seat(seat).Block()
		if agg.LikertN[f] > 0 {
			likert[b] += agg.FunctionRaw[f] / 2
		}
		if agg.FCOpportunity[f] > 0 {
			fc[b] += (1 + 4*agg.FCTally[f]/agg.FCOpportunity[f]) / 2
		}
	}

	out := BlockNorm{Likert: percent(likert), FC: percent(fc)}
	wl, wf := w.Likert, w.FC
	if agg.FCAnswered == 0 {
		wf = 0
	}
	total := wl + wf
	if total <= 0 {
		return out
	}
	for b := range out.Blended {
		out.Blended[b] = (wl*out.Likert[b] + wf*out.FC[b]) / total
	}
	return out
}

func percent(xs [NumBlocks]float64) [NumBlocks]float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	var out [NumBlocks]float64
	if sum <= 0 {
		return out
	}
	for i, x := range xs {
		out[i] = 100 * x / sum
	}
	return out
}

// ByName keys per-block values by block name.
func ByName(xs [NumBlocks]float64) map[string]float64 {
	m := make(map[string]float64, NumBlocks)
	for b := Block(0); b < NumBlocks; b++ {
		m[b.String()] = xs[b]
	}
	return m
}

// #endregion block-norm
