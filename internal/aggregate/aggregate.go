// Package aggregate reduces a validated response set to per-function raw
// scores, forced-choice tallies and the observations the dimensionality
// estimator needs.
package aggregate

import (
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// Midpoint is the neutral value on the common 1..5 scale.
const Midpoint = 3.0

// #region coverage
// Coverage holds one function's observations normalized to [0,1]. Likert
// values map as (v-1)/4 on the common scale; forced-choice observations are
// the chosen option's share of the largest weight the block offered.
type Coverage struct {
	Likert       []float64
	ForcedChoice []float64
}

// N is the number of answered items touching the function.
func (c Coverage) N() int { return len(c.Likert) + len(c.ForcedChoice) }

// LikertVariance is the population variance of the Likert observations.
func (c Coverage) LikertVariance() float64 { return variance(c.Likert) }

// ForcedChoiceVariance is the population variance of the forced-choice observations.
func (c Coverage) ForcedChoiceVariance() float64 { return variance(c.ForcedChoice) }

// PooledVariance is the variance over both sources together.
func (c Coverage) PooledVariance() float64 {
	all := make([]float64, 0, c.N())
	all = append(all, c.Likert...)
	all = append(all, c.ForcedChoice...)
	return variance(all)
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs))
}

// #endregion coverage

// #region result
// Result is the aggregated, unnormalized view of one response set.
type Result struct {
	// FunctionRaw is the mean common-scale Likert score per function; 0 when
	// the function had no Likert answers.
	FunctionRaw [catalog.NumFunctions]float64
	LikertN     [catalog.NumFunctions]int

	NeuroticismRaw float64
	NeuroticismN   int

	FCTally       catalog.Weights
	FCOpportunity catalog.Weights
	FCAnswered    int

	Coverage [catalog.NumFunctions]Coverage

	// StateIndex is the mean common-scale state-check score; 0 when unanswered.
	StateIndex float64
	StateN     int
}

// Strength combines the Likert mean and the forced-choice tally, both on the
// common 1..5 scale, with equal weight. ok is false when the function had no
// evidence at all, in which case Midpoint is returned.
func (r Result) Strength(f catalog.Function) (float64, bool) {
	var sum float64
	var parts int
	if r.LikertN[f] > 0 {
		sum += r.FunctionRaw[f]
		parts++
	}
	if r.FCOpportunity[f] > 0 {
		sum += 1 + 4*r.FCTally[f]/r.FCOpportunity[f]
		parts++
	}
	if parts == 0 {
		return Midpoint, false
	}
	return sum / float64(parts), true
}

// #endregion result

// #region aggregate
// Aggregate reduces the set. Reverse-scored items are flipped on their native
// scale before mapping to the common scale. Unanswered items are excluded.
func Aggregate(set response.Set, cat *catalog.Catalog) Result {
	var res Result
	var fnSum [catalog.NumFunctions]float64
	var neuroSum, stateSum float64

	for _, r := range set.Responses() {
		it, err := cat.Resolve(r.ItemID)
		if err != nil {
			continue
		}
		switch a := r.Answer.(type) {
		case response.LikertAnswer:
			v := Common(it, a.Value)
			switch it.Tag {
			case catalog.TagFunctionScale:
				fnSum[it.Function] += v
				res.LikertN[it.Function]++
				res.Coverage[it.Function].Likert = append(res.Coverage[it.Function].Likert, (v-1)/4)
			case catalog.TagNeuroticism:
				neuroSum += v
				res.NeuroticismN++
			case catalog.TagStateCheck:
				stateSum += v
				res.StateN++
			}
		case response.ChoiceAnswer:
			w, ok := it.Options[a.Option]
			if !ok {
				continue
			}
			res.FCAnswered++
			peak := it.MaxWeights()
			for _, f := range catalog.Functions() {
				res.FCTally[f] += w[f]
				if peak[f] <= 0 {
					continue
				}
				res.FCOpportunity[f] += peak[f]
				res.Coverage[f].ForcedChoice = append(res.Coverage[f].ForcedChoice, w[f]/peak[f])
			}
		}
	}

	for _, f := range catalog.Functions() {
		if res.LikertN[f] > 0 {
			res.FunctionRaw[f] = fnSum[f] / float64(res.LikertN[f])
		}
	}
	if res.NeuroticismN > 0 {
		res.NeuroticismRaw = neuroSum / float64(res.NeuroticismN)
	}
	if res.StateN > 0 {
		res.StateIndex = stateSum / float64(res.StateN)
	}
	return res
}

// Common maps a native Likert answer to the common 1..5 scale, applying the
// item's reverse flag first.
func Common(it catalog.Item, v int) float64 {
	if it.Reverse {
		v = it.Scale.Reverse(v)
	}
	return it.Scale.ToCommon(v)
}

// #endregion aggregate
