package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
)

// #region coherence
func TestSeatCoherence(t *testing.T) {
	lie, err := Lookup("LIE")
	require.NoError(t, err)
	cfg := DefaultCoherenceConfig()

	// Base 5 and creative 4 sit at their levels; vulnerable 1 is 1.5 off.
	assert.InDelta(t, 7.0/8, SeatCoherence(typedProfile(lie), lie, cfg), 1e-9)
	// A flat profile only matches the non-leading seats.
	assert.InDelta(t, 6.0/8, SeatCoherence(flatProfile(2.5, 2), lie, cfg), 1e-9)
	assert.Zero(t, SeatCoherence(flatProfile(5, 2), lie, CoherenceConfig{OtherLevel: 1, Tolerance: 0.1}))
}

// #endregion coherence

// #region distance
func TestDistances(t *testing.T) {
	r := Ranking{Entries: []Entry{
		{TypeCode: "LIE", FitAbs: 80},
		{TypeCode: "ILI", FitAbs: 60},
		{TypeCode: "SEI", FitAbs: 40},
	}}
	got := Distances(r)
	require.Len(t, got, 3)
	want := []Distance{
		{TypeCode: "LIE", Raw: 80, Dist: 20, Norm: 0.8},
		{TypeCode: "ILI", Raw: 60, Dist: 0, Norm: 0.6},
		{TypeCode: "SEI", Raw: 40, Dist: 20, Norm: 0.4},
	}
	for i := range want {
		assert.Equal(t, want[i].TypeCode, got[i].TypeCode)
		assert.InDelta(t, want[i].Raw, got[i].Raw, 1e-9)
		assert.InDelta(t, want[i].Dist, got[i].Dist, 1e-9)
		assert.InDelta(t, want[i].Norm, got[i].Norm, 1e-9)
	}
	assert.Nil(t, Distances(Ranking{}))
}

func TestDistances_FullRanking(t *testing.T) {
	lie, _ := Lookup("LIE")
	got := Distances(Rank(typedProfile(lie), DefaultConfig()))
	require.Len(t, got, 16)
	assert.Equal(t, "LIE", got[0].TypeCode)
	for _, d := range got {
		assert.GreaterOrEqual(t, d.Norm, 0.0)
		assert.LessOrEqual(t, d.Norm, 1.0)
	}
}

// #endregion distance

// #region block-norm
func lieAggregate(fc bool) aggregate.Result {
	var agg aggregate.Result
	for f := range agg.FunctionRaw {
		agg.FunctionRaw[f] = 2
		agg.LikertN[f] = 1
	}
	if fc {
		for f := range agg.FCOpportunity {
			agg.FCOpportunity[f] = 1
		}
		agg.FCTally[catalog.Te] = 1
		agg.FCTally[catalog.Ni] = 1
		agg.FCAnswered = 4
	}
	return agg
}

func blockSum(xs [NumBlocks]float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum
}

func TestNormalizeBlocks(t *testing.T) {
	lie, _ := Lookup("LIE")
	n := NormalizeBlocks(lieAggregate(true), lie, DefaultBlockWeights())

	for b := Block(0); b < NumBlocks; b++ {
		assert.InDelta(t, 25, n.Likert[b], 1e-9, b.String())
	}
	// Core gets 2.5 per seat from forced choice, every other seat 0.5.
	assert.InDelta(t, 62.5, n.FC[Core], 1e-9)
	assert.InDelta(t, 12.5, n.FC[Critic], 1e-9)
	assert.InDelta(t, 0.7*25+0.3*62.5, n.Blended[Core], 1e-9)
	assert.InDelta(t, 0.7*25+0.3*12.5, n.Blended[Instinct], 1e-9)
	for _, xs := range [][NumBlocks]float64{n.Likert, n.FC, n.Blended} {
		assert.InDelta(t, 100, blockSum(xs), 1e-9)
	}
}

func TestNormalizeBlocks_NoForcedChoice(t *testing.T) {
	lie, _ := Lookup("LIE")
	n := NormalizeBlocks(lieAggregate(false), lie, DefaultBlockWeights())
	assert.Equal(t, [NumBlocks]float64{}, n.FC)
	assert.Equal(t, n.Likert, n.Blended)

	empty := NormalizeBlocks(aggregate.Result{}, lie, DefaultBlockWeights())
	assert.Equal(t, BlockNorm{}, empty)
}

func TestByName(t *testing.T) {
	m := ByName([NumBlocks]float64{1, 2, 3, 4})
	require.Len(t, m, NumBlocks)
	assert.Equal(t, 1.0, m[Core.String()])
	assert.Equal(t, 4.0, m[Block(3).String()])
}

// #endregion block-norm
