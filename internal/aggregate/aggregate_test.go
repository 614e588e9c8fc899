package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/fixtures"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

var lie = [8]catalog.Function{catalog.Te, catalog.Ni, catalog.Se, catalog.Fi, catalog.Ti, catalog.Ne, catalog.Si, catalog.Fe}

func TestAggregate_TypedRespondent(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	set, err := fixtures.FromSeats(lie).Set(cat)
	require.NoError(t, err)

	res := Aggregate(set, cat)

	assert.InDelta(t, 5.0, res.FunctionRaw[catalog.Te], 1e-9)
	assert.InDelta(t, 4.0, res.FunctionRaw[catalog.Ni], 1e-9)
	assert.InDelta(t, 1.0, res.FunctionRaw[catalog.Fi], 1e-9)
	assert.Equal(t, 4, res.LikertN[catalog.Te])

	assert.InDelta(t, 3.0, res.NeuroticismRaw, 1e-9)
	assert.Equal(t, 8, res.NeuroticismN)
	assert.InDelta(t, 3.0, res.StateIndex, 1e-9)
	assert.Equal(t, 4, res.StateN)

	assert.Equal(t, 28, res.FCAnswered)
	assert.Equal(t, res.FCOpportunity[catalog.Te], res.FCTally[catalog.Te])
	assert.Equal(t, 0.0, res.FCTally[catalog.Fi])
	assert.Greater(t, res.FCOpportunity[catalog.Fi], 0.0)

	var tallied, offered float64
	for _, f := range catalog.Functions() {
		tallied += res.FCTally[f]
		offered += res.FCOpportunity[f]
	}
	assert.InDelta(t, 28, tallied, 1e-9)
	assert.InDelta(t, 28*4, offered, 1e-9)

	s, ok := res.Strength(catalog.Te)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, s, 1e-9)
	s, _ = res.Strength(catalog.Fi)
	assert.InDelta(t, 1.0, s, 1e-9)

	cov := res.Coverage[catalog.Te]
	assert.Len(t, cov.Likert, 4)
	assert.Equal(t, 0.0, cov.PooledVariance())
}

func TestAggregate_ReverseOnNativeScale(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	set, err := response.New(cat,
		response.Response{ItemID: "TI_S_4", Answer: response.LikertAnswer{Value: 2}},
		response.Response{ItemID: "N_1", Answer: response.LikertAnswer{Value: 7}},
		response.Response{ItemID: "N_4", Answer: response.LikertAnswer{Value: 7}},
	)
	require.NoError(t, err)

	res := Aggregate(set, cat)
	assert.InDelta(t, 4.0, res.FunctionRaw[catalog.Ti], 1e-9)
	assert.InDelta(t, 3.0, res.NeuroticismRaw, 1e-9)
	assert.Equal(t, []float64{0.75}, res.Coverage[catalog.Ti].Likert)
}

func TestAggregate_MissingFunctionUsesMidpoint(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	res := Aggregate(response.Set{}, cat)

	s, ok := res.Strength(catalog.Se)
	assert.False(t, ok)
	assert.Equal(t, Midpoint, s)
	assert.Equal(t, 0, res.Coverage[catalog.Se].N())
	assert.Equal(t, 0.0, res.NeuroticismRaw)
}

func TestAggregate_FractionalWeights(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
version: v9.0.0
fc_version: v2.0.0
items:
  - id: B1
    tag: forced_choice
    scale: FORCED_CHOICE
    block: B1
    options:
      A: {Ti: 1.0, Te: 0.5}
      B: {Fe: 1.0}
`))
	require.NoError(t, err)
	set, err := response.New(cat, response.Response{ItemID: "B1", Answer: response.ChoiceAnswer{Option: "B"}})
	require.NoError(t, err)

	res := Aggregate(set, cat)
	assert.Equal(t, 1.0, res.FCTally[catalog.Fe])
	assert.Equal(t, 0.5, res.FCOpportunity[catalog.Te])
	assert.Equal(t, []float64{0}, res.Coverage[catalog.Te].ForcedChoice)
	s, _ := res.Strength(catalog.Fe)
	assert.InDelta(t, 5.0, s, 1e-9)
	s, _ = res.Strength(catalog.Ti)
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestVariance(t *testing.T) {
	c := Coverage{Likert: []float64{0, 1}, ForcedChoice: []float64{1, 1}}
	assert.InDelta(t, 0.25, c.LikertVariance(), 1e-12)
	assert.Equal(t, 0.0, c.ForcedChoiceVariance())
	assert.InDelta(t, 0.1875, c.PooledVariance(), 1e-12)
	assert.Equal(t, 4, c.N())
}
