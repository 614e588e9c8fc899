package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region embedded
func TestDefault_Counts(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, MustParseVersion("v1.3.0"), c.Version())
	assert.Equal(t, MustParseVersion("v1.1.0"), c.FCVersion())
	assert.Equal(t, 83, c.Len())
	assert.Len(t, c.ByTag(TagFunctionScale), 32)
	assert.Len(t, c.ByTag(TagNeuroticism), 8)
	assert.Len(t, c.ByTag(TagForcedChoice), 28)
	assert.Len(t, c.ByTag(TagAttentionCheck), 2)
	assert.Len(t, c.ByTag(TagSocialDesirability), 3)
	assert.Len(t, c.ByTag(TagInconsistency), 6)
	assert.Len(t, c.ByTag(TagStateCheck), 4)
	assert.Len(t, c.Pairs(), 3)
}

func TestDefault_EveryFunctionHasLikertItems(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	var perFn [NumFunctions]int
	for _, it := range c.ByTag(TagFunctionScale) {
		perFn[it.Function]++
	}
	for _, f := range Functions() {
		assert.Equal(t, 4, perFn[f], "function %s", f)
	}
}

func TestDefault_ForcedChoiceBlocks(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, it := range c.ByTag(TagForcedChoice) {
		assert.Equal(t, []string{"A", "B", "C", "D"}, it.OptionCodes(), it.ID)
		peak := it.MaxWeights()
		var offered int
		for _, w := range peak {
			if w > 0 {
				offered++
			}
		}
		assert.Equal(t, 4, offered, "block %s should offer 4 distinct functions", it.ID)
	}
}

// #endregion embedded

// #region resolve
func TestResolve_Unknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Resolve("NOPE_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	it, err := c.Resolve("AC_1")
	require.NoError(t, err)
	assert.Equal(t, TagAttentionCheck, it.Tag)
	assert.Equal(t, 4, it.Expected)
}

// #endregion resolve

// #region parse
func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"missing version": `
fc_version: v1.0.0
items:
  - {id: A, tag: state_check, scale: STATE_1_7}
`,
		"bad tag": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: mood, scale: LIKERT_1_5}
`,
		"function scale without function": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: function_scale, scale: LIKERT_1_5}
`,
		"forced choice with one option": `
version: v1.0.0
fc_version: v1.0.0
items:
  - id: A
    tag: forced_choice
    scale: FORCED_CHOICE
    block: A
    options:
      A: {Ti: 1}
`,
		"attention expected out of range": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: attention_check, scale: LIKERT_1_5, expected: 6}
`,
		"unpaired inconsistency": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: inconsistency, scale: LIKERT_1_5, pair_group: P, pair_side: A}
`,
		"duplicate id": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: state_check, scale: STATE_1_7}
  - {id: A, tag: state_check, scale: STATE_1_7}
`,
		"likert tag on forced-choice scale": `
version: v1.0.0
fc_version: v1.0.0
items:
  - {id: A, tag: neuroticism, scale: FORCED_CHOICE}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_OptionCodesUppercased(t *testing.T) {
	c, err := Parse([]byte(`
version: v2.0.0
fc_version: v1.0.0
items:
  - id: FC
    tag: forced_choice
    scale: FORCED_CHOICE
    block: FC
    options:
      a: {Ti: 1, Te: 0.5}
      b: {Fe: 1}
`))
	require.NoError(t, err)
	it, err := c.Resolve("FC")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, it.OptionCodes())
	assert.Equal(t, 0.5, it.Options["A"][Te])
}

// #endregion parse

// #region scale
func TestScale_ReverseAndCommon(t *testing.T) {
	assert.Equal(t, 5, ScaleLikert5.Reverse(1))
	assert.Equal(t, 7, ScaleLikert7.Reverse(1))
	assert.Equal(t, 4, ScaleLikert7.Reverse(4))
	assert.InDelta(t, 1.0, ScaleLikert7.ToCommon(1), 1e-9)
	assert.InDelta(t, 3.0, ScaleLikert7.ToCommon(4), 1e-9)
	assert.InDelta(t, 5.0, ScaleLikert7.ToCommon(7), 1e-9)
	assert.InDelta(t, 4.0, ScaleLikert5.ToCommon(4), 1e-9)

	_, _, ok := ScaleForcedChoice.Bounds()
	assert.False(t, ok)
}

// #endregion scale

// #region registry
func TestRegistry_LatestAndGet(t *testing.T) {
	mk := func(v string) *Catalog {
		c, err := New(MustParseVersion(v), MustParseVersion("v1.0.0"), nil)
		require.NoError(t, err)
		return c
	}
	reg := NewRegistry(mk("v1.9.0"), mk("v1.10.0"), mk("v1.2.5"))

	latest, err := reg.Latest()
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", latest.Version().String())

	_, err = reg.Get(MustParseVersion("v3.0.0"))
	assert.Error(t, err)

	assert.Equal(t, []Version{
		MustParseVersion("v1.2.5"), MustParseVersion("v1.9.0"), MustParseVersion("v1.10.0"),
	}, reg.Versions())

	_, err = NewRegistry().Latest()
	assert.Error(t, err)
}

// #endregion registry

// #region version
func TestVersion_Compare(t *testing.T) {
	v, err := ParseVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", v.String())
	assert.True(t, MustParseVersion("v1.2.0").Less(MustParseVersion("v1.10.0")))
	assert.Equal(t, 0, MustParseVersion("v2.0.1").Compare(MustParseVersion("2.0.1")))

	for _, bad := range []string{"", "1", "a.b", "1.2.3.4", "1.-1"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestFunction_Parse(t *testing.T) {
	for _, f := range Functions() {
		got, err := ParseFunction(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFunction("Xx")
	assert.Error(t, err)
	assert.False(t, Function(9).Valid())
}

// #endregion version
