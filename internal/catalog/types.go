package catalog

// #region tag
// Tag is the semantic role of an item.
type Tag string

const (
	TagFunctionScale      Tag = "function_scale"
	TagNeuroticism        Tag = "neuroticism"
	TagForcedChoice       Tag = "forced_choice"
	TagAttentionCheck     Tag = "attention_check"
	TagSocialDesirability Tag = "social_desirability"
	TagInconsistency      Tag = "inconsistency"
	TagStateCheck         Tag = "state_check"
)

// #endregion tag

// #region scale-type
// ScaleType is the native answer scale of an item.
type ScaleType string

const (
	ScaleLikert5      ScaleType = "LIKERT_1_5"
	ScaleLikert7      ScaleType = "LIKERT_1_7"
	ScaleState7       ScaleType = "STATE_1_7"
	ScaleForcedChoice ScaleType = "FORCED_CHOICE"
)

// Bounds returns the inclusive native range of a Likert-style scale.
// ok is false for forced-choice items.
func (s ScaleType) Bounds() (lo, hi int, ok bool) {
	switch s {
	case ScaleLikert5:
		return 1, 5, true
	case ScaleLikert7, ScaleState7:
		return 1, 7, true
	}
	return 0, 0, false
}

// Reverse flips a value on its native scale.
func (s ScaleType) Reverse(v int) int {
	lo, hi, ok := s.Bounds()
	if !ok {
		return v
	}
	return lo + hi - v
}

// ToCommon maps a native value onto the common 1..5 scale.
func (s ScaleType) ToCommon(v int) float64 {
	lo, hi, ok := s.Bounds()
	if !ok || hi == lo {
		return float64(v)
	}
	return 1 + float64(v-lo)*4/float64(hi-lo)
}

// #endregion scale-type

// #region pair-side
// PairSide identifies which half of an inconsistency pair an item is.
type PairSide string

const (
	SideA PairSide = "A"
	SideB PairSide = "B"
)

// #endregion pair-side

// #region item
// Item is immutable reference data describing one assessment question.
type Item struct {
	ID      string
	Tag     Tag
	Scale   ScaleType
	Section string
	Reverse bool

	// Function is set for function-scale items.
	Function Function

	// Forced-choice fields.
	BlockID string
	Options map[string]Weights

	// Inconsistency-pair fields.
	PairGroup string
	PairSide  PairSide

	// Expected is the correct native answer of an attention check.
	Expected int
}

// Weights is a per-function weight vector indexed by Function.
type Weights [NumFunctions]float64

// IsLikert reports whether the item takes a bounded integer answer.
func (it Item) IsLikert() bool {
	_, _, ok := it.Scale.Bounds()
	return ok
}

// OptionCodes returns the item's option codes in sorted order.
func (it Item) OptionCodes() []string {
	codes := make([]string, 0, len(it.Options))
	for code := range it.Options {
		codes = append(codes, code)
	}
	sortStrings(codes)
	return codes
}

// MaxWeights returns, per function, the largest weight any option offers.
func (it Item) MaxWeights() Weights {
	var out Weights
	for _, w := range it.Options {
		for f := range w {
			if w[f] > out[f] {
				out[f] = w[f]
			}
		}
	}
	return out
}

// #endregion item
