// Package validate decides whether a response set is complete enough to score.
package validate

import (
	"fmt"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/response"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region config
// Config holds the completeness thresholds.
type Config struct {
	MinForcedChoice  int
	RequiredSections []string
	// FCExpected is the forced-choice count for full coverage. Zero means
	// every forced-choice item in the catalog.
	FCExpected int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinForcedChoice:  24,
		RequiredSections: []string{"Core PRISM Functions", "Neuroticism Index"},
	}
}

// #endregion config

// #region result
// Result is the validator outcome. Errors block scoring; warnings are carried
// onto the profile as quality flags.
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string

	FCAnswered int
	FCExpected int
	// FCCoverage is "full" when FCAnswered reaches FCExpected, else "low".
	FCCoverage string
}

// Forced-choice coverage buckets.
const (
	CoverageFull = "full"
	CoverageLow  = "low"
)

// Err converts hard errors into a StructuralInvalid error, or nil.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return scoreerr.StructuralInvalid(r.Errors...)
}

// #endregion result

// #region validate
// Validate checks the set against the catalog. Pure.
func Validate(set response.Set, cat *catalog.Catalog, cfg Config) Result {
	var res Result

	fc := cat.ByTag(catalog.TagForcedChoice)
	res.FCExpected = cfg.FCExpected
	if res.FCExpected <= 0 {
		res.FCExpected = len(fc)
	}
	for _, it := range fc {
		if set.Has(it.ID) {
			res.FCAnswered++
		}
	}
	res.FCCoverage = CoverageLow
	if res.FCAnswered >= res.FCExpected {
		res.FCCoverage = CoverageFull
	}
	if res.FCAnswered < cfg.MinForcedChoice {
		res.Errors = append(res.Errors,
			fmt.Sprintf("insufficient forced-choice answers: %d/%d", res.FCAnswered, cfg.MinForcedChoice))
	}

	for _, p := range cat.Pairs() {
		hasA, hasB := set.Has(p.A), set.Has(p.B)
		if hasA != hasB {
			res.Errors = append(res.Errors,
				fmt.Sprintf("inconsistency pair %s is half-answered", p.Group))
		}
	}

	attention := cat.ByTag(catalog.TagAttentionCheck)
	if len(attention) == 0 {
		res.Errors = append(res.Errors, "catalog has no attention-check items")
	}
	for _, it := range attention {
		if !set.Has(it.ID) {
			res.Errors = append(res.Errors, fmt.Sprintf("attention check %s unanswered", it.ID))
		}
	}

	if countAnswered(set, cat.ByTag(catalog.TagSocialDesirability)) == 0 {
		res.Warnings = append(res.Warnings, "no social-desirability items answered")
	}
	for _, section := range cfg.RequiredSections {
		if !sectionAnswered(set, cat, section) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("section %q has no answers", section))
		}
	}
	if countAnswered(set, cat.ByTag(catalog.TagStateCheck)) == 0 {
		res.Warnings = append(res.Warnings, "no state-check items answered")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func countAnswered(set response.Set, items []catalog.Item) int {
	n := 0
	for _, it := range items {
		if set.Has(it.ID) {
			n++
		}
	}
	return n
}

func sectionAnswered(set response.Set, cat *catalog.Catalog, section string) bool {
	for _, it := range cat.Items() {
		if it.Section == section && it.IsLikert() && set.Has(it.ID) {
			return true
		}
	}
	return false
}

// #endregion validate
