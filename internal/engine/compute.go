package engine

import (
	"fmt"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/calibrate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
	"github.com/danielpatrickdp/prism-engine/internal/overlay"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
	"github.com/danielpatrickdp/prism-engine/internal/response"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

// #region compute
// Compute runs the pure pipeline on a response set and assembles a profile
// candidate. The candidate carries the responses hash and version stamps but
// no identity or timestamps; those belong to the gate. Hard validation
// failures return a StructuralInvalid error alongside the validation result.
func Compute(sessionID string, set response.Set, cat *catalog.Catalog, cfg Config) (profile.Profile, validate.Result, error) {
	vres := validate.Validate(set, cat, cfg.Validate)
	if err := vres.Err(); err != nil {
		return profile.Profile{}, vres, err
	}

	agg := aggregate.Aggregate(set, cat)
	functions := dimension.Build(agg, cfg.Dimension)
	ranking := rank.Rank(functions, cfg.Rank)
	leader := ranking.Leader()
	top, err := rank.Lookup(leader.TypeCode)
	if err != nil {
		return profile.Profile{}, vres, fmt.Errorf("leading type: %w", err)
	}

	validity := calibrate.Assess(set, cat, cfg.Calibrate)
	confidence := calibrate.Calibrate(ranking, functions, validity, cfg.Calibrate)
	z := overlay.Z(agg.NeuroticismRaw, agg.NeuroticismN, cfg.Overlay.Norms)
	blocks := rank.Blocks(functions, top)
	norm := rank.NormalizeBlocks(agg, top, cfg.Rank.Blocks)
	blocksNorm := profile.BlocksNorm{
		Likert:  rank.ByName(norm.Likert),
		FC:      rank.ByName(norm.FC),
		Blended: rank.ByName(norm.Blended),
	}

	p := profile.Profile{
		SessionID:        sessionID,
		TypeCode:         top.Code,
		BaseFunction:     top.Base(),
		CreativeFunction: top.Creative(),
		FitBand:          rank.FitBand(leader.FitAbs),
		Overlay:          overlay.Classify(z, cfg.Overlay),
		NeuroticismZ:     z,
		Functions:        functions,
		DimsHighlights:   functions.Highlight(cfg.Dimension),
		SeatCoherence:    rank.SeatCoherence(functions, top, cfg.Rank.Coherence),
		Blocks:           rank.ByName(blocks.Mean),
		BlocksPercent:    rank.ByName(blocks.Percent),
		BlocksNorm:       blocksNorm,
		Validity:         validity,
		Confidence:       confidence,
		Top3:             ranking.Top(3),
		Fits:             ranking.Entries,
		Distances:        rank.Distances(ranking),
		FCAnswered:       vres.FCAnswered,
		FCCoverage:       vres.FCCoverage,
		TopGap:           ranking.TopGap,
		Entropy:          ranking.Entropy,
		StateIndex:       agg.StateIndex,
		QualityFlags:     qualityFlags(vres, functions, confidence, set),
		ResultsVersion:   Version,
		FCVersion:        cat.FCVersion(),
		CatalogVersion:   cat.Version(),
		ResponsesHash:    set.Hash(),
	}
	return p, vres, nil
}

// qualityFlags collects degraded-quality metadata. None of these block scoring.
func qualityFlags(v validate.Result, fp dimension.Profile, c calibrate.Confidence, set response.Set) []string {
	flags := append([]string(nil), v.Warnings...)
	for _, f := range fp.LowCoverage() {
		flags = append(flags, "low_coverage:"+f.String())
	}
	if c.CloseCall {
		flags = append(flags, "close_call")
	}
	if set.Duplicates() > 0 {
		flags = append(flags, fmt.Sprintf("duplicate_answers:%d", set.Duplicates()))
	}
	return flags
}

// #endregion compute
