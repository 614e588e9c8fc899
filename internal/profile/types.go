package profile

import (
	"time"

	"github.com/danielpatrickdp/prism-engine/internal/calibrate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
	"github.com/danielpatrickdp/prism-engine/internal/overlay"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
)

// #region profile
// Profile is the persisted scoring result for one session. It is written
// all-or-nothing and only by the gate.
type Profile struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id"`

	TypeCode         string           `json:"type_code"`
	BaseFunction     catalog.Function `json:"base_function"`
	CreativeFunction catalog.Function `json:"creative_function"`
	FitBand          string           `json:"fit_band"`

	Overlay      overlay.Overlay `json:"overlay"`
	NeuroticismZ float64         `json:"neuroticism_z"`

	Functions      dimension.Profile    `json:"functions"`
	DimsHighlights dimension.Highlights `json:"dims_highlights"`
	SeatCoherence  float64              `json:"seat_coherence"`
	Blocks         map[string]float64   `json:"blocks"`
	BlocksPercent  map[string]float64   `json:"blocks_pct"`
	BlocksNorm     BlocksNorm           `json:"blocks_norm"`

	Validity   calibrate.Validity   `json:"validity"`
	Confidence calibrate.Confidence `json:"confidence"`

	Top3      []rank.Entry    `json:"top_3_fits"`
	Fits      []rank.Entry    `json:"fits"`
	Distances []rank.Distance `json:"distance_metrics"`
	TopGap    float64         `json:"top_gap"`
	Entropy   float64         `json:"share_entropy"`

	FCAnswered int    `json:"fc_answered_ct"`
	FCCoverage string `json:"fc_coverage_bucket"`

	StateIndex   float64  `json:"state_index"`
	QualityFlags []string `json:"quality_flags,omitempty"`

	ResultsVersion catalog.Version `json:"results_version"`
	FCVersion      catalog.Version `json:"fc_version"`
	CatalogVersion catalog.Version `json:"catalog_version"`
	ResponsesHash  string          `json:"responses_hash"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlocksNorm holds block shares in percent by source, keyed by block name.
type BlocksNorm struct {
	Likert  map[string]float64 `json:"likert"`
	FC      map[string]float64 `json:"fc"`
	Blended map[string]float64 `json:"blended"`
}

// IsStale reports whether the profile was produced by an older engine.
func (p Profile) IsStale(engine catalog.Version) bool {
	return p.ResultsVersion.Less(engine)
}

// SameInputs reports whether two profiles were computed from the same
// answers by the same engine and catalog revisions.
func (p Profile) SameInputs(o Profile) bool {
	return p.ResponsesHash == o.ResponsesHash &&
		p.ResultsVersion == o.ResultsVersion &&
		p.FCVersion == o.FCVersion &&
		p.CatalogVersion == o.CatalogVersion
}

// #endregion profile

// #region decision
// Decision is what the gate did with a candidate.
type Decision string

const (
	DecisionCreated   Decision = "created"
	DecisionUpdated   Decision = "updated"
	DecisionUnchanged Decision = "unchanged"
)

// #endregion decision
