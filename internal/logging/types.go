package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	SessionID     string
	ResponsesHash string
	TriggerType   string // "score" | "backfill" | "rpc" | "replay"
	SignalsJSON   string
	Decision      string // "created" | "updated" | "unchanged" | "refused"
	Reason        string
	CreatedAt     time.Time
}

// #endregion provenance-entry

// #region score-record
// ScoreRecord captures what the pipeline saw and decided for one scoring call.
// Serialized as JSON into provenance_log.signals_json for audit and replay.
type ScoreRecord struct {
	SessionID      string `json:"session_id"`
	CatalogVersion string `json:"catalog_version"`
	ResultsVersion string `json:"results_version"`
	Answered       int    `json:"answered"`
	FCAnswered     int    `json:"fc_answered"`

	TypeCode       string  `json:"type_code,omitempty"`
	TopGap         float64 `json:"top_gap"`
	RawConfidence  float64 `json:"raw_confidence"`
	Calibrated     float64 `json:"calibrated_confidence"`
	Band           string  `json:"band,omitempty"`
	ValidityStatus string  `json:"validity_status,omitempty"`
	Overlay        string  `json:"overlay,omitempty"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// #endregion score-record
