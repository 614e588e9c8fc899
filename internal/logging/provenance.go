package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (session_id, responses_hash, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.ResponsesHash),
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogScore records a scoring outcome with its ScoreRecord as signals_json.
func LogScore(db *sql.DB, trigger, decision, hash string, rec ScoreRecord, reason string) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score record: %w", err)
	}
	return LogDecision(db, ProvenanceEntry{
		SessionID:     rec.SessionID,
		ResponsesHash: hash,
		TriggerType:   trigger,
		SignalsJSON:   string(b),
		Decision:      decision,
		Reason:        reason,
	})
}

// #endregion log-decision

// #region history
// History returns the provenance rows for a session, oldest first.
func History(db *sql.DB, sessionID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, responses_hash, trigger_type, signals_json, decision, reason, created_at
		 FROM provenance_log WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var hash, signals, reason sql.NullString
		var created string
		if err := rows.Scan(&e.SessionID, &hash, &e.TriggerType, &signals, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.ResponsesHash = hash.String
		e.SignalsJSON = signals.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion history

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
