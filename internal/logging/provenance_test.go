package logging

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL,
		responses_hash TEXT,
		trigger_type   TEXT NOT NULL,
		signals_json   TEXT,
		decision       TEXT NOT NULL,
		reason         TEXT,
		created_at     TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		SessionID:     "s1",
		ResponsesHash: "abc123",
		TriggerType:   "score",
		SignalsJSON:   `{"top_gap":8.8}`,
		Decision:      "created",
		Reason:        "first score",
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM provenance_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var sessionID, decision string
	db.QueryRow("SELECT session_id, decision FROM provenance_log").Scan(&sessionID, &decision)
	if sessionID != "s1" {
		t.Errorf("expected session_id 's1', got %q", sessionID)
	}
	if decision != "created" {
		t.Errorf("expected decision 'created', got %q", decision)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC().Add(-time.Millisecond)
	err := LogDecision(db, ProvenanceEntry{SessionID: "s2", TriggerType: "backfill", Decision: "unchanged"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogDecision(db, ProvenanceEntry{SessionID: "s3", TriggerType: "score", Decision: "refused"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var hash, signals, reason sql.NullString
	db.QueryRow("SELECT responses_hash, signals_json, reason FROM provenance_log").Scan(&hash, &signals, &reason)
	if hash.Valid {
		t.Error("expected NULL responses_hash for empty string")
	}
	if signals.Valid {
		t.Error("expected NULL signals_json for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	err := LogDecision(db, ProvenanceEntry{SessionID: "s4", TriggerType: "score", Decision: "created"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region log-score-tests
func TestLogScore_RoundTripsRecord(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	rec := ScoreRecord{
		SessionID:      "s5",
		CatalogVersion: "v1.3.0",
		TypeCode:       "LIE",
		TopGap:         8.82,
		Band:           "High",
		Warnings:       []string{"no state-check items answered"},
	}
	if err := LogScore(db, "score", "created", "h1", rec, ""); err != nil {
		t.Fatalf("LogScore: %v", err)
	}
	if err := LogScore(db, "rpc", "unchanged", "h1", rec, "same hash"); err != nil {
		t.Fatalf("LogScore: %v", err)
	}

	hist, err := History(db, "s5")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(hist))
	}
	if hist[0].Decision != "created" || hist[1].Decision != "unchanged" {
		t.Errorf("unexpected order: %q, %q", hist[0].Decision, hist[1].Decision)
	}
	if hist[1].Reason != "same hash" || hist[0].Reason != "" {
		t.Errorf("unexpected reasons: %q, %q", hist[0].Reason, hist[1].Reason)
	}

	var back ScoreRecord
	if err := json.Unmarshal([]byte(hist[0].SignalsJSON), &back); err != nil {
		t.Fatalf("unmarshal signals: %v", err)
	}
	if back.TypeCode != "LIE" || back.TopGap != 8.82 || len(back.Warnings) != 1 {
		t.Errorf("record did not round-trip: %+v", back)
	}
}

// #endregion log-score-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("expected debug level enabled")
	}
	if _, err := NewLogger("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

// #endregion logger-tests
