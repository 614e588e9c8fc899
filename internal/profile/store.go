// Package profile stores scored profiles and the raw responses they were
// computed from, and gates every overwrite on the responses hash.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a session has no stored profile or responses.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	session_id      TEXT PRIMARY KEY,
	profile_id      TEXT NOT NULL,
	type_code       TEXT NOT NULL,
	overlay         TEXT NOT NULL,
	confidence_band TEXT NOT NULL,
	validity_status TEXT NOT NULL,
	results_version TEXT NOT NULL,
	fc_version      TEXT NOT NULL,
	catalog_version TEXT NOT NULL,
	responses_hash  TEXT NOT NULL,
	payload_json    TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	catalog_version TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
	session_id    TEXT NOT NULL,
	item_id       TEXT NOT NULL,
	value_json    TEXT NOT NULL,
	ord           INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (session_id, item_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	responses_hash  TEXT,
	trigger_type    TEXT NOT NULL,
	signals_json    TEXT,
	decision        TEXT NOT NULL,
	reason          TEXT,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reliability_reports (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	results_version TEXT NOT NULL,
	cohort          TEXT NOT NULL,
	respondents     INTEGER NOT NULL,
	report_json     TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_version ON profiles(results_version);
CREATE INDEX IF NOT EXISTS idx_reliability_version ON reliability_reports(results_version, created_at);
`

// #endregion schema

// #region store-struct
// Store persists profiles and responses in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB wraps an already-open database and runs migrations.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (logging, reliability).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region get
// Get loads the stored profile for a session. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, sessionID string) (Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload_json, profile_id, results_version, fc_version, catalog_version,
		        responses_hash, created_at, updated_at
		 FROM profiles WHERE session_id = ?`, sessionID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", sessionID, err)
	}
	return p, nil
}

// List returns the most recently updated profiles.
func (s *Store) List(ctx context.Context, limit int) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json, profile_id, results_version, fc_version, catalog_version,
		        responses_hash, created_at, updated_at
		 FROM profiles ORDER BY updated_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(sc scanner) (Profile, error) {
	var payload, profileID, results, fc, cat, hash, created, updated string
	if err := sc.Scan(&payload, &profileID, &results, &fc, &cat, &hash, &created, &updated); err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	p.ProfileID = profileID
	p.ResponsesHash = hash
	var err error
	if p.ResultsVersion, err = catalog.ParseVersion(results); err != nil {
		return Profile{}, err
	}
	if p.FCVersion, err = catalog.ParseVersion(fc); err != nil {
		return Profile{}, err
	}
	if p.CatalogVersion, err = catalog.ParseVersion(cat); err != nil {
		return Profile{}, err
	}
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Profile{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Profile{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

// #endregion get

// #region write
// insert writes a first profile for a session. Returns false if a row already
// exists, which the gate treats as a lost race.
func (s *Store) insert(ctx context.Context, p Profile) (bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal profile: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (session_id, profile_id, type_code, overlay, confidence_band,
		     validity_status, results_version, fc_version, catalog_version, responses_hash,
		     payload_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		p.SessionID, p.ProfileID, p.TypeCode, string(p.Overlay), string(p.Confidence.Band),
		string(p.Validity.Status), p.ResultsVersion.String(), p.FCVersion.String(),
		p.CatalogVersion.String(), p.ResponsesHash, string(payload),
		p.CreatedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n == 1, nil
}

// compareAndSwap overwrites a profile only if the stored hash still equals
// expectHash. Returns false when another writer got there first.
func (s *Store) compareAndSwap(ctx context.Context, p Profile, expectHash string) (bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal profile: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE profiles SET profile_id = ?, type_code = ?, overlay = ?, confidence_band = ?,
		     validity_status = ?, results_version = ?, fc_version = ?, catalog_version = ?,
		     responses_hash = ?, payload_json = ?, updated_at = ?
		 WHERE session_id = ? AND responses_hash = ?`,
		p.ProfileID, p.TypeCode, string(p.Overlay), string(p.Confidence.Band),
		string(p.Validity.Status), p.ResultsVersion.String(), p.FCVersion.String(),
		p.CatalogVersion.String(), p.ResponsesHash, string(payload),
		p.UpdatedAt.Format(timeLayout),
		p.SessionID, expectHash,
	)
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n == 1, nil
}

// #endregion write

// #region responses
// SaveResponses replaces the stored responses of a session and pins the
// catalog version they were taken under. A zero version leaves the session
// unpinned, so it scores against the latest registered catalog.
func (s *Store) SaveResponses(ctx context.Context, sessionID string, catalogVersion catalog.Version, raws []response.Raw) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear responses: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	pinned := ""
	if !catalogVersion.IsZero() {
		pinned = catalogVersion.String()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, catalog_version, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET catalog_version = excluded.catalog_version, updated_at = excluded.updated_at`,
		sessionID, pinned, now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	for i, r := range raws {
		val, err := json.Marshal(r.Value)
		if err != nil {
			return fmt.Errorf("marshal response %s: %w", r.ItemID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO responses (session_id, item_id, value_json, ord, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, item_id) DO UPDATE SET value_json = excluded.value_json, ord = excluded.ord`,
			sessionID, r.ItemID, string(val), i, now,
		)
		if err != nil {
			return fmt.Errorf("insert response %s: %w", r.ItemID, err)
		}
	}
	return tx.Commit()
}

// LoadResponses returns a session's stored responses in answer order.
// Returns ErrNotFound when the session has none.
func (s *Store) LoadResponses(ctx context.Context, sessionID string) ([]response.Raw, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, value_json FROM responses WHERE session_id = ? ORDER BY ord, item_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()

	var out []response.Raw
	for rows.Next() {
		var itemID, val string
		if err := rows.Scan(&itemID, &val); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		dec := json.NewDecoder(strings.NewReader(val))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode response %s: %w", itemID, err)
		}
		out = append(out, response.Raw{ItemID: itemID, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("responses for %s: %w", sessionID, ErrNotFound)
	}
	return out, nil
}

// SessionCatalog returns the catalog version a session's responses were taken
// under. The zero version means the session is unpinned. Returns ErrNotFound
// when the session was never saved.
func (s *Store) SessionCatalog(ctx context.Context, sessionID string) (catalog.Version, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT catalog_version FROM sessions WHERE session_id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Version{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return catalog.Version{}, fmt.Errorf("session catalog %s: %w", sessionID, err)
	}
	if raw == "" {
		return catalog.Version{}, nil
	}
	v, err := catalog.ParseVersion(raw)
	if err != nil {
		return catalog.Version{}, fmt.Errorf("session catalog %s: %w", sessionID, err)
	}
	return v, nil
}

// ListSessions returns every session id that has stored responses, sorted.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM responses ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// #endregion responses

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
