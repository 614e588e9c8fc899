// Package reliability computes cohort-level internal-consistency statistics
// over stored responses. It is read-only with respect to profiles.
package reliability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/prism-engine/internal/aggregate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// #region types
// Config controls when a report is considered meaningful.
type Config struct {
	MinRespondents int
	// RefreshEvery reruns the "all" cohort after this many profile writes
	// observed through Observe. Zero disables refresh.
	RefreshEvery int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{MinRespondents: 50, RefreshEvery: 100}
}

// ScaleStats is the internal consistency of one scale.
type ScaleStats struct {
	Scale       string  `json:"scale"`
	Items       int     `json:"items"`
	Respondents int     `json:"respondents"`
	Alpha       float64 `json:"alpha"`
	SplitHalf   float64 `json:"split_half"`
	SEM         float64 `json:"sem"`
	Mean        float64 `json:"mean"`
}

// Report is one audit run.
type Report struct {
	ResultsVersion catalog.Version `json:"results_version"`
	CatalogVersion catalog.Version `json:"catalog_version"`
	Cohort         string          `json:"cohort"`
	Respondents    int             `json:"respondents"`
	Skipped        int             `json:"skipped"`
	Sufficient     bool            `json:"sufficient"`
	Scales         []ScaleStats    `json:"scales"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Source lists sessions and returns their stored responses and catalog pin.
type Source interface {
	ListSessions(ctx context.Context) ([]string, error)
	LoadResponses(ctx context.Context, sessionID string) ([]response.Raw, error)
	SessionCatalog(ctx context.Context, sessionID string) (catalog.Version, error)
}

// #endregion types

// #region compute
// Compute builds per-scale statistics from ingested sets. Each function scale
// and the neuroticism scale use listwise deletion: a respondent contributes
// only if every item of that scale was answered.
func Compute(sets []response.Set, cat *catalog.Catalog) []ScaleStats {
	var scales []ScaleStats
	for _, f := range catalog.Functions() {
		var items []catalog.Item
		for _, it := range cat.ByTag(catalog.TagFunctionScale) {
			if it.Function == f {
				items = append(items, it)
			}
		}
		scales = append(scales, scaleStats(f.String(), items, sets))
	}
	scales = append(scales, scaleStats("Neuroticism", cat.ByTag(catalog.TagNeuroticism), sets))
	return scales
}

func scaleStats(name string, items []catalog.Item, sets []response.Set) ScaleStats {
	var m [][]float64
	for _, set := range sets {
		row := make([]float64, 0, len(items))
		for _, it := range items {
			v, ok := set.Likert(it.ID)
			if !ok {
				break
			}
			row = append(row, aggregate.Common(it, v))
		}
		if len(row) == len(items) && len(items) > 0 {
			m = append(m, row)
		}
	}
	st := ScaleStats{Scale: name, Items: len(items), Respondents: len(m)}
	if len(m) == 0 {
		return st
	}
	st.Alpha = Alpha(m)
	st.SplitHalf = SplitHalf(m)
	st.SEM = SEM(m, st.Alpha)
	st.Mean = mean(totals(m)) / float64(len(items))
	return st
}

// #endregion compute

// #region auditor
// Auditor runs audits over a response source and persists sufficient reports.
type Auditor struct {
	src     Source
	db      *sql.DB
	cat     *catalog.Catalog
	version catalog.Version
	cfg     Config
	logger  *zap.Logger

	mu       sync.Mutex
	observed int
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewAuditor creates an auditor. db may be nil, in which case reports are not stored.
func NewAuditor(src Source, db *sql.DB, cat *catalog.Catalog, engineVersion catalog.Version, cfg Config, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{src: src, db: db, cat: cat, version: engineVersion, cfg: cfg, logger: logger}
}

// Run audits the sessions whose id starts with cohort ("" or "all" selects
// every session). Reports below MinRespondents are returned but not stored.
func (a *Auditor) Run(ctx context.Context, cohort string) (Report, error) {
	if cohort == "" {
		cohort = "all"
	}
	ids, err := a.src.ListSessions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list sessions: %w", err)
	}

	rep := Report{
		ResultsVersion: a.version,
		CatalogVersion: a.cat.Version(),
		Cohort:         cohort,
		CreatedAt:      time.Now().UTC(),
	}
	var sets []response.Set
	for _, id := range ids {
		if cohort != "all" && !strings.HasPrefix(id, cohort) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		if !a.sameCatalog(ctx, id) {
			rep.Skipped++
			continue
		}
		raws, err := a.src.LoadResponses(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return Report{}, ctx.Err()
			}
			a.logger.Warn("skipping unreadable session in audit", zap.String("session_id", id), zap.Error(err))
			rep.Skipped++
			continue
		}
		set, err := response.Ingest(raws, a.cat)
		if err != nil {
			a.logger.Debug("skipping session in audit", zap.String("session_id", id), zap.Error(err))
			rep.Skipped++
			continue
		}
		sets = append(sets, set)
	}

	rep.Respondents = len(sets)
	rep.Sufficient = rep.Respondents >= a.cfg.MinRespondents
	rep.Scales = Compute(sets, a.cat)

	if !rep.Sufficient {
		a.logger.Info("reliability audit below minimum respondents",
			zap.String("cohort", cohort),
			zap.Int("respondents", rep.Respondents),
			zap.Int("min", a.cfg.MinRespondents))
		return rep, nil
	}
	for _, s := range rep.Scales {
		metrics.ReliabilityAlpha.WithLabelValues(s.Scale).Set(s.Alpha)
	}
	if a.db != nil {
		if err := SaveReport(a.db, rep); err != nil {
			return rep, err
		}
	}
	a.logger.Info("reliability audit stored",
		zap.String("cohort", cohort),
		zap.Int("respondents", rep.Respondents),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

// sameCatalog reports whether a session's answers were recorded against the
// audited catalog. Unpinned sessions count as current.
func (a *Auditor) sameCatalog(ctx context.Context, id string) bool {
	v, err := a.src.SessionCatalog(ctx, id)
	if err != nil {
		a.logger.Warn("skipping session with unknown catalog", zap.String("session_id", id), zap.Error(err))
		return false
	}
	if !v.IsZero() && v != a.cat.Version() {
		a.logger.Debug("skipping session pinned to another catalog",
			zap.String("session_id", id), zap.Stringer("catalog_version", v))
		return false
	}
	return true
}

// Observe counts a profile write and starts a full-cohort audit in the
// background every RefreshEvery writes. A refresh that comes due while another
// is running is dropped. Returns whether a refresh was started.
func (a *Auditor) Observe(ctx context.Context) bool {
	if a.cfg.RefreshEvery <= 0 {
		return false
	}
	a.mu.Lock()
	a.observed++
	due := a.observed%a.cfg.RefreshEvery == 0
	a.mu.Unlock()
	if !due || !a.running.CompareAndSwap(false, true) {
		return false
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.running.Store(false)
		if _, err := a.Run(context.WithoutCancel(ctx), "all"); err != nil {
			a.logger.Warn("reliability refresh failed", zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until any background refresh has finished.
func (a *Auditor) Wait() {
	a.wg.Wait()
}

// #endregion auditor

// #region persistence
// SaveReport appends a report to reliability_reports.
func SaveReport(db *sql.DB, rep Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO reliability_reports (results_version, cohort, respondents, report_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rep.ResultsVersion.String(), rep.Cohort, rep.Respondents, string(b),
		rep.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// ListReports returns the newest stored reports for an engine version.
func ListReports(db *sql.DB, version catalog.Version, limit int) ([]Report, error) {
	rows, err := db.Query(
		`SELECT report_json FROM reliability_reports
		 WHERE results_version = ? ORDER BY id DESC LIMIT ?`, version.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var rep Report
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// #endregion persistence
