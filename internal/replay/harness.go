// Package replay re-scores recorded sessions in memory and checks the
// outcomes against recorded expectations.
package replay

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/response"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region types
// Result captures the outcome of replaying one session.
type Result struct {
	SessionID string
	Action    string // "match" | "mismatch" | "refused" | "nondeterministic"
	Reason    string

	// Profile is the computed candidate; zero when scoring was refused.
	Profile profile.Profile
	Err     error
	// Mismatches lists "field: want X, got Y" lines for Action == "mismatch".
	Mismatches []string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total            int
	Matched          int
	Mismatched       int
	Refused          int
	Nondeterministic int
}

// OK reports whether every session matched its expectation deterministically.
func (s Summary) OK() bool {
	return s.Mismatched == 0 && s.Nondeterministic == 0
}

// #endregion types

// #region replay
// CatalogFor returns the catalog a fixture was recorded against. Fixtures
// without a catalog version replay against the latest registered catalog.
func CatalogFor(fx *Fixture, reg *catalog.Registry) (*catalog.Catalog, error) {
	if fx.CatalogVersion == "" {
		return reg.Latest()
	}
	v, err := catalog.ParseVersion(fx.CatalogVersion)
	if err != nil {
		return nil, fmt.Errorf("fixture catalog version: %w", err)
	}
	cat, err := reg.Get(v)
	if err != nil {
		return nil, fmt.Errorf("fixture catalog: %w", err)
	}
	return cat, nil
}

// Replay scores every fixture session twice through the pure pipeline and
// compares the first result with the recorded expectation. Nothing is persisted.
func Replay(fx *Fixture, cat *catalog.Catalog, cfg engine.Config) []Result {
	results := make([]Result, 0, len(fx.Sessions))
	for _, s := range fx.Sessions {
		results = append(results, replayOne(s, cat, cfg))
	}
	return results
}

func replayOne(s FixtureSession, cat *catalog.Catalog, cfg engine.Config) Result {
	r := Result{SessionID: s.SessionID}

	first, err := score(s, cat, cfg)
	if err != nil {
		r.Err = err
		kind := string(scoreerr.KindOf(err))
		if s.Expected.ErrorKind != "" && kind == s.Expected.ErrorKind {
			r.Action = "refused"
			r.Reason = err.Error()
			return r
		}
		r.Action = "mismatch"
		r.Reason = "unexpected refusal"
		r.Mismatches = []string{fmt.Sprintf("error_kind: want %q, got %q", s.Expected.ErrorKind, kind)}
		return r
	}
	r.Profile = first

	second, err := score(s, cat, cfg)
	if err != nil {
		r.Action = "nondeterministic"
		r.Reason = "second run failed: " + err.Error()
		return r
	}
	if diff := cmp.Diff(first, second); diff != "" {
		r.Action = "nondeterministic"
		r.Reason = diff
		return r
	}

	r.Mismatches = compare(s.Expected, first)
	if len(r.Mismatches) > 0 {
		r.Action = "mismatch"
		r.Reason = fmt.Sprintf("%d field(s) differ", len(r.Mismatches))
		return r
	}
	r.Action = "match"
	return r
}

func score(s FixtureSession, cat *catalog.Catalog, cfg engine.Config) (profile.Profile, error) {
	set, err := response.Ingest(s.Responses, cat)
	if err != nil {
		return profile.Profile{}, err
	}
	p, _, err := engine.Compute(s.SessionID, set, cat, cfg)
	return p, err
}

func compare(want Expectation, p profile.Profile) []string {
	var out []string
	check := func(field, w, g string) {
		if w != "" && w != g {
			out = append(out, fmt.Sprintf("%s: want %q, got %q", field, w, g))
		}
	}
	if want.ErrorKind != "" {
		out = append(out, fmt.Sprintf("error_kind: want %q, got success", want.ErrorKind))
	}
	check("type_code", want.TypeCode, p.TypeCode)
	check("band", want.Band, string(p.Confidence.Band))
	check("validity", want.Validity, string(p.Validity.Status))
	check("overlay", want.Overlay, string(p.Overlay))
	check("fit_band", want.FitBand, p.FitBand)
	check("responses_hash", want.ResponsesHash, p.ResponsesHash)
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Action {
		case "match":
			s.Matched++
		case "mismatch":
			s.Mismatched++
		case "refused":
			s.Refused++
		case "nondeterministic":
			s.Nondeterministic++
		}
	}
	return s
}

// #endregion replay

func isNotFound(err error) bool {
	return errors.Is(err, profile.ErrNotFound)
}
