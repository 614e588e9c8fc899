package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a scoring replay fixture.
type Fixture struct {
	Description    string           `json:"description"`
	CatalogVersion string           `json:"catalog_version"`
	Sessions       []FixtureSession `json:"sessions"`
}

// FixtureSession is one recorded session: its stored answer rows and what
// scoring them is expected to produce.
type FixtureSession struct {
	SessionID string         `json:"session_id"`
	Responses []response.Raw `json:"responses"`
	Expected  Expectation    `json:"expected"`
}

// Expectation lists the outcome fields a replay checks. Empty fields are not
// checked. ErrorKind is set for sessions that must be refused.
type Expectation struct {
	TypeCode      string `json:"type_code,omitempty"`
	Band          string `json:"band,omitempty"`
	Validity      string `json:"validity,omitempty"`
	Overlay       string `json:"overlay,omitempty"`
	FitBand       string `json:"fit_band,omitempty"`
	ResponsesHash string `json:"responses_hash,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. Numbers are kept as
// json.Number so integral answers survive the round trip.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// WriteFixture writes a fixture as indented JSON.
func WriteFixture(path string, fx *Fixture) error {
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region export

// Source reads what an export needs from a store.
type Source interface {
	LoadResponses(ctx context.Context, sessionID string) ([]response.Raw, error)
	Get(ctx context.Context, sessionID string) (profile.Profile, error)
}

// Export captures stored sessions and their current profiles as a fixture.
// Sessions without a profile are exported with an empty expectation.
func Export(ctx context.Context, src Source, description, catalogVersion string, sessions []string) (*Fixture, error) {
	fx := &Fixture{Description: description, CatalogVersion: catalogVersion}
	for _, id := range sessions {
		raws, err := src.LoadResponses(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", id, err)
		}
		fs := FixtureSession{SessionID: id, Responses: raws}
		p, err := src.Get(ctx, id)
		switch {
		case err == nil:
			fs.Expected = expectationOf(p)
		case isNotFound(err):
		default:
			return nil, fmt.Errorf("export %s: %w", id, err)
		}
		fx.Sessions = append(fx.Sessions, fs)
	}
	return fx, nil
}

func expectationOf(p profile.Profile) Expectation {
	return Expectation{
		TypeCode:      p.TypeCode,
		Band:          string(p.Confidence.Band),
		Validity:      string(p.Validity.Status),
		Overlay:       string(p.Overlay),
		FitBand:       p.FitBand,
		ResponsesHash: p.ResponsesHash,
	}
}

// #endregion export
