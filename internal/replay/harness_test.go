package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/fixtures"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
)

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

// 1. The checked-in baseline replays clean against the current engine.
func TestReplay_Baseline(t *testing.T) {
	fx, err := LoadFixture(filepath.Join("testdata", "baseline.json"))
	require.NoError(t, err)
	cat := defaultCatalog(t)
	require.Equal(t, cat.Version().String(), fx.CatalogVersion)

	results := Replay(fx, cat, engine.DefaultConfig())
	for _, r := range results {
		assert.Contains(t, []string{"match", "refused"}, r.Action, "%s: %s %v", r.SessionID, r.Reason, r.Mismatches)
	}
	sum := Summarize(results)
	assert.True(t, sum.OK())
	assert.Equal(t, 9, sum.Total)
	assert.Equal(t, 1, sum.Refused)
	assert.Equal(t, 8, sum.Matched)
}

// 2. A wrong expectation is reported field by field.
func TestReplay_Mismatch(t *testing.T) {
	cat := defaultCatalog(t)
	ty, err := rank.Lookup("ILI")
	require.NoError(t, err)
	fx := &Fixture{Sessions: []FixtureSession{{
		SessionID: "s",
		Responses: fixtures.FromSeats(ty.Seats).Raws(cat),
		Expected:  Expectation{TypeCode: "LIE", Band: "High"},
	}}}

	results := Replay(fx, cat, engine.DefaultConfig())
	require.Len(t, results, 1)
	assert.Equal(t, "mismatch", results[0].Action)
	assert.Equal(t, []string{`type_code: want "LIE", got "ILI"`}, results[0].Mismatches)
	assert.False(t, Summarize(results).OK())
}

// 3. An unexpected refusal is a mismatch, not a refusal.
func TestReplay_UnexpectedRefusal(t *testing.T) {
	cat := defaultCatalog(t)
	fx := &Fixture{Sessions: []FixtureSession{{SessionID: "empty"}}}

	results := Replay(fx, cat, engine.DefaultConfig())
	assert.Equal(t, "mismatch", results[0].Action)
	assert.Error(t, results[0].Err)
}

// 4. An expected error kind that does not occur is a mismatch.
func TestReplay_ExpectedRefusalMissing(t *testing.T) {
	cat := defaultCatalog(t)
	ty, err := rank.Lookup("SLE")
	require.NoError(t, err)
	fx := &Fixture{Sessions: []FixtureSession{{
		SessionID: "s",
		Responses: fixtures.FromSeats(ty.Seats).Raws(cat),
		Expected:  Expectation{ErrorKind: "structural_invalid"},
	}}}

	results := Replay(fx, cat, engine.DefaultConfig())
	assert.Equal(t, "mismatch", results[0].Action)
}

// 5. Export from a store and replay round-trips through a file.
func TestExport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := defaultCatalog(t)
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "prism.db"))
	require.NoError(t, err)
	defer store.Close()

	eng := engine.New(store, catalog.NewRegistry(cat), profile.NewGate(store), engine.DefaultConfig(), nil)
	for _, code := range []string{"EIE", "LSI"} {
		ty, err := rank.Lookup(code)
		require.NoError(t, err)
		require.NoError(t, store.SaveResponses(ctx, code, cat.Version(), fixtures.FromSeats(ty.Seats).Raws(cat)))
		_, err = eng.Score(ctx, code)
		require.NoError(t, err)
	}
	unscored := fixtures.FromSeats(rank.Types()[0].Seats)
	require.NoError(t, store.SaveResponses(ctx, "pending", cat.Version(), unscored.Raws(cat)))

	fx, err := Export(ctx, store, "export test", cat.Version().String(), []string{"EIE", "LSI", "pending"})
	require.NoError(t, err)
	require.Len(t, fx.Sessions, 3)
	assert.Equal(t, "EIE", fx.Sessions[0].Expected.TypeCode)
	assert.Equal(t, Expectation{}, fx.Sessions[2].Expected)

	path := filepath.Join(t.TempDir(), "fx.json")
	require.NoError(t, WriteFixture(path, fx))
	loaded, err := LoadFixture(path)
	require.NoError(t, err)

	sum := Summarize(Replay(loaded, cat, engine.DefaultConfig()))
	assert.Equal(t, 3, sum.Matched)
	assert.True(t, sum.OK())
}

func TestCatalogFor(t *testing.T) {
	cat := defaultCatalog(t)
	next, err := catalog.New(catalog.MustParseVersion("v1.4.0"), cat.FCVersion(), cat.Items())
	require.NoError(t, err)
	reg := catalog.NewRegistry(cat, next)

	got, err := CatalogFor(&Fixture{CatalogVersion: cat.Version().String()}, reg)
	require.NoError(t, err)
	assert.Same(t, cat, got)

	got, err = CatalogFor(&Fixture{}, reg)
	require.NoError(t, err)
	assert.Same(t, next, got)

	_, err = CatalogFor(&Fixture{CatalogVersion: "v9.9.9"}, reg)
	assert.Error(t, err)
	_, err = CatalogFor(&Fixture{CatalogVersion: "latest"}, reg)
	assert.Error(t, err)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
