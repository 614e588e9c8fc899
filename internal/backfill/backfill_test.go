package backfill

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/fixtures"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region fakes
var (
	v2 = catalog.MustParseVersion("v2.1.0")
	v1 = catalog.MustParseVersion("v2.0.0")
)

type fakeScorer struct {
	results  map[string]engine.Result
	errs     map[string]error
	delay    time.Duration
	scored   atomic.Int32
	previews atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeScorer) Score(ctx context.Context, id string) (engine.Result, error) {
	f.scored.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	if err := f.errs[id]; err != nil {
		return engine.Result{}, err
	}
	return f.results[id], nil
}

func (f *fakeScorer) Preview(_ context.Context, id string) (profile.Profile, validate.Result, error) {
	f.previews.Add(1)
	if err := f.errs[id]; err != nil {
		return profile.Profile{}, validate.Result{}, err
	}
	return profile.Profile{SessionID: id, ResponsesHash: "new-" + id}, validate.Result{IsValid: true}, nil
}

type fakeStore struct {
	sessions []string
	profiles map[string]profile.Profile
}

func (s *fakeStore) ListSessions(context.Context) ([]string, error) { return s.sessions, nil }

func (s *fakeStore) Get(_ context.Context, id string) (profile.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", id, profile.ErrNotFound)
	}
	return p, nil
}

func fastConfig() Config {
	return Config{Workers: 3}
}

// #endregion fakes

func TestRun_CountsOutcomes(t *testing.T) {
	sc := &fakeScorer{
		results: map[string]engine.Result{
			"a": {Decision: profile.DecisionCreated},
			"b": {Decision: profile.DecisionUpdated},
			"c": {Decision: profile.DecisionUnchanged},
		},
		errs: map[string]error{
			"d": scoreerr.StructuralInvalid("insufficient forced-choice answers: 3/24"),
			"e": scoreerr.CatalogMismatch("X_9", nil),
			"f": scoreerr.PersistenceConflict("f", "stored hash changed during write"),
		},
	}
	st := &fakeStore{sessions: []string{"a", "b", "c", "d", "e", "f"}}

	sum, err := New(sc, st, v2, fastConfig(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Total: 6, Written: 2, Unchanged: 1, Refused: 2, Failed: 1,
		Failures: map[string]string{
			"d": sc.errs["d"].Error(),
			"e": sc.errs["e"].Error(),
			"f": sc.errs["f"].Error(),
		},
	}, sum)
}

func TestRun_ExplicitSessions(t *testing.T) {
	sc := &fakeScorer{results: map[string]engine.Result{"x": {Decision: profile.DecisionCreated}}}
	st := &fakeStore{sessions: []string{"a", "b"}}

	sum, err := New(sc, st, v2, fastConfig(), nil).Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.Written)
	assert.EqualValues(t, 1, sc.scored.Load())
}

func TestRun_DryRunNeverScores(t *testing.T) {
	sc := &fakeScorer{errs: map[string]error{"bad": scoreerr.StructuralInvalid("nope")}}
	st := &fakeStore{
		sessions: []string{"same", "changed", "stale", "new", "bad"},
		profiles: map[string]profile.Profile{
			"same":    {ResponsesHash: "new-same"},
			"changed": {ResponsesHash: "old"},
			"stale":   {ResponsesHash: "new-stale", ResultsVersion: v1},
		},
	}
	cfg := fastConfig()
	cfg.DryRun = true

	sum, err := New(sc, st, v2, cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 3, sum.Written)
	assert.Equal(t, 1, sum.Unchanged)
	assert.Equal(t, 1, sum.Refused)
	assert.Zero(t, sc.scored.Load())
	assert.EqualValues(t, 5, sc.previews.Load())
}

func TestRun_StaleOnly(t *testing.T) {
	sc := &fakeScorer{results: map[string]engine.Result{
		"old": {Decision: profile.DecisionUpdated},
		"new": {Decision: profile.DecisionCreated},
	}}
	st := &fakeStore{
		sessions: []string{"old", "current", "new"},
		profiles: map[string]profile.Profile{
			"old":     {ResultsVersion: v1},
			"current": {ResultsVersion: v2},
		},
	}
	cfg := fastConfig()
	cfg.StaleOnly = true

	sum, err := New(sc, st, v2, cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Written)
	assert.EqualValues(t, 2, sc.scored.Load())
}

func TestRun_BoundedWorkers(t *testing.T) {
	sc := &fakeScorer{results: map[string]engine.Result{}, delay: 5 * time.Millisecond}
	st := &fakeStore{}
	for i := range 20 {
		id := fmt.Sprintf("s%02d", i)
		st.sessions = append(st.sessions, id)
		sc.results[id] = engine.Result{Decision: profile.DecisionCreated}
	}
	cfg := Config{Workers: 2}

	sum, err := New(sc, st, v2, cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, sum.Written)
	assert.LessOrEqual(t, sc.peak.Load(), int32(2))
}

func TestRun_Throttled(t *testing.T) {
	sc := &fakeScorer{results: map[string]engine.Result{}}
	st := &fakeStore{sessions: []string{"a", "b", "c", "d", "e"}}
	cfg := Config{Workers: 5, RatePerSecond: 100, Burst: 1}

	start := time.Now()
	sum, err := New(sc, st, v2, cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	// four waits of 10ms after the initial burst token
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRun_Cancelled(t *testing.T) {
	sc := &fakeScorer{results: map[string]engine.Result{}, delay: time.Second}
	st := &fakeStore{sessions: []string{"a", "b", "c", "d"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(10*time.Millisecond, cancel)

	sum, err := New(sc, st, v2, Config{Workers: 2}, nil).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Written)
}

func TestRun_EndToEnd(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "prism.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, code := range []string{"ILE", "SEI", "LSI"} {
		ty, err := rank.Lookup(code)
		require.NoError(t, err)
		require.NoError(t, store.SaveResponses(ctx, "s-"+code, cat.Version(), fixtures.FromSeats(ty.Seats).Raws(cat)))
	}
	short := fixtures.FromSeats(rank.Types()[0].Seats)
	short.SkipForcedChoice = 10
	require.NoError(t, store.SaveResponses(ctx, "s-short", cat.Version(), short.Raws(cat)))

	eng := engine.New(store, catalog.NewRegistry(cat), profile.NewGate(store), engine.DefaultConfig(), nil)
	r := New(eng, store, engine.Version, DefaultConfig(), nil)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 3, first.Written)
	assert.Equal(t, 1, first.Refused)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Unchanged)
	assert.Equal(t, 1, second.Refused)

	p, err := store.Get(ctx, "s-SEI")
	require.NoError(t, err)
	assert.Equal(t, "SEI", p.TypeCode)
}

func TestRun_StaleOnlyRewritesOldProfiles(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "prism.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	ty, err := rank.Lookup("EIE")
	require.NoError(t, err)
	require.NoError(t, store.SaveResponses(ctx, "s-old", cat.Version(), fixtures.FromSeats(ty.Seats).Raws(cat)))

	// A profile written by an older engine from the same answers.
	eng := engine.New(store, catalog.NewRegistry(cat), profile.NewGate(store), engine.DefaultConfig(), nil)
	old, _, err := eng.Preview(ctx, "s-old")
	require.NoError(t, err)
	old.ResultsVersion = v1
	_, decision, err := profile.NewGate(store).Persist(ctx, old)
	require.NoError(t, err)
	require.Equal(t, profile.DecisionCreated, decision)

	r := New(eng, store, engine.Version, Config{Workers: 1, StaleOnly: true}, nil)
	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Written)

	stored, err := store.Get(ctx, "s-old")
	require.NoError(t, err)
	assert.Equal(t, engine.Version, stored.ResultsVersion)
	assert.Equal(t, old.ResponsesHash, stored.ResponsesHash)
	assert.False(t, stored.IsStale(engine.Version))

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.Zero(t, second.Written)
}
