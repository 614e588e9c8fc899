package rpc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/fixtures"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region harness
type env struct {
	cat    *catalog.Catalog
	store  *profile.Store
	client *Client
}

func startServer(t *testing.T) *env {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "prism.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, catalog.NewRegistry(cat), profile.NewGate(store), engine.DefaultConfig(), nil)
	srv := NewServer(eng, store, engine.Version, nil)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.UnaryInterceptor))
	RegisterScoringServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return &env{cat: cat, store: store, client: client}
}

func (e *env) seed(t *testing.T, session, code string) fixtures.Respondent {
	t.Helper()
	ty, err := rank.Lookup(code)
	require.NoError(t, err)
	r := fixtures.FromSeats(ty.Seats)
	require.NoError(t, e.store.SaveResponses(context.Background(), session, e.cat.Version(), r.Raws(e.cat)))
	return r
}

var profileCmp = cmp.Options{cmpopts.EquateEmpty(), cmpopts.EquateApprox(0, 1e-9)}

// #endregion harness

func TestScore_RoundTrip(t *testing.T) {
	e := startServer(t)
	e.seed(t, "s-1", "IEE")
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.RPCRequests.WithLabelValues("Score", codes.OK.String()))
	reply, err := e.client.Score(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, profile.DecisionCreated, reply.Decision)
	assert.Equal(t, "IEE", reply.Profile.TypeCode)
	assert.Empty(t, reply.Warnings)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RPCRequests.WithLabelValues("Score", codes.OK.String())))

	stored, err := e.store.Get(ctx, "s-1")
	require.NoError(t, err)
	if diff := cmp.Diff(stored, reply.Profile, profileCmp); diff != "" {
		t.Errorf("rpc profile differs from stored (-stored +rpc):\n%s", diff)
	}

	again, err := e.client.Score(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, profile.DecisionUnchanged, again.Decision)
}

func TestGetProfile(t *testing.T) {
	e := startServer(t)
	e.seed(t, "s-1", "SLI")
	ctx := context.Background()
	_, err := e.client.Score(ctx, "s-1")
	require.NoError(t, err)

	p, stale, err := e.client.GetProfile(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "SLI", p.TypeCode)
	assert.Equal(t, catalog.Si, p.BaseFunction)
	assert.False(t, stale)
	assert.Len(t, p.Fits, 16)
}

func TestGetProfile_NotFound(t *testing.T) {
	e := startServer(t)
	_, _, err := e.client.GetProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
}

func TestScore_RefusalCarriesKind(t *testing.T) {
	e := startServer(t)
	ty, err := rank.Lookup("ESI")
	require.NoError(t, err)
	r := fixtures.FromSeats(ty.Seats)
	r.SkipForcedChoice = 10
	require.NoError(t, e.store.SaveResponses(context.Background(), "short", e.cat.Version(), r.Raws(e.cat)))

	_, err = e.client.Score(context.Background(), "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, scoreerr.ErrStructuralInvalid)
	var se *scoreerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "short", se.SessionID)
	assert.Contains(t, se.Details[0], "insufficient forced-choice answers")
}

func TestScore_MissingSessionID(t *testing.T) {
	e := startServer(t)
	_, err := e.client.client.Score(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus_Codes(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{scoreerr.StructuralInvalid("x"), codes.InvalidArgument},
		{scoreerr.CatalogMismatch("X_1", nil), codes.FailedPrecondition},
		{scoreerr.PersistenceConflict("s", "lost"), codes.Aborted},
		{scoreerr.TransientDependency("s", "load", errors.New("db")), codes.Unavailable},
		{errors.New("plain"), codes.Internal},
	}
	for _, tc := range cases {
		st := toStatus(tc.err)
		assert.Equal(t, tc.want, status.Code(st), tc.err.Error())
		if scoreerr.KindOf(tc.err) != "" {
			assert.Equal(t, scoreerr.KindOf(tc.err), scoreerr.KindOf(fromStatus(st)))
		}
	}
}
