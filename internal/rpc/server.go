package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region deps
// Scorer scores a stored session. *engine.Engine implements it.
type Scorer interface {
	Score(ctx context.Context, sessionID string) (engine.Result, error)
}

// ProfileReader reads stored profiles. *profile.Store implements it.
type ProfileReader interface {
	Get(ctx context.Context, sessionID string) (profile.Profile, error)
}

// #endregion deps

// #region server
// Server implements ScoringServer over an engine and a profile store.
type Server struct {
	scorer  Scorer
	reader  ProfileReader
	version catalog.Version
	logger  *zap.Logger
}

// NewServer creates a server. version is the engine results version used for
// the stale flag on GetProfile.
func NewServer(scorer Scorer, reader ProfileReader, version catalog.Version, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{scorer: scorer, reader: reader, version: version, logger: logger}
}

// Score handles ScoringService/Score.
func (s *Server) Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	res, err := s.scorer.Score(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	warnings := make([]any, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Error())
	}
	return encode(map[string]any{
		"decision": string(res.Decision),
		"profile":  res.Profile,
		"warnings": warnings,
	})
}

// GetProfile handles ScoringService/GetProfile.
func (s *Server) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	p, err := s.reader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "no profile for session %s", id)
		}
		return nil, status.Errorf(codes.Unavailable, "read profile: %v", err)
	}
	return encode(map[string]any{
		"profile": p,
		"stale":   p.IsStale(s.version),
	})
}

// UnaryInterceptor logs and counts every call.
func (s *Server) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	method := info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
	metrics.RPCRequests.WithLabelValues(method, code.String()).Inc()
	s.logger.Info("rpc",
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("elapsed", time.Since(start)))
	return resp, err
}

// #endregion server

// #region encoding
func sessionID(in *structpb.Struct) (string, error) {
	v, ok := in.GetFields()["session_id"]
	if !ok || strings.TrimSpace(v.GetStringValue()) == "" {
		return "", status.Error(codes.InvalidArgument, "session_id is required")
	}
	return strings.TrimSpace(v.GetStringValue()), nil
}

// encode converts Go values to a Struct via their JSON form.
func encode(fields map[string]any) (*structpb.Struct, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// decode converts a Struct field back into a Go value via JSON.
func decode(v *structpb.Value, dst any) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal field: %w", err)
	}
	return json.Unmarshal(b, dst)
}

// #endregion encoding

// #region errors
var kindCodes = map[scoreerr.Kind]codes.Code{
	scoreerr.KindStructuralInvalid:   codes.InvalidArgument,
	scoreerr.KindCatalogMismatch:     codes.FailedPrecondition,
	scoreerr.KindPersistenceConflict: codes.Aborted,
	scoreerr.KindTransientDependency: codes.Unavailable,
}

// toStatus maps a scoring error to a gRPC status carrying the kind and
// details as a Struct detail.
func toStatus(err error) error {
	var se *scoreerr.Error
	if !errors.As(err, &se) {
		return status.Error(codes.Internal, err.Error())
	}
	code, ok := kindCodes[se.Kind]
	if !ok {
		code = codes.Internal
	}
	st := status.New(code, err.Error())
	details := make([]any, 0, len(se.Details))
	for _, d := range se.Details {
		details = append(details, d)
	}
	info, derr := structpb.NewStruct(map[string]any{
		"kind":       string(se.Kind),
		"session_id": se.SessionID,
		"details":    details,
	})
	if derr != nil {
		return st.Err()
	}
	if withDetails, derr := st.WithDetails(info); derr == nil {
		st = withDetails
	}
	return st.Err()
}

// fromStatus rebuilds a scoring error from a status produced by toStatus.
// Statuses without a kind detail are returned as-is.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		f := info.GetFields()
		kind := scoreerr.Kind(f["kind"].GetStringValue())
		if kind == "" {
			continue
		}
		out := &scoreerr.Error{Kind: kind, SessionID: f["session_id"].GetStringValue()}
		for _, v := range f["details"].GetListValue().GetValues() {
			out.Details = append(out.Details, v.GetStringValue())
		}
		return out
	}
	return err
}

// #endregion errors
