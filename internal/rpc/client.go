package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/prism-engine/internal/profile"
)

// #region types
// ScoreReply is the decoded response of a Score call.
type ScoreReply struct {
	Decision profile.Decision
	Profile  profile.Profile
	Warnings []string
}

// #endregion types

// #region client-struct
// Client wraps the gRPC connection to a scoring service.
type Client struct {
	conn   *grpc.ClientConn
	client ScoringClient
}

// NewClient connects to a scoring service. The connection is lazy; errors
// surface on the first call.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, client: NewScoringClient(conn)}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
func NewClientWithService(svc ScoringClient) *Client {
	return &Client{client: svc}
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion client-struct

// #region calls
// Score asks the service to score a stored session. Scoring errors come back
// as *scoreerr.Error when the server attached a kind.
func (c *Client) Score(ctx context.Context, sessionID string) (ScoreReply, error) {
	resp, err := c.client.Score(ctx, request(sessionID))
	if err != nil {
		return ScoreReply{}, fmt.Errorf("score rpc: %w", fromStatus(err))
	}
	f := resp.GetFields()
	reply := ScoreReply{Decision: profile.Decision(f["decision"].GetStringValue())}
	if err := decode(f["profile"], &reply.Profile); err != nil {
		return ScoreReply{}, fmt.Errorf("decode profile: %w", err)
	}
	for _, w := range f["warnings"].GetListValue().GetValues() {
		reply.Warnings = append(reply.Warnings, w.GetStringValue())
	}
	return reply, nil
}

// GetProfile fetches the stored profile and whether it is stale.
func (c *Client) GetProfile(ctx context.Context, sessionID string) (profile.Profile, bool, error) {
	resp, err := c.client.GetProfile(ctx, request(sessionID))
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("get profile rpc: %w", fromStatus(err))
	}
	f := resp.GetFields()
	var p profile.Profile
	if err := decode(f["profile"], &p); err != nil {
		return profile.Profile{}, false, fmt.Errorf("decode profile: %w", err)
	}
	return p, f["stale"].GetBoolValue(), nil
}

func request(sessionID string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(sessionID),
	}}
}

// #endregion calls
