package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/session"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// Client talks to a running sentry daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr. Extra options are appended to the defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "dial control service").WithMetadata("addr", addr)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call runs cmd on the daemon. Errors come back as *apperrors.AppError.
func (c *Client) Call(ctx context.Context, cmd session.Command) (session.Result, error) {
	var res session.Result
	method, ok := methodFor(cmd.Name)
	if !ok {
		return res, apperrors.Newf(apperrors.CodePrecondition, "unknown command %q", cmd.Name)
	}
	in, err := toStruct(cmd)
	if err != nil {
		return res, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return res, apperrors.FromGRPCError(err)
	}
	if err := fromStruct(out, &res); err != nil {
		return res, apperrors.Wrap(err, apperrors.CodeInternal, "decode response")
	}
	return res, nil
}

func methodFor(cmdName string) (string, bool) {
	for m, name := range methods {
		if name == cmdName {
			return m, true
		}
	}
	return "", false
}

// SetCorner sets corner from p, or from the daemon's pointer position when p is nil.
func (c *Client) SetCorner(ctx context.Context, corner string, p *region.Point) (session.Result, error) {
	cmd := session.Command{Name: session.CmdSetCorner, Corner: corner}
	if p != nil {
		cmd.X, cmd.Y = &p.X, &p.Y
	}
	return c.Call(ctx, cmd)
}

// StartScan starts scanning; a nil limit uses the daemon default.
func (c *Client) StartScan(ctx context.Context, limit *int) (session.Result, error) {
	return c.Call(ctx, session.Command{Name: session.CmdStartScan, Limit: limit})
}

func (c *Client) StopScan(ctx context.Context) (session.Result, error) {
	return c.Call(ctx, session.Command{Name: session.CmdStopScan})
}

func (c *Client) ToggleOverlay(ctx context.Context) (session.Result, error) {
	return c.Call(ctx, session.Command{Name: session.CmdToggleOverlay})
}

func (c *Client) Status(ctx context.Context) (session.Result, error) {
	return c.Call(ctx, session.Command{Name: session.CmdStatus})
}

func (c *Client) Exit(ctx context.Context) (session.Result, error) {
	return c.Call(ctx, session.Command{Name: session.CmdExit})
}

// Healthy checks the standard health service.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, apperrors.FromGRPCError(err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
