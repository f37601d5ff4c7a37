package control

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/session"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// methods maps each gRPC method onto the session command it runs.
var methods = map[string]string{
	MethodSetCorner:     session.CmdSetCorner,
	MethodStartScan:     session.CmdStartScan,
	MethodStopScan:      session.CmdStopScan,
	MethodToggleOverlay: session.CmdToggleOverlay,
	MethodConfigure:     session.CmdConfigure,
	MethodSaveConfig:    session.CmdSaveConfig,
	MethodLoadConfig:    session.CmdLoadConfig,
	MethodExit:          session.CmdExit,
	MethodStatus:        session.CmdStatus,
}

// ServiceDesc describes the control service. Requests and responses are
// google.protobuf.Struct carrying the JSON form of session.Command and
// session.Result.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*session.Executor)(nil),
	Methods:     buildMethods(),
	Metadata:    "scansentry/v1/control.proto",
}

func buildMethods() []grpc.MethodDesc {
	order := []string{
		MethodSetCorner, MethodStartScan, MethodStopScan, MethodToggleOverlay,
		MethodConfigure, MethodSaveConfig, MethodLoadConfig, MethodExit, MethodStatus,
	}
	out := make([]grpc.MethodDesc, 0, len(order))
	for _, m := range order {
		out = append(out, grpc.MethodDesc{MethodName: m, Handler: methodHandler(m, methods[m])})
	}
	return out
}

func methodHandler(method, cmdName string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, srv.(session.Executor), cmdName, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, handler)
	}
}

func call(ctx context.Context, exec session.Executor, cmdName string, in *structpb.Struct) (*structpb.Struct, error) {
	var cmd session.Command
	if err := fromStruct(in, &cmd); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePrecondition, "malformed request")
	}
	cmd.Name = cmdName
	res, err := exec.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return toStruct(res)
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode message")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode message")
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode message")
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Server is the gRPC server hosting the control and health services.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer registers the control service for exec.
func NewServer(exec session.Executor, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor())}, opts...)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&ServiceDesc, exec)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpc: gs, health: hs}
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop reports NOT_SERVING, drains in-flight calls and stops.
func (s *Server) Stop() {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.grpc.Stop()
	}
}
