// Package grpcframe implements the bench/SITL Secondary Link transport:
// the same 16-byte frame i2cframe carries over a bus, carried instead
// over a gRPC channel authenticated by internal/secondary/identity. It
// hand-declares its gRPC service the way the teacher's pb package
// hand-declares LedgerServiceClient — there is no .proto in this repo,
// just the grpc.ServiceDesc wiring a generator would otherwise produce —
// and rides on google.golang.org/protobuf's well-known BytesValue
// wrapper instead of a bespoke generated message type.
package grpcframe

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/aegissuit/supervisor/internal/secondary"
	"github.com/aegissuit/supervisor/internal/secondary/i2cframe"
	"github.com/aegissuit/supervisor/internal/types"
)

const (
	serviceName      = "aegissuit.secondary.v1.SecondaryLink"
	queryFrameMethod = "/" + serviceName + "/QueryFrame"
)

// rpcTimeout bounds the whole QueryFrame round trip. A gRPC call
// replaces both I²C half-transactions with one network round trip, so
// it gets both halves' budget.
const rpcTimeout = 2 * i2cframe.HalfTransaction

// Link implements secondary.Link by dialing a SecondaryLinkServer over
// an already-established (and, in production, mTLS-authenticated)
// grpc.ClientConn.
type Link struct {
	cc *grpc.ClientConn
}

func NewLink(cc *grpc.ClientConn) *Link {
	return &Link{cc: cc}
}

func (l *Link) QuerySecondary(ctx context.Context) (types.SensorFrame, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	req := &wrapperspb.BytesValue{Value: []byte{i2cframe.CommandQuery}}
	resp := new(wrapperspb.BytesValue)
	if err := l.cc.Invoke(ctx, queryFrameMethod, req, resp); err != nil {
		return types.SensorFrame{}, &secondary.LinkError{Half: "read", Err: err}
	}
	if len(resp.Value) != i2cframe.ResponseLen {
		return types.SensorFrame{}, &secondary.LinkError{Half: "read", Err: secondary.ErrTimeout}
	}
	return i2cframe.Decode(resp.Value), nil
}

// Server impersonates the secondary MCU for bench rigs: it answers
// QueryFrame with whatever FrameSource currently reports, re-encoded
// exactly as the real secondary's firmware would.
type Server struct {
	FrameSource func() types.SensorFrame
}

func NewServer(frameSource func() types.SensorFrame) *Server {
	return &Server{FrameSource: frameSource}
}

func (s *Server) QueryFrame(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if len(req.Value) != 1 || req.Value[0] != i2cframe.CommandQuery {
		return nil, fmt.Errorf("grpcframe: unexpected command byte %v", req.Value)
	}
	return &wrapperspb.BytesValue{Value: i2cframe.Encode(s.FrameSource())}, nil
}

// SecondaryLinkServer is the interface grpc.ServiceDesc.HandlerType
// checks a registered implementation against.
type SecondaryLinkServer interface {
	QueryFrame(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func queryFrameHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SecondaryLinkServer).QueryFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: queryFrameMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SecondaryLinkServer).QueryFrame(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc registers Server (or any SecondaryLinkServer) on a
// *grpc.Server: grpcServer.RegisterService(&grpcframe.ServiceDesc, srv).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SecondaryLinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "QueryFrame", Handler: queryFrameHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "secondary.proto",
}
