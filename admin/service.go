// Package admin exposes a small gRPC introspection/administration surface
// over a page manager: current ring statistics and runtime retention
// changes. It declares its service by hand via grpc.ServiceDesc (no .proto
// file backs it) and carries its request/response payloads as the
// well-known protobuf types (Empty, Struct, UInt64Value) rather than
// generated message types, so the wire format is still real protobuf over
// gRPC without requiring a protoc run — see DESIGN.md.
package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yanet-platform/diskqueue/manager"
)

// serviceName is the fully-qualified gRPC service name this package serves.
const serviceName = "yanet.diskqueue.admin.v1.DiskQueueAdmin"

// Server is implemented by admin.Service; it exists so the hand-declared
// ServiceDesc below can dispatch to it without depending on the concrete
// type.
type Server interface {
	GetPageStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetMaxPages(context.Context, *wrapperspb.UInt64Value) (*emptypb.Empty, error)
}

// Service implements Server over one manager.Manager.
type Service struct {
	mgr *manager.Manager
	log *zap.SugaredLogger
}

// NewService wraps mgr for administration over gRPC.
func NewService(mgr *manager.Manager, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{mgr: mgr, log: log}
}

// GetPageStats reports the manager's current ring bookkeeping.
func (s *Service) GetPageStats(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.mgr.Stats()
	st, err := structpb.NewStruct(map[string]any{
		"page_count":      float64(stats.PageCount),
		"oldest_sequence": float64(stats.Oldest),
		"max_pages":       float64(stats.MaxPages),
	})
	if err != nil {
		return nil, fmt.Errorf("admin: encode page stats: %w", err)
	}
	return st, nil
}

// SetMaxPages updates the manager's retention bound.
func (s *Service) SetMaxPages(_ context.Context, in *wrapperspb.UInt64Value) (*emptypb.Empty, error) {
	s.mgr.SetMaxDataPages(in.GetValue())
	s.log.Infow("admin: updated max pages", "max_pages", in.GetValue())
	return &emptypb.Empty{}, nil
}

// RegisterServer registers srv with a gRPC server or any other
// ServiceRegistrar.
func RegisterServer(registrar grpc.ServiceRegistrar, srv Server) {
	registrar.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPageStats",
			Handler:    getPageStatsHandler,
		},
		{
			MethodName: "SetMaxPages",
			Handler:    setMaxPagesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "admin/service.go",
}

func getPageStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetPageStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetPageStats",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).GetPageStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setMaxPagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SetMaxPages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/SetMaxPages",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).SetMaxPages(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}
