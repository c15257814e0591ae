package admin

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a thin hand-written stub for the admin service, mirroring what
// protoc-gen-go-grpc would emit for the same ServiceDesc.
type Client interface {
	GetPageStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetMaxPages(ctx context.Context, maxPages uint64, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc as an admin Client.
func NewClient(cc grpc.ClientConnInterface) Client {
	return &client{cc: cc}
}

func (c *client) GetPageStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetPageStats", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SetMaxPages(ctx context.Context, maxPages uint64, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	in := wrapperspb.UInt64(maxPages)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SetMaxPages", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
