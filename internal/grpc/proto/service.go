package proto

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/extract"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
)

// ServiceName - полное имя gRPC сервиса
const ServiceName = "openlinks.v1.LinkTools"

// CodecName - content-subtype, под которым зарегистрирован JSON-кодек
const CodecName = "json"

// jsonCodec кодирует сообщения сервиса в JSON
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// FullMethod возвращает полное имя метода сервиса
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// LinkToolsServer представляет интерфейс gRPC сервиса
type LinkToolsServer interface {
	CreateLink(ctx context.Context, req *CreateLinkRequest) (*LinkResponse, error)
	GetLink(ctx context.Context, req *GetLinkRequest) (*LinkResponse, error)
	UpdateLink(ctx context.Context, req *UpdateLinkRequest) (*LinkResponse, error)
	DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*LinkResponse, error)
	ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error)
	PlanBulk(ctx context.Context, req *PlanBulkRequest) (*bulk.Plan, error)
	ApplyBulk(ctx context.Context, req *ApplyBulkRequest) (*bulk.Result, error)
	Cleanup(ctx context.Context, req *CleanupRequest) (*bulk.Result, error)
	Resolve(ctx context.Context, req *ResolveRequest) (*resolver.Result, error)
	Extract(ctx context.Context, req *ExtractRequest) (*extract.Candidates, error)
	Stats(ctx context.Context, req *StatsRequest) (*repository.Stats, error)
}

// UnimplementedLinkToolsServer отвечает Unimplemented на все методы
type UnimplementedLinkToolsServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedLinkToolsServer) CreateLink(context.Context, *CreateLinkRequest) (*LinkResponse, error) {
	return nil, unimplemented("CreateLink")
}

func (UnimplementedLinkToolsServer) GetLink(context.Context, *GetLinkRequest) (*LinkResponse, error) {
	return nil, unimplemented("GetLink")
}

func (UnimplementedLinkToolsServer) UpdateLink(context.Context, *UpdateLinkRequest) (*LinkResponse, error) {
	return nil, unimplemented("UpdateLink")
}

func (UnimplementedLinkToolsServer) DeleteLink(context.Context, *DeleteLinkRequest) (*LinkResponse, error) {
	return nil, unimplemented("DeleteLink")
}

func (UnimplementedLinkToolsServer) ListLinks(context.Context, *ListLinksRequest) (*ListLinksResponse, error) {
	return nil, unimplemented("ListLinks")
}

func (UnimplementedLinkToolsServer) PlanBulk(context.Context, *PlanBulkRequest) (*bulk.Plan, error) {
	return nil, unimplemented("PlanBulk")
}

func (UnimplementedLinkToolsServer) ApplyBulk(context.Context, *ApplyBulkRequest) (*bulk.Result, error) {
	return nil, unimplemented("ApplyBulk")
}

func (UnimplementedLinkToolsServer) Cleanup(context.Context, *CleanupRequest) (*bulk.Result, error) {
	return nil, unimplemented("Cleanup")
}

func (UnimplementedLinkToolsServer) Resolve(context.Context, *ResolveRequest) (*resolver.Result, error) {
	return nil, unimplemented("Resolve")
}

func (UnimplementedLinkToolsServer) Extract(context.Context, *ExtractRequest) (*extract.Candidates, error) {
	return nil, unimplemented("Extract")
}

func (UnimplementedLinkToolsServer) Stats(context.Context, *StatsRequest) (*repository.Stats, error) {
	return nil, unimplemented("Stats")
}

// unary описывает унарный метод: декодирует запрос и пропускает вызов через интерцептор
func unary[Req, Resp any](name string, call func(LinkToolsServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LinkToolsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LinkToolsServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LinkToolsServiceDesc описывает сервис для grpc.Server
var LinkToolsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LinkToolsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateLink", LinkToolsServer.CreateLink),
		unary("GetLink", LinkToolsServer.GetLink),
		unary("UpdateLink", LinkToolsServer.UpdateLink),
		unary("DeleteLink", LinkToolsServer.DeleteLink),
		unary("ListLinks", LinkToolsServer.ListLinks),
		unary("PlanBulk", LinkToolsServer.PlanBulk),
		unary("ApplyBulk", LinkToolsServer.ApplyBulk),
		unary("Cleanup", LinkToolsServer.Cleanup),
		unary("Resolve", LinkToolsServer.Resolve),
		unary("Extract", LinkToolsServer.Extract),
		unary("Stats", LinkToolsServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "openlinks/v1/link_tools.proto",
}

// RegisterLinkToolsServer регистрирует реализацию сервиса в gRPC сервере
func RegisterLinkToolsServer(s grpc.ServiceRegistrar, srv LinkToolsServer) {
	s.RegisterService(&LinkToolsServiceDesc, srv)
}

// LinkToolsClient - клиентская сторона сервиса
type LinkToolsClient interface {
	CreateLink(ctx context.Context, in *CreateLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error)
	GetLink(ctx context.Context, in *GetLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error)
	UpdateLink(ctx context.Context, in *UpdateLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error)
	DeleteLink(ctx context.Context, in *DeleteLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error)
	ListLinks(ctx context.Context, in *ListLinksRequest, opts ...grpc.CallOption) (*ListLinksResponse, error)
	PlanBulk(ctx context.Context, in *PlanBulkRequest, opts ...grpc.CallOption) (*bulk.Plan, error)
	ApplyBulk(ctx context.Context, in *ApplyBulkRequest, opts ...grpc.CallOption) (*bulk.Result, error)
	Cleanup(ctx context.Context, in *CleanupRequest, opts ...grpc.CallOption) (*bulk.Result, error)
	Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*resolver.Result, error)
	Extract(ctx context.Context, in *ExtractRequest, opts ...grpc.CallOption) (*extract.Candidates, error)
	Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*repository.Stats, error)
}

type linkToolsClient struct {
	cc grpc.ClientConnInterface
}

// NewLinkToolsClient создаёт клиента поверх соединения. Вызовы кодируются JSON-кодеком.
func NewLinkToolsClient(cc grpc.ClientConnInterface) LinkToolsClient {
	return &linkToolsClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *linkToolsClient) CreateLink(ctx context.Context, in *CreateLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c.cc, "CreateLink", in, opts)
}

func (c *linkToolsClient) GetLink(ctx context.Context, in *GetLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c.cc, "GetLink", in, opts)
}

func (c *linkToolsClient) UpdateLink(ctx context.Context, in *UpdateLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c.cc, "UpdateLink", in, opts)
}

func (c *linkToolsClient) DeleteLink(ctx context.Context, in *DeleteLinkRequest, opts ...grpc.CallOption) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c.cc, "DeleteLink", in, opts)
}

func (c *linkToolsClient) ListLinks(ctx context.Context, in *ListLinksRequest, opts ...grpc.CallOption) (*ListLinksResponse, error) {
	return invoke[ListLinksResponse](ctx, c.cc, "ListLinks", in, opts)
}

func (c *linkToolsClient) PlanBulk(ctx context.Context, in *PlanBulkRequest, opts ...grpc.CallOption) (*bulk.Plan, error) {
	return invoke[bulk.Plan](ctx, c.cc, "PlanBulk", in, opts)
}

func (c *linkToolsClient) ApplyBulk(ctx context.Context, in *ApplyBulkRequest, opts ...grpc.CallOption) (*bulk.Result, error) {
	return invoke[bulk.Result](ctx, c.cc, "ApplyBulk", in, opts)
}

func (c *linkToolsClient) Cleanup(ctx context.Context, in *CleanupRequest, opts ...grpc.CallOption) (*bulk.Result, error) {
	return invoke[bulk.Result](ctx, c.cc, "Cleanup", in, opts)
}

func (c *linkToolsClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*resolver.Result, error) {
	return invoke[resolver.Result](ctx, c.cc, "Resolve", in, opts)
}

func (c *linkToolsClient) Extract(ctx context.Context, in *ExtractRequest, opts ...grpc.CallOption) (*extract.Candidates, error) {
	return invoke[extract.Candidates](ctx, c.cc, "Extract", in, opts)
}

func (c *linkToolsClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*repository.Stats, error) {
	return invoke[repository.Stats](ctx, c.cc, "Stats", in, opts)
}
