package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/extract"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
)

// Client - клиент сервиса инструментов поверх gRPC соединения
type Client struct {
	proto.LinkToolsClient
	conn *grpc.ClientConn
}

// Dial подключается к серверу инструментов по адресу addr
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{LinkToolsClient: proto.NewLinkToolsClient(conn), conn: conn}, nil
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.conn.Close()
}

// localClient вызывает реализацию сервиса в том же процессе
type localClient struct {
	srv proto.LinkToolsServer
}

// NewLocalClient возвращает клиента, который обращается к srv напрямую, без сети.
// Параметры вызова игнорируются.
func NewLocalClient(srv proto.LinkToolsServer) proto.LinkToolsClient {
	return localClient{srv: srv}
}

func (c localClient) CreateLink(ctx context.Context, in *proto.CreateLinkRequest, _ ...grpc.CallOption) (*proto.LinkResponse, error) {
	return c.srv.CreateLink(ctx, in)
}

func (c localClient) GetLink(ctx context.Context, in *proto.GetLinkRequest, _ ...grpc.CallOption) (*proto.LinkResponse, error) {
	return c.srv.GetLink(ctx, in)
}

func (c localClient) UpdateLink(ctx context.Context, in *proto.UpdateLinkRequest, _ ...grpc.CallOption) (*proto.LinkResponse, error) {
	return c.srv.UpdateLink(ctx, in)
}

func (c localClient) DeleteLink(ctx context.Context, in *proto.DeleteLinkRequest, _ ...grpc.CallOption) (*proto.LinkResponse, error) {
	return c.srv.DeleteLink(ctx, in)
}

func (c localClient) ListLinks(ctx context.Context, in *proto.ListLinksRequest, _ ...grpc.CallOption) (*proto.ListLinksResponse, error) {
	return c.srv.ListLinks(ctx, in)
}

func (c localClient) PlanBulk(ctx context.Context, in *proto.PlanBulkRequest, _ ...grpc.CallOption) (*bulk.Plan, error) {
	return c.srv.PlanBulk(ctx, in)
}

func (c localClient) ApplyBulk(ctx context.Context, in *proto.ApplyBulkRequest, _ ...grpc.CallOption) (*bulk.Result, error) {
	return c.srv.ApplyBulk(ctx, in)
}

func (c localClient) Cleanup(ctx context.Context, in *proto.CleanupRequest, _ ...grpc.CallOption) (*bulk.Result, error) {
	return c.srv.Cleanup(ctx, in)
}

func (c localClient) Resolve(ctx context.Context, in *proto.ResolveRequest, _ ...grpc.CallOption) (*resolver.Result, error) {
	return c.srv.Resolve(ctx, in)
}

func (c localClient) Extract(ctx context.Context, in *proto.ExtractRequest, _ ...grpc.CallOption) (*extract.Candidates, error) {
	return c.srv.Extract(ctx, in)
}

func (c localClient) Stats(ctx context.Context, in *proto.StatsRequest, _ ...grpc.CallOption) (*repository.Stats, error) {
	return c.srv.Stats(ctx, in)
}
