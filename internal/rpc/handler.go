package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// Func handles one unary method.
type Func func(ctx context.Context, args Args) (Object, error)

// Unary adapts fn into a Connect handler for procedure.
func Unary(procedure string, fn Func, opts ...connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(
		procedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			out, err := fn(ctx, NewArgs(req.Msg))
			if err != nil {
				return nil, err
			}
			msg, err := out.Struct()
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(msg), nil
		},
		opts...,
	)
}

// NewServiceHandler mounts methods under "/<service>/" and returns the path
// prefix with its handler, the same shape generated Connect code returns.
func NewServiceHandler(service string, methods map[string]Func, opts ...connect.HandlerOption) (string, http.Handler) {
	prefix := "/" + service + "/"
	mux := http.NewServeMux()
	for name, fn := range methods {
		mux.Handle(prefix+name, Unary(prefix+name, fn, opts...))
	}
	return prefix, mux
}

// Client calls the methods of one service.
type Client struct {
	httpClient connect.HTTPClient
	prefix     string
	token      string
	opts       []connect.ClientOption
}

// NewClient creates a client for service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL, service string, opts ...connect.ClientOption) *Client {
	return &Client{
		httpClient: httpClient,
		prefix:     strings.TrimRight(baseURL, "/") + "/" + service + "/",
		opts:       opts,
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Call invokes method with req and returns the response fields.
func (c *Client) Call(ctx context.Context, method string, req Object) (Args, error) {
	msg, err := req.Struct()
	if err != nil {
		return Args{}, err
	}
	client := connect.NewClient[structpb.Struct, structpb.Struct](c.httpClient, c.prefix+method, c.opts...)
	request := connect.NewRequest(msg)
	if c.token != "" {
		request.Header().Set("Authorization", "Bearer "+c.token)
	}
	resp, err := client.CallUnary(ctx, request)
	if err != nil {
		return Args{}, err
	}
	return NewArgs(resp.Msg), nil
}
