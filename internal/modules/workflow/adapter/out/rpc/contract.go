package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey       = "driver"
	serviceName        = "lingobot.driver.v1.AutomationDriver"
	jsonCodecName      = "json"
	methodDescribe     = "/" + serviceName + "/Describe"
	methodLogin        = "/" + serviceName + "/Login"
	methodRunIteration = "/" + serviceName + "/RunIteration"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "LINGOBOT_DRIVER",
	MagicCookieValue: "lingobot",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type DriverInfo struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Modes   []string `json:"modes"`
}

type SessionContext struct {
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id"`
	Label     string            `json:"label"`
	Env       map[string]string `json:"env,omitempty"`
}

type LoginRequest struct {
	Context SessionContext `json:"context"`
}

type LoginResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type UnitRef struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Index int32  `json:"index"`
}

type IterationRequest struct {
	Context SessionContext `json:"context"`
	Unit    UnitRef        `json:"unit"`
}

type IterationResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type AutomationDriverServer interface {
	Describe(ctx context.Context, in *Empty) (*DriverInfo, error)
	Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error)
	RunIteration(ctx context.Context, in *IterationRequest) (*IterationResponse, error)
}

type AutomationDriverClient interface {
	Describe(ctx context.Context) (*DriverInfo, error)
	Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error)
	RunIteration(ctx context.Context, in *IterationRequest) (*IterationResponse, error)
}

type automationDriverClient struct {
	conn *grpc.ClientConn
}

func NewAutomationDriverClient(conn *grpc.ClientConn) AutomationDriverClient {
	return &automationDriverClient{conn: conn}
}

func (c *automationDriverClient) Describe(ctx context.Context) (*DriverInfo, error) {
	out := &DriverInfo{}
	if err := c.conn.Invoke(ctx, methodDescribe, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *automationDriverClient) Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	out := &LoginResponse{}
	if err := c.conn.Invoke(ctx, methodLogin, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *automationDriverClient) RunIteration(ctx context.Context, in *IterationRequest) (*IterationResponse, error) {
	out := &IterationResponse{}
	if err := c.conn.Invoke(ctx, methodRunIteration, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterAutomationDriverServer(server grpc.ServiceRegistrar, impl AutomationDriverServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AutomationDriverServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Describe",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Describe(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDescribe}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Describe(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Login",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &LoginRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Login(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodLogin}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*LoginRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Login(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "RunIteration",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &IterationRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.RunIteration(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRunIteration}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*IterationRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.RunIteration(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/driver-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AutomationDriverServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAutomationDriverServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAutomationDriverClient(conn), nil
}

func PluginMap(impl AutomationDriverServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
