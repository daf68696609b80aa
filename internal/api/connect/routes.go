package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	FocusServiceName = "focusbox.v1.FocusService"
	HostServiceName  = "focusbox.v1.HostService"
)

// Procedure paths.
const (
	FocusServiceRequestFocusProcedure    = "/focusbox.v1.FocusService/RequestFocus"
	FocusServiceAbandonFocusProcedure    = "/focusbox.v1.FocusService/AbandonFocus"
	FocusServiceGetStateProcedure        = "/focusbox.v1.FocusService/GetState"
	FocusServiceSubscribeEventsProcedure = "/focusbox.v1.FocusService/SubscribeEvents"

	HostServiceAcquireProcedure      = "/focusbox.v1.HostService/Acquire"
	HostServiceReleaseProcedure      = "/focusbox.v1.HostService/Release"
	HostServiceListClientsProcedure  = "/focusbox.v1.HostService/ListClients"
	HostServiceInjectSignalProcedure = "/focusbox.v1.HostService/InjectSignal"
)

// FocusServiceHandler is implemented by FocusService.
type FocusServiceHandler interface {
	RequestFocus(context.Context, *connect.Request[RequestFocusRequest]) (*connect.Response[RequestFocusResponse], error)
	AbandonFocus(context.Context, *connect.Request[AbandonFocusRequest]) (*connect.Response[AbandonFocusResponse], error)
	GetState(context.Context, *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error)
	SubscribeEvents(context.Context, *connect.Request[SubscribeEventsRequest], *connect.ServerStream[Event]) error
}

// HostServiceHandler is implemented by HostService.
type HostServiceHandler interface {
	Acquire(context.Context, *connect.Request[AcquireRequest]) (*connect.Response[AcquireResponse], error)
	Release(context.Context, *connect.Request[ReleaseRequest]) (*connect.Response[ReleaseResponse], error)
	ListClients(context.Context, *connect.Request[ListClientsRequest]) (*connect.Response[ListClientsResponse], error)
	InjectSignal(context.Context, *connect.Request[InjectSignalRequest]) (*connect.Response[InjectSignalResponse], error)
}

// NewFocusServiceHandler builds an HTTP handler for the focus service and returns the path to mount it on.
func NewFocusServiceHandler(svc FocusServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(FocusServiceRequestFocusProcedure, connect.NewUnaryHandler(FocusServiceRequestFocusProcedure, svc.RequestFocus, opts...))
	mux.Handle(FocusServiceAbandonFocusProcedure, connect.NewUnaryHandler(FocusServiceAbandonFocusProcedure, svc.AbandonFocus, opts...))
	mux.Handle(FocusServiceGetStateProcedure, connect.NewUnaryHandler(FocusServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(FocusServiceSubscribeEventsProcedure, connect.NewServerStreamHandler(FocusServiceSubscribeEventsProcedure, svc.SubscribeEvents, opts...))
	return "/" + FocusServiceName + "/", mux
}

// NewHostServiceHandler builds an HTTP handler for the host service and returns the path to mount it on.
func NewHostServiceHandler(svc HostServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(HostServiceAcquireProcedure, connect.NewUnaryHandler(HostServiceAcquireProcedure, svc.Acquire, opts...))
	mux.Handle(HostServiceReleaseProcedure, connect.NewUnaryHandler(HostServiceReleaseProcedure, svc.Release, opts...))
	mux.Handle(HostServiceListClientsProcedure, connect.NewUnaryHandler(HostServiceListClientsProcedure, svc.ListClients, opts...))
	mux.Handle(HostServiceInjectSignalProcedure, connect.NewUnaryHandler(HostServiceInjectSignalProcedure, svc.InjectSignal, opts...))
	return "/" + HostServiceName + "/", mux
}

// FocusServiceClient calls the focus service.
type FocusServiceClient struct {
	requestFocus    *connect.Client[RequestFocusRequest, RequestFocusResponse]
	abandonFocus    *connect.Client[AbandonFocusRequest, AbandonFocusResponse]
	getState        *connect.Client[GetStateRequest, GetStateResponse]
	subscribeEvents *connect.Client[SubscribeEventsRequest, Event]
}

// NewFocusServiceClient creates a focus service client for the server at baseURL.
func NewFocusServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FocusServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &FocusServiceClient{
		requestFocus:    connect.NewClient[RequestFocusRequest, RequestFocusResponse](httpClient, baseURL+FocusServiceRequestFocusProcedure, opts...),
		abandonFocus:    connect.NewClient[AbandonFocusRequest, AbandonFocusResponse](httpClient, baseURL+FocusServiceAbandonFocusProcedure, opts...),
		getState:        connect.NewClient[GetStateRequest, GetStateResponse](httpClient, baseURL+FocusServiceGetStateProcedure, opts...),
		subscribeEvents: connect.NewClient[SubscribeEventsRequest, Event](httpClient, baseURL+FocusServiceSubscribeEventsProcedure, opts...),
	}
}

func (c *FocusServiceClient) RequestFocus(ctx context.Context, req *connect.Request[RequestFocusRequest]) (*connect.Response[RequestFocusResponse], error) {
	return c.requestFocus.CallUnary(ctx, req)
}

func (c *FocusServiceClient) AbandonFocus(ctx context.Context, req *connect.Request[AbandonFocusRequest]) (*connect.Response[AbandonFocusResponse], error) {
	return c.abandonFocus.CallUnary(ctx, req)
}

func (c *FocusServiceClient) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *FocusServiceClient) SubscribeEvents(ctx context.Context, req *connect.Request[SubscribeEventsRequest]) (*connect.ServerStreamForClient[Event], error) {
	return c.subscribeEvents.CallServerStream(ctx, req)
}

// HostServiceClient calls the host service. Requests need the admin token header.
type HostServiceClient struct {
	acquire      *connect.Client[AcquireRequest, AcquireResponse]
	release      *connect.Client[ReleaseRequest, ReleaseResponse]
	listClients  *connect.Client[ListClientsRequest, ListClientsResponse]
	injectSignal *connect.Client[InjectSignalRequest, InjectSignalResponse]
}

// NewHostServiceClient creates a host service client for the server at baseURL.
func NewHostServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *HostServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &HostServiceClient{
		acquire:      connect.NewClient[AcquireRequest, AcquireResponse](httpClient, baseURL+HostServiceAcquireProcedure, opts...),
		release:      connect.NewClient[ReleaseRequest, ReleaseResponse](httpClient, baseURL+HostServiceReleaseProcedure, opts...),
		listClients:  connect.NewClient[ListClientsRequest, ListClientsResponse](httpClient, baseURL+HostServiceListClientsProcedure, opts...),
		injectSignal: connect.NewClient[InjectSignalRequest, InjectSignalResponse](httpClient, baseURL+HostServiceInjectSignalProcedure, opts...),
	}
}

func (c *HostServiceClient) Acquire(ctx context.Context, req *connect.Request[AcquireRequest]) (*connect.Response[AcquireResponse], error) {
	return c.acquire.CallUnary(ctx, req)
}

func (c *HostServiceClient) Release(ctx context.Context, req *connect.Request[ReleaseRequest]) (*connect.Response[ReleaseResponse], error) {
	return c.release.CallUnary(ctx, req)
}

func (c *HostServiceClient) ListClients(ctx context.Context, req *connect.Request[ListClientsRequest]) (*connect.Response[ListClientsResponse], error) {
	return c.listClients.CallUnary(ctx, req)
}

func (c *HostServiceClient) InjectSignal(ctx context.Context, req *connect.Request[InjectSignalRequest]) (*connect.Response[InjectSignalResponse], error) {
	return c.injectSignal.CallUnary(ctx, req)
}
