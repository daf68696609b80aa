package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/focusbox/internal/app/bridge"
	"github.com/osa030/focusbox/internal/domain/focus"
	"github.com/osa030/focusbox/internal/infra/hostaudio"
)

// HostService implements the HostService RPC. It drives the simulated host
// and is only reachable with the admin token.
type HostService struct {
	bridge *bridge.Manager
}

// NewHostService creates a new HostService.
func NewHostService(b *bridge.Manager) *HostService {
	return &HostService{bridge: b}
}

// Ensure HostService implements the interface.
var _ HostServiceHandler = (*HostService)(nil)

// Acquire makes a simulated app request focus.
func (s *HostService) Acquire(
	ctx context.Context,
	req *connect.Request[AcquireRequest],
) (*connect.Response[AcquireResponse], error) {
	if req.Msg.App == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("app is required"))
	}
	gain, err := focus.ParseGainKind(req.Msg.Gain)
	if err != nil {
		return nil, toConnectError(err)
	}
	usage, err := focus.ParseUsage(req.Msg.Usage)
	if err != nil {
		return nil, toConnectError(err)
	}

	info, err := s.bridge.Acquire(req.Msg.App, gain, usage)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AcquireResponse{Client: toClientInfo(info)}), nil
}

// Release abandons the focus held by a simulated app.
func (s *HostService) Release(
	ctx context.Context,
	req *connect.Request[ReleaseRequest],
) (*connect.Response[ReleaseResponse], error) {
	if err := s.bridge.Release(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ReleaseResponse{}), nil
}

// ListClients returns the simulated apps.
func (s *HostService) ListClients(
	ctx context.Context,
	req *connect.Request[ListClientsRequest],
) (*connect.Response[ListClientsResponse], error) {
	clients := s.bridge.Clients()
	resp := &ListClientsResponse{Clients: make([]ClientInfo, 0, len(clients))}
	for _, c := range clients {
		resp.Clients = append(resp.Clients, toClientInfo(c))
	}
	return connect.NewResponse(resp), nil
}

// InjectSignal delivers a focus signal to the bridge as if the host had raised it.
func (s *HostService) InjectSignal(
	ctx context.Context,
	req *connect.Request[InjectSignalRequest],
) (*connect.Response[InjectSignalResponse], error) {
	signal, err := focus.ParseSignal(req.Msg.Signal)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.bridge.InjectSignal(signal); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&InjectSignalResponse{}), nil
}

// toConnectError maps domain errors to connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, focus.ErrUnknownName):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, hostaudio.ErrUnknownClient):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, bridge.ErrNotRunning):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
