package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/veesix-networks/dhcprelay/internal/relay"
	"github.com/veesix-networks/dhcprelay/pkg/api"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Relay is the lookup surface the gateway serves.
type Relay interface {
	Records() []*record.DhcpRecord
	Record(id models.HostID) (*record.DhcpRecord, error)
	Counters() map[string]uint64
	ResetCounters()
	Servers() []relay.ServerStatus
}

type Component struct {
	*component.Base

	logger   *slog.Logger
	server   *grpc.Server
	relay    Relay
	bindAddr string
	listener net.Listener
}

func New(relay Relay, bindAddr string) *Component {
	return &Component{
		Base:     component.NewBase("gateway"),
		logger:   logger.Get(logger.Gateway),
		relay:    relay,
		bindAddr: bindAddr,
	}
}

// WithListener serves on lis instead of listening on the bind address.
func (c *Component) WithListener(lis net.Listener) *Component {
	c.listener = lis
	return c
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting gateway component", "addr", c.bindAddr)

	lis := c.listener
	if lis == nil {
		var err error
		if lis, err = net.Listen("tcp", c.bindAddr); err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
	}

	c.server = grpc.NewServer()
	api.RegisterRecordsServer(c.server, &service{relay: c.relay})

	c.Go(func() {
		if err := c.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			c.logger.Error("Gateway server error", "error", err)
		}
	})

	c.logger.Info("Gateway started", "addr", lis.Addr().String())
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping gateway component")

	if c.server != nil {
		c.server.GracefulStop()
	}

	c.StopContext()
	return nil
}

type service struct {
	relay Relay
}

func (s *service) List(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return encode(s.relay.Records())
}

func (s *service) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	id, err := models.ParseHostID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := s.relay.Record(id)
	if errors.Is(err, record.ErrNotFound) {
		return nil, status.Errorf(codes.NotFound, "no record for %s", id)
	}
	if err != nil {
		return nil, err
	}
	return encode(rec)
}

func (s *service) Counters(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return encode(s.relay.Counters())
}

func (s *service) ResetCounters(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.relay.ResetCounters()
	return &emptypb.Empty{}, nil
}

func (s *service) Servers(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	var out []api.ServerEntry
	for _, st := range s.relay.Servers() {
		for _, srv := range st.Servers {
			entry := api.ServerEntry{
				Family:       st.Family,
				List:         st.List.String(),
				ConnectPoint: srv.ConnectPoint,
				ServerIP:     srv.ServerIP,
				GatewayIP:    srv.GatewayIP,
				RelayAgentIP: srv.RelayAgentIP,
				ResolvedVLAN: srv.ResolvedVLAN,
			}
			if srv.Resolved() {
				entry.ResolvedMAC = srv.ResolvedMAC.String()
			}
			out = append(out, entry)
		}
	}
	return encode(out)
}

func encode(v any) (*wrapperspb.BytesValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return wrapperspb.Bytes(data), nil
}
