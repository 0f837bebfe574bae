package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServerEntry is one configured DHCP server as reported by Servers.
type ServerEntry struct {
	Family       string              `json:"family"`
	List         string              `json:"list"`
	ConnectPoint models.ConnectPoint `json:"connect_point"`
	ServerIP     net.IP              `json:"server_ip"`
	GatewayIP    net.IP              `json:"gateway_ip,omitempty"`
	RelayAgentIP net.IP              `json:"relay_agent_ip,omitempty"`
	ResolvedMAC  string              `json:"resolved_mac,omitempty"`
	ResolvedVLAN models.VLAN         `json:"resolved_vlan"`
}

type Client struct {
	conn grpc.ClientConnInterface
	own  *grpc.ClientConn
}

// Dial connects to the daemon at addr without transport security.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, own: conn}, nil
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	if c.own == nil {
		return nil
	}
	return c.own.Close()
}

func (c *Client) List(ctx context.Context) ([]*record.DhcpRecord, error) {
	var out []*record.DhcpRecord
	if err := c.fetch(ctx, MethodList, &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id models.HostID) (*record.DhcpRecord, error) {
	var out record.DhcpRecord
	if err := c.fetch(ctx, MethodGet, wrapperspb.String(id.String()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Counters(ctx context.Context) (map[string]uint64, error) {
	out := make(map[string]uint64)
	if err := c.fetch(ctx, MethodCounters, &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResetCounters(ctx context.Context) error {
	return c.conn.Invoke(ctx, MethodResetCounters, &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *Client) Servers(ctx context.Context) ([]ServerEntry, error) {
	var out []ServerEntry
	if err := c.fetch(ctx, MethodServers, &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, method string, in any, v any) error {
	resp := &wrapperspb.BytesValue{}
	if err := c.conn.Invoke(ctx, method, in, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.GetValue(), v); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
