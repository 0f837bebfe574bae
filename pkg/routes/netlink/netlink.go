// Package netlink programs relay routes into a Linux routing table.
package netlink

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
	"inet.af/netaddr"
)

type Config struct {
	Netns string
	Table int
}

// Store installs routes with RTPROT_DHCP so they are distinguishable from
// statically configured ones.
type Store struct {
	*routes.Memory

	handle *netlink.Handle
	table  int
	logger *slog.Logger
}

var _ routes.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	log := logger.Get(logger.Routes)

	var (
		h   *netlink.Handle
		err error
	)
	if cfg.Netns != "" {
		nsHandle, nsErr := netns.GetFromName(cfg.Netns)
		if nsErr != nil {
			return nil, fmt.Errorf("get netns %q: %w", cfg.Netns, nsErr)
		}
		h, err = netlink.NewHandleAt(nsHandle)
		nsHandle.Close()
		if err != nil {
			return nil, fmt.Errorf("create netlink handle for netns %q: %w", cfg.Netns, err)
		}
		log.Info("Route namespace configured", "netns", cfg.Netns)
	} else {
		h, err = netlink.NewHandle()
		if err != nil {
			return nil, fmt.Errorf("create netlink handle: %w", err)
		}
	}

	return &Store{
		Memory: routes.NewMemory(),
		handle: h,
		table:  cfg.Table,
		logger: log,
	}, nil
}

func (s *Store) route(prefix netaddr.IPPrefix, nextHop net.IP) *netlink.Route {
	return &netlink.Route{
		Dst:      prefix.Masked().IPNet(),
		Gw:       nextHop,
		Table:    s.table,
		Protocol: netlink.RouteProtocol(unix.RTPROT_DHCP),
	}
}

func (s *Store) UpdateRoute(prefix netaddr.IPPrefix, nextHop net.IP) error {
	if err := s.handle.RouteReplace(s.route(prefix, nextHop)); err != nil {
		return fmt.Errorf("replace route %s via %s: %w", prefix, nextHop, err)
	}
	s.logger.Debug("Installed route", "prefix", prefix.String(), "next_hop", nextHop.String())
	return s.Memory.UpdateRoute(prefix, nextHop)
}

func (s *Store) RemoveRoute(prefix netaddr.IPPrefix, nextHop net.IP) error {
	err := s.handle.RouteDel(s.route(prefix, nextHop))
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("delete route %s via %s: %w", prefix, nextHop, err)
	}
	s.logger.Debug("Removed route", "prefix", prefix.String(), "next_hop", nextHop.String())
	return s.Memory.RemoveRoute(prefix, nextHop)
}

func (s *Store) Close() {
	s.handle.Close()
}
