package relay

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/config"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/events/local"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/ifmgr"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/record/memory"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
	"inet.af/netaddr"
)

const relayConfig = `
relay:
  device_id: leaf1
  ignore_vlans:
    - connect_point: leaf1/eth1
      vlan: 999
dhcpv4:
  default:
    - connect_point: leaf1/eth9
      server_ip: 192.168.100.2
dhcpv6:
  default:
    - connect_point: leaf1/eth9
      server_ip: 2001:db8:100::2
interfaces:
  eth1:
    mac: 02:00:00:00:01:01
    vlan-id: 10
    address:
      ipv4: [10.0.0.1/24]
      ipv6: [2001:db8:1::1/64, fe80::1/64]
  eth9:
    mac: 02:00:00:00:09:09
    address:
      ipv4: [192.168.100.254/24]
      ipv6: [2001:db8:100::254/64]
`

var (
	clientCP   = models.ConnectPoint{Device: "leaf1", Port: "eth1"}
	serverCP   = models.ConnectPoint{Device: "leaf1", Port: "eth9"}
	clientMAC  = mustMAC("00:11:22:33:44:55")
	relayMAC   = mustMAC("02:00:00:00:01:01")
	uplinkMAC  = mustMAC("02:00:00:00:09:09")
	serverMAC  = mustMAC("02:00:00:00:00:aa")
	downMAC    = mustMAC("02:00:00:00:0d:0d")
	clientLL   = net.ParseIP("fe80::211:22ff:fe33:4455")
	serverIPv4 = net.ParseIP("192.168.100.2").To4()
	serverIPv6 = net.ParseIP("2001:db8:100::2")
	fixedNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func mustMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

type harness struct {
	relay   *Component
	pipe    *dataplane.Pipe
	hosts   *hosts.Store
	routes  *routes.Memory
	records *memory.Store
}

func newHarness(t *testing.T, bus events.Bus, seedServers bool) *harness {
	t.Helper()

	cfg, err := config.Parse([]byte(relayConfig))
	require.NoError(t, err)
	// A one hour lease seen 4000s ago is past its grace at this period.
	cfg.Relay.PollInterval = 10 * time.Minute
	cfg.Relay.Workers = 2

	h := &harness{
		pipe:    dataplane.NewPipe(16),
		hosts:   hosts.New(bus),
		routes:  routes.NewMemory(),
		records: memory.New(),
	}
	t.Cleanup(func() { h.pipe.Close() })

	if seedServers {
		h.seedServer()
	}

	c, err := NewComponent(component.Dependencies{
		EventBus:   bus,
		Config:     cfg,
		Interfaces: ifmgr.New(),
		Hosts:      h.hosts,
		Routes:     h.routes,
		Records:    h.records,
		Counters:   counters.New(),
		PacketIO:   h.pipe,
		DHCPChan:   h.pipe.Frames(),
		Egress:     h.pipe,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	h.relay = c
	return h
}

func (h *harness) seedServer() {
	id := models.NewHostID(serverMAC, models.VLANNone)
	h.hosts.Learn(hosts.ProviderStatic, id, serverIPv4, serverCP)
	h.hosts.Learn(hosts.ProviderStatic, id, serverIPv6, serverCP)
}

func (h *harness) handle(t *testing.T, port models.ConnectPoint, fr *dhcp.Frame) {
	t.Helper()
	data, err := fr.Encode()
	require.NoError(t, err)
	h.relay.HandleFrame(dataplane.Frame{Port: port, Data: data})
}

func (h *harness) emitted(t *testing.T) (models.ConnectPoint, *dhcp.Frame) {
	t.Helper()
	select {
	case f := <-h.pipe.Emitted():
		fr, err := dhcp.DecodeFrame(f.Data)
		require.NoError(t, err)
		return f.Port, fr
	case <-time.After(2 * time.Second):
		t.Fatal("no frame emitted")
		return models.ConnectPoint{}, nil
	}
}

func (h *harness) nothingEmitted(t *testing.T) {
	t.Helper()
	select {
	case f := <-h.pipe.Emitted():
		t.Fatalf("unexpected frame on %v", f.Port)
	default:
	}
}

func dhcp4Frame(t *testing.T, msg *layers.DHCPv4, vlan models.VLAN) *dhcp.Frame {
	t.Helper()
	payload, err := dhcp.EncodeDHCPv4(msg)
	require.NoError(t, err)
	return &dhcp.Frame{
		SrcMAC:  msg.ClientHWAddr,
		DstMAC:  mustMAC("ff:ff:ff:ff:ff:ff"),
		VLAN:    vlan,
		SrcIP:   net.IPv4zero.To4(),
		DstIP:   net.IPv4bcast.To4(),
		SrcPort: 68,
		DstPort: 67,
		Payload: payload,
	}
}

func message4(mac net.HardwareAddr, t layers.DHCPMsgType) *layers.DHCPv4 {
	op := layers.DHCPOpRequest
	if t == layers.DHCPMsgTypeOffer || t == layers.DHCPMsgTypeAck || t == layers.DHCPMsgTypeNak {
		op = layers.DHCPOpReply
	}
	return &layers.DHCPv4{
		Operation:    op,
		HardwareType: layers.LinkTypeEthernet,
		HardwareLen:  6,
		Xid:          0x1234,
		ClientHWAddr: mac,
		Options: layers.DHCPOptions{
			layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(t)}),
		},
	}
}

// serverReply4 turns a relayed request into the server's answer, keeping
// giaddr and option 82 as a server would.
func serverReply4(t *testing.T, relayed []byte, mt layers.DHCPMsgType, yiaddr string) *dhcp.Frame {
	t.Helper()
	msg, err := dhcp.DecodeDHCPv4(relayed)
	require.NoError(t, err)
	msg.Operation = layers.DHCPOpReply
	msg.YourClientIP = net.ParseIP(yiaddr).To4()
	msg.Options = append(dhcp.WithoutOption4(msg.Options, layers.DHCPOptMessageType),
		layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(mt)}))
	payload, err := dhcp.EncodeDHCPv4(msg)
	require.NoError(t, err)
	return &dhcp.Frame{
		SrcMAC:  serverMAC,
		DstMAC:  uplinkMAC,
		SrcIP:   serverIPv4,
		DstIP:   net.ParseIP("192.168.100.254").To4(),
		SrcPort: 67,
		DstPort: 67,
		Payload: payload,
	}
}

func TestDiscoverOfferAckDirectClient(t *testing.T) {
	h := newHarness(t, nil, true)

	discover := message4(clientMAC, layers.DHCPMsgTypeDiscover)
	discover.Flags = dhcp.FlagBroadcast
	h.handle(t, clientCP, dhcp4Frame(t, discover, 10))

	port, fr := h.emitted(t)
	require.Equal(t, serverCP, port)
	require.Equal(t, serverMAC.String(), fr.DstMAC.String())
	require.Equal(t, uplinkMAC.String(), fr.SrcMAC.String())
	require.Equal(t, "192.168.100.2", fr.DstIP.String())
	require.Equal(t, uint16(67), fr.SrcPort)
	require.Equal(t, uint16(67), fr.DstPort)

	relayed, err := dhcp.DecodeDHCPv4(fr.Payload)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", relayed.RelayAgentIP.String())
	info, present, err := dhcp.AgentInfo4(relayed.Options)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "leaf1/eth1:10", string(info.CircuitID()))

	id := models.NewHostID(clientMAC, 10)
	rec, ok := h.records.Get(id)
	require.True(t, ok)
	require.Equal(t, dhcp.Discover, rec.IP4Status)
	require.True(t, rec.DirectlyConnected)
	loc, ok := rec.LatestLocation()
	require.True(t, ok)
	require.Equal(t, clientCP, loc.ConnectPoint)

	h.handle(t, serverCP, serverReply4(t, fr.Payload, layers.DHCPMsgTypeOffer, "10.0.0.50"))
	port, out := h.emitted(t)
	require.Equal(t, clientCP, port)
	require.Equal(t, models.VLAN(10), out.VLAN)
	require.Equal(t, clientMAC.String(), out.DstMAC.String())
	require.Equal(t, relayMAC.String(), out.SrcMAC.String())
	require.Equal(t, "10.0.0.50", out.DstIP.String())
	require.Equal(t, uint16(68), out.DstPort)

	offer, err := dhcp.DecodeDHCPv4(out.Payload)
	require.NoError(t, err)
	require.False(t, dhcp.HasOption4(offer.Options, dhcp.OptionAgentInfo))
	require.True(t, offer.RelayAgentIP.IsUnspecified())

	h.handle(t, serverCP, serverReply4(t, fr.Payload, layers.DHCPMsgTypeAck, "10.0.0.50"))
	h.emitted(t)

	rec, ok = h.records.Get(id)
	require.True(t, ok)
	require.Equal(t, dhcp.Ack, rec.IP4Status)
	require.Equal(t, "10.0.0.50", rec.IP4Address.String())

	host, ok := h.hosts.Host(id)
	require.True(t, ok)
	require.True(t, host.HasIP(net.ParseIP("10.0.0.50")))
	require.Equal(t, clientCP, host.Location.ConnectPoint)
	require.Empty(t, h.routes.Routes())

	snap := h.relay.Counters()
	require.Equal(t, uint64(1), snap[dhcp.Discover.String()])
	require.Equal(t, uint64(1), snap[dhcp.Offer.String()])
	require.Equal(t, uint64(1), snap[dhcp.Ack.String()])
}

func TestIndirectAckInstallsRoute(t *testing.T) {
	h := newHarness(t, nil, true)

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.DirectlyConnected = false
	rec.NextHop = downMAC
	rec.AddLocation(clientCP, fixedNow)
	h.records.Put(id, rec)
	h.hosts.Learn(hosts.ProviderARP, models.NewHostID(downMAC, 10), net.ParseIP("10.0.0.2"), clientCP)

	ack := message4(clientMAC, layers.DHCPMsgTypeAck)
	ack.RelayAgentIP = net.ParseIP("10.0.0.1").To4()
	ack.YourClientIP = net.ParseIP("10.20.0.7").To4()
	payload, err := dhcp.EncodeDHCPv4(ack)
	require.NoError(t, err)
	h.handle(t, serverCP, &dhcp.Frame{
		SrcMAC: serverMAC, DstMAC: uplinkMAC,
		SrcIP: serverIPv4, DstIP: net.ParseIP("192.168.100.254").To4(),
		SrcPort: 67, DstPort: 67, Payload: payload,
	})

	port, out := h.emitted(t)
	require.Equal(t, clientCP, port)
	require.Equal(t, downMAC.String(), out.DstMAC.String())
	require.Equal(t, uint16(67), out.DstPort)

	got := h.routes.Routes()
	require.Len(t, got, 1)
	require.Equal(t, "10.20.0.7/32", got[0].Prefix.String())
	require.Equal(t, "10.0.0.2", got[0].NextHop.String())

	_, bound := h.hosts.Host(id)
	require.False(t, bound)

	rec, _ = h.records.Get(id)
	require.Equal(t, "10.20.0.7", rec.IP4Address.String())
	require.False(t, rec.DirectlyConnected)
}

func TestServerReplyFromUnknownPort(t *testing.T) {
	h := newHarness(t, nil, true)

	offer := message4(clientMAC, layers.DHCPMsgTypeOffer)
	h.handle(t, models.ConnectPoint{Device: "leaf1", Port: "eth5"}, dhcp4Frame(t, offer, models.VLANNone))

	h.nothingEmitted(t)
	require.Equal(t, uint64(1), h.relay.Counters()[counters.NoServerInfo])
}

func TestIgnoredVLANIsDropped(t *testing.T) {
	h := newHarness(t, nil, true)

	h.handle(t, clientCP, dhcp4Frame(t, message4(clientMAC, layers.DHCPMsgTypeDiscover), 999))

	h.nothingEmitted(t)
	require.Equal(t, uint64(1), h.relay.Counters()[counters.IgnoredVLAN])
	require.Empty(t, h.relay.Records())
}

func TestUnresolvedServerIsCounted(t *testing.T) {
	h := newHarness(t, nil, false)

	h.handle(t, clientCP, dhcp4Frame(t, message4(clientMAC, layers.DHCPMsgTypeDiscover), 10))

	h.nothingEmitted(t)
	require.Equal(t, uint64(1), h.relay.Counters()[counters.UnresolvedServer])
}

func duidLL(mac net.HardwareAddr) []byte {
	return (&dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: mac}).ToBytes()
}

func subOption(code uint16, data []byte) []byte {
	out := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint16(out[0:], code)
	binary.BigEndian.PutUint16(out[2:], uint16(len(data)))
	return append(out, data...)
}

func iaNA(ip string, preferred, valid uint32) dhcp.Option6 {
	addr := make([]byte, 24)
	copy(addr, net.ParseIP(ip).To16())
	binary.BigEndian.PutUint32(addr[16:], preferred)
	binary.BigEndian.PutUint32(addr[20:], valid)
	return dhcp.Option6{Code: dhcp.OptIANA, Data: append(make([]byte, 12), subOption(dhcp.OptIAAddr, addr)...)}
}

func iaPD(prefix string, preferred, valid uint32) dhcp.Option6 {
	_, n, _ := net.ParseCIDR(prefix)
	bits, _ := n.Mask.Size()
	p := make([]byte, 25)
	binary.BigEndian.PutUint32(p[0:], preferred)
	binary.BigEndian.PutUint32(p[4:], valid)
	p[8] = byte(bits)
	copy(p[9:], n.IP.To16())
	return dhcp.Option6{Code: dhcp.OptIAPD, Data: append(make([]byte, 12), subOption(dhcp.OptIAPrefix, p)...)}
}

func dhcp6Frame(m dhcp.Message6) *dhcp.Frame {
	return &dhcp.Frame{
		SrcMAC:  clientMAC,
		DstMAC:  mustMAC("33:33:00:01:00:02"),
		VLAN:    10,
		SrcIP:   clientLL,
		DstIP:   net.ParseIP("ff02::1:2"),
		SrcPort: 546,
		DstPort: 547,
		Payload: m.Marshal(),
	}
}

func TestSolicitAndReplyDirectClient(t *testing.T) {
	h := newHarness(t, nil, true)

	h.handle(t, clientCP, dhcp6Frame(&dhcp.Leaf6{
		MsgType:       dhcp.Solicit,
		TransactionID: [3]byte{1, 2, 3},
		Options:       dhcp.Options6{{Code: dhcp.OptClientID, Data: duidLL(clientMAC)}},
	}))

	port, fr := h.emitted(t)
	require.Equal(t, serverCP, port)
	require.Equal(t, serverMAC.String(), fr.DstMAC.String())
	require.Equal(t, serverIPv6.String(), fr.DstIP.String())

	msg, err := dhcp.ParseMessage6(fr.Payload)
	require.NoError(t, err)
	forw, ok := msg.(*dhcp.Relay6)
	require.True(t, ok)
	require.Equal(t, dhcp.RelayForw, forw.MsgType)
	require.Zero(t, forw.HopCount)
	require.Equal(t, "2001:db8:1::1", forw.LinkAddr.String())
	require.Equal(t, clientLL.String(), forw.PeerAddr.String())

	id := models.NewHostID(clientMAC, 10)
	rec, ok := h.records.Get(id)
	require.True(t, ok)
	require.Equal(t, dhcp.Solicit, rec.IP6Status)

	reply := &dhcp.Leaf6{
		MsgType:       dhcp.Reply,
		TransactionID: [3]byte{1, 2, 3},
		Options: dhcp.Options6{
			{Code: dhcp.OptClientID, Data: duidLL(clientMAC)},
			iaNA("2001:db8:1::50", 3600, 7200),
			iaPD("2001:db8:200::/56", 1800, 3600),
		},
	}
	repl := &dhcp.Relay6{
		MsgType:  dhcp.RelayRepl,
		LinkAddr: forw.LinkAddr,
		PeerAddr: forw.PeerAddr,
		Options: dhcp.Options6{
			{Code: dhcp.OptRelayMsg, Data: reply.Marshal()},
			{Code: dhcp.OptInterfaceID, Data: forw.InterfaceID()},
		},
	}
	h.handle(t, serverCP, &dhcp.Frame{
		SrcMAC: serverMAC, DstMAC: uplinkMAC,
		SrcIP: serverIPv6, DstIP: net.ParseIP("2001:db8:100::254"),
		SrcPort: 547, DstPort: 547, Payload: repl.Marshal(),
	})

	port, out := h.emitted(t)
	require.Equal(t, clientCP, port)
	require.Equal(t, models.VLAN(10), out.VLAN)
	require.Equal(t, clientMAC.String(), out.DstMAC.String())
	require.Equal(t, clientLL.String(), out.DstIP.String())
	require.Equal(t, uint16(546), out.DstPort)

	inner, err := dhcp.ParseMessage6(out.Payload)
	require.NoError(t, err)
	require.Equal(t, dhcp.Reply, inner.Type())

	rec, ok = h.records.Get(id)
	require.True(t, ok)
	require.Equal(t, dhcp.Reply, rec.IP6Status)
	require.Equal(t, "2001:db8:1::50", rec.IP6Address.String())
	require.Equal(t, time.Hour, rec.AddrPreferredLifetime)
	require.Equal(t, fixedNow, rec.LastIP6AddrUpdate)
	require.Equal(t, "2001:db8:200::/56", rec.PDPrefix.String())

	host, ok := h.hosts.Host(id)
	require.True(t, ok)
	require.True(t, host.HasIP(net.ParseIP("2001:db8:1::50")))

	got := h.routes.Routes()
	require.Len(t, got, 1)
	require.Equal(t, "2001:db8:200::/56", got[0].Prefix.String())
	require.Equal(t, clientLL.String(), got[0].NextHop.String())
}

func TestSolicitWithoutClientID(t *testing.T) {
	h := newHarness(t, nil, true)

	h.handle(t, clientCP, dhcp6Frame(&dhcp.Leaf6{MsgType: dhcp.Solicit, TransactionID: [3]byte{9, 9, 9}}))

	h.nothingEmitted(t)
	require.Equal(t, uint64(1), h.relay.Counters()[counters.NoClientIDFail])
	require.Empty(t, h.relay.Records())
}

func TestReleaseRemovesBinding(t *testing.T) {
	h := newHarness(t, nil, true)

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.IP6Address = net.ParseIP("2001:db8:1::50")
	rec.IP6Status = dhcp.Reply
	h.records.Put(id, rec)
	h.hosts.CreateOrUpdateHost(hosts.ProviderDHCPRelay, id, hosts.Description{
		Location: models.HostLocation{ConnectPoint: clientCP, Time: fixedNow},
		IPs:      []net.IP{net.ParseIP("2001:db8:1::50")},
	})

	h.handle(t, clientCP, dhcp6Frame(&dhcp.Leaf6{
		MsgType:       dhcp.Release6,
		TransactionID: [3]byte{4, 5, 6},
		Options: dhcp.Options6{
			{Code: dhcp.OptClientID, Data: duidLL(clientMAC)},
			iaNA("2001:db8:1::50", 0, 0),
		},
	}))
	h.emitted(t)

	host, ok := h.hosts.Host(id)
	if ok {
		require.False(t, host.HasIP(net.ParseIP("2001:db8:1::50")))
	}
	_, ok = h.records.Get(id)
	require.False(t, ok)
}

func TestSweepExpiresLeases(t *testing.T) {
	h := newHarness(t, nil, true)
	elapsed := 4000 * time.Second

	partial := models.NewHostID(clientMAC, 10)
	rec := record.New(partial)
	rec.IP6Status = dhcp.Reply
	rec.IP6Address = net.ParseIP("2001:db8:1::50")
	rec.AddrPreferredLifetime = time.Hour
	rec.LastIP6AddrUpdate = fixedNow.Add(-elapsed)
	rec.PDPrefix = netaddr.MustParseIPPrefix("2001:db8:200::/56")
	rec.PDPreferredLifetime = 2 * time.Hour
	rec.LastIP6PDUpdate = fixedNow.Add(-elapsed)
	h.records.Put(partial, rec)

	gone := models.NewHostID(mustMAC("00:11:22:33:44:66"), 10)
	rec = record.New(gone)
	rec.IP6Status = dhcp.Reply
	rec.IP6Address = net.ParseIP("2001:db8:1::51")
	rec.AddrPreferredLifetime = time.Hour
	rec.LastIP6AddrUpdate = fixedNow.Add(-elapsed)
	h.records.Put(gone, rec)

	dual := models.NewHostID(mustMAC("00:11:22:33:44:77"), 10)
	rec = record.New(dual)
	rec.IP4Address = net.ParseIP("10.0.0.77").To4()
	rec.IP4Status = dhcp.Ack
	rec.IP6Status = dhcp.Reply
	rec.IP6Address = net.ParseIP("2001:db8:1::52")
	rec.AddrPreferredLifetime = time.Hour
	rec.LastIP6AddrUpdate = fixedNow.Add(-elapsed)
	h.records.Put(dual, rec)

	require.Equal(t, 3, h.relay.Sweep(fixedNow))

	rec, ok := h.records.Get(partial)
	require.True(t, ok)
	require.False(t, rec.HasIP6Address())
	require.Equal(t, "2001:db8:200::/56", rec.PDPrefix.String())

	_, ok = h.records.Get(gone)
	require.False(t, ok)

	rec, ok = h.records.Get(dual)
	require.True(t, ok)
	require.Equal(t, dhcp.Unsupported6, rec.IP6Status)
	require.Equal(t, "10.0.0.77", rec.IP4Address.String())

	require.Zero(t, h.relay.Sweep(fixedNow))
}

func TestSweepKeepsLeaseWithinGrace(t *testing.T) {
	h := newHarness(t, nil, true)

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.IP6Status = dhcp.Reply
	rec.IP6Address = net.ParseIP("2001:db8:1::50")
	rec.AddrPreferredLifetime = time.Hour
	rec.LastIP6AddrUpdate = fixedNow.Add(-(time.Hour + 4*time.Minute))
	h.records.Put(id, rec)

	require.Zero(t, h.relay.Sweep(fixedNow))
	rec, _ = h.records.Get(id)
	require.True(t, rec.HasIP6Address())
}

func TestSweepKeepsLeaselessRecord(t *testing.T) {
	h := newHarness(t, nil, true)

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.IP6Status = dhcp.Solicit
	rec.DirectlyConnected = false
	rec.NextHop = downMAC
	rec.AddLocation(clientCP, fixedNow)
	h.records.Put(id, rec)

	dual := models.NewHostID(mustMAC("00:11:22:33:44:77"), 10)
	rec = record.New(dual)
	rec.IP4Address = net.ParseIP("10.0.0.77").To4()
	rec.IP4Status = dhcp.Ack
	rec.IP6Status = dhcp.Solicit
	h.records.Put(dual, rec)

	require.Zero(t, h.relay.Sweep(fixedNow))

	rec, ok := h.records.Get(id)
	require.True(t, ok)
	require.Equal(t, dhcp.Solicit, rec.IP6Status)
	require.Equal(t, downMAC.String(), rec.NextHop.String())

	rec, ok = h.records.Get(dual)
	require.True(t, ok)
	require.Equal(t, dhcp.Solicit, rec.IP6Status)
}

func TestSweepKeepsRouteWhenGatewayUnknown(t *testing.T) {
	h := newHarness(t, nil, true)
	elapsed := 4000 * time.Second
	gw := net.ParseIP("fe80::d")

	addrRoute := netaddr.MustParseIPPrefix("2001:db8:1::60/128")
	pdRoute := netaddr.MustParseIPPrefix("2001:db8:300::/56")
	require.NoError(t, h.routes.UpdateRoute(addrRoute, gw))
	require.NoError(t, h.routes.UpdateRoute(pdRoute, gw))

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.IP6Status = dhcp.Reply
	rec.DirectlyConnected = false
	rec.NextHop = downMAC
	rec.IP6Address = net.ParseIP("2001:db8:1::60")
	rec.AddrPreferredLifetime = time.Hour
	rec.LastIP6AddrUpdate = fixedNow.Add(-elapsed)
	rec.PDPrefix = pdRoute
	rec.PDPreferredLifetime = time.Hour
	rec.LastIP6PDUpdate = fixedNow.Add(-elapsed)
	h.records.Put(id, rec)

	require.Equal(t, 1, h.relay.Sweep(fixedNow))
	require.Len(t, h.routes.Routes(), 2)
	_, ok := h.records.Get(id)
	require.False(t, ok)
}

func TestUndecodableCircuitIDUsesStoredLocation(t *testing.T) {
	h := newHarness(t, nil, true)

	id := models.NewHostID(clientMAC, 10)
	rec := record.New(id)
	rec.DirectlyConnected = true
	rec.AddLocation(clientCP, fixedNow)
	h.records.Put(id, rec)

	info, err := (&dhcp.AgentInfo{SubOptions: []dhcp.SubOption{
		{Code: dhcp.SubOptCircuitID, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
	}}).Marshal()
	require.NoError(t, err)

	offer := message4(clientMAC, layers.DHCPMsgTypeOffer)
	offer.RelayAgentIP = net.ParseIP("10.0.0.1").To4()
	offer.YourClientIP = net.ParseIP("10.0.0.50").To4()
	offer.Options = append(offer.Options, layers.NewDHCPOption(dhcp.OptionAgentInfo, info))
	payload, err := dhcp.EncodeDHCPv4(offer)
	require.NoError(t, err)
	h.handle(t, serverCP, &dhcp.Frame{
		SrcMAC: serverMAC, DstMAC: uplinkMAC,
		SrcIP: serverIPv4, DstIP: net.ParseIP("192.168.100.254").To4(),
		SrcPort: 67, DstPort: 67, Payload: payload,
	})

	port, out := h.emitted(t)
	require.Equal(t, clientCP, port)
	require.Equal(t, models.VLAN(10), out.VLAN)
	require.Equal(t, clientMAC.String(), out.DstMAC.String())
	require.Equal(t, map[string]uint64{dhcp.Offer.String(): 1}, h.relay.Counters())
}

func TestStartedRelayProcessesFrames(t *testing.T) {
	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	h := newHarness(t, bus, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.relay.Start(ctx))
	t.Cleanup(func() { h.relay.Stop(context.Background()) })

	h.seedServer()
	require.Eventually(t, func() bool {
		for _, st := range h.relay.Servers() {
			if st.Family == "dhcpv4" && len(st.Servers) > 0 && st.Servers[0].Resolved() {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	data, err := dhcp4Frame(t, message4(clientMAC, layers.DHCPMsgTypeDiscover), 10).Encode()
	require.NoError(t, err)
	h.pipe.Inject(dataplane.Frame{Port: clientCP, Data: data})

	port, _ := h.emitted(t)
	require.Equal(t, serverCP, port)
}
