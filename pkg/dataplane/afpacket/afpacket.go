// Package afpacket is a Linux AF_PACKET PacketIO with one socket per
// relay port.
package afpacket

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
	"unsafe"

	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const (
	defaultRecvBuffer = 1 << 20
	readTimeout       = 100 * time.Millisecond
	snapLen           = 65536
)

type Config struct {
	Device     string
	Ports      []string
	RecvBuffer int
	QueueLen   int
}

type port struct {
	cp      models.ConnectPoint
	ifindex int
	fd      int
}

type IO struct {
	ports  map[models.ConnectPoint]*port
	frames chan dataplane.Frame
	logger *slog.Logger

	closeOnce sync.Once
}

var _ dataplane.PacketIO = (*IO)(nil)

func New(cfg Config) (*IO, error) {
	queue := cfg.QueueLen
	if queue == 0 {
		queue = 1024
	}
	recvBuf := cfg.RecvBuffer
	if recvBuf == 0 {
		recvBuf = defaultRecvBuffer
	}

	io := &IO{
		ports:  make(map[models.ConnectPoint]*port, len(cfg.Ports)),
		frames: make(chan dataplane.Frame, queue),
		logger: logger.Get(logger.Dataplane),
	}

	for _, name := range cfg.Ports {
		p, err := openPort(cfg.Device, name, recvBuf)
		if err != nil {
			io.Close()
			return nil, err
		}
		io.ports[p.cp] = p
		io.logger.Info("Opened port", "port", p.cp.String(), "ifindex", p.ifindex)
	}
	return io, nil
}

func openPort(device, name string, recvBuf int) (*port, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", name, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("open packet socket on %s: %w", name, err)
	}

	setup := func() error {
		if err := unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: htons(unix.ETH_P_ALL), Ifindex: ifi.Index}); err != nil {
			return fmt.Errorf("bind: %w", err)
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_AUXDATA, 1); err != nil {
			return fmt.Errorf("enable auxdata: %w", err)
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBuf); err != nil {
			return fmt.Errorf("set receive buffer: %w", err)
		}
		tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return fmt.Errorf("set receive timeout: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("configure packet socket on %s: %w", name, err)
	}

	return &port{
		cp:      models.ConnectPoint{Device: device, Port: name},
		ifindex: ifi.Index,
		fd:      fd,
	}, nil
}

func (io *IO) Frames() <-chan dataplane.Frame { return io.frames }

// Run reads every port on its own goroutine. A read error on one port
// stops all of them.
func (io *IO) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range io.ports {
		p := p
		g.Go(func() error { return io.read(ctx, p) })
	}
	return g.Wait()
}

func (io *IO) read(ctx context.Context, p *port) error {
	buf := make([]byte, snapLen)
	oob := make([]byte, unix.CmsgSpace(int(unsafe.Sizeof(unix.TpacketAuxdata{}))))

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, oobn, _, from, err := unix.Recvmsg(p.fd, buf, oob, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EBADF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", p.cp, err)
		}
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
			continue
		}

		data := withVLAN(buf[:n], oob[:oobn])
		select {
		case io.frames <- dataplane.Frame{Port: p.cp, Data: data}:
		case <-ctx.Done():
			return nil
		default:
			io.logger.Warn("Receive queue full, dropping frame", "port", p.cp.String())
		}
	}
}

// withVLAN copies the frame and restores the 802.1Q tag the kernel moved
// into auxdata.
func withVLAN(frame, oob []byte) []byte {
	var tci uint16
	tagged := false

	if cmsgs, err := unix.ParseSocketControlMessage(oob); err == nil {
		for _, m := range cmsgs {
			if m.Header.Level != unix.SOL_PACKET || m.Header.Type != unix.PACKET_AUXDATA {
				continue
			}
			if len(m.Data) < int(unsafe.Sizeof(unix.TpacketAuxdata{})) {
				continue
			}
			aux := (*unix.TpacketAuxdata)(unsafe.Pointer(&m.Data[0]))
			if aux.Status&unix.TP_STATUS_VLAN_VALID != 0 {
				tci = aux.Vlan_tci
				tagged = true
			}
		}
	}

	if !tagged || len(frame) < 14 {
		return append([]byte(nil), frame...)
	}

	out := make([]byte, 0, len(frame)+4)
	out = append(out, frame[:12]...)
	out = binary.BigEndian.AppendUint16(out, uint16(unix.ETH_P_8021Q))
	out = binary.BigEndian.AppendUint16(out, tci)
	return append(out, frame[12:]...)
}

func (io *IO) Emit(f dataplane.Frame) error {
	p, ok := io.ports[f.Port]
	if !ok {
		return fmt.Errorf("emit on unknown port %s", f.Port)
	}
	if len(f.Data) < 14 {
		return fmt.Errorf("emit on %s: short frame", f.Port)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(binary.BigEndian.Uint16(f.Data[12:14])),
		Ifindex:  p.ifindex,
		Halen:    6,
	}
	copy(addr.Addr[:], f.Data[0:6])

	if err := unix.Sendto(p.fd, f.Data, 0, addr); err != nil {
		return fmt.Errorf("emit on %s: %w", f.Port, err)
	}
	return nil
}

func (io *IO) Close() error {
	io.closeOnce.Do(func() {
		for _, p := range io.ports {
			unix.Close(p.fd)
		}
	})
	return nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
