package dataplane

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

func TestDispatchAndEmit(t *testing.T) {
	pipe := dataplane.NewPipe(8)
	comp, err := New(component.Dependencies{PacketIO: pipe})
	require.NoError(t, err)
	c := comp.(*Component)

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Stop(context.Background()) })

	mac, _ := net.ParseMAC("00:11:22:33:44:55")
	raw, err := (&dhcp.Frame{
		SrcMAC: mac, DstMAC: net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		SrcIP: net.IPv4zero.To4(), DstIP: net.IPv4bcast.To4(),
		SrcPort: 68, DstPort: 67, Payload: []byte("x"),
	}).Encode()
	require.NoError(t, err)

	port := models.ConnectPoint{Device: "relay1", Port: "eth1"}
	pipe.Inject(dataplane.Frame{Port: port, Data: raw})

	select {
	case f := <-c.DHCPChan:
		require.Equal(t, port, f.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not dispatched")
	}

	require.NoError(t, c.Emit(dataplane.Frame{Port: port, Data: raw}))
	out := <-pipe.Emitted()
	require.Equal(t, raw, out.Data)
}

type closingIO struct {
	*dataplane.Pipe
	frames chan dataplane.Frame
}

func (c *closingIO) Frames() <-chan dataplane.Frame { return c.frames }

func TestReadLoopStopsWhenFramesClose(t *testing.T) {
	io := &closingIO{Pipe: dataplane.NewPipe(1), frames: make(chan dataplane.Frame)}
	comp, err := New(component.Dependencies{PacketIO: io})
	require.NoError(t, err)
	c := comp.(*Component)
	c.StartContext(context.Background())
	t.Cleanup(c.StopContext)

	done := make(chan struct{})
	go func() {
		c.readLoop()
		close(done)
	}()
	close(io.frames)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop kept running after frames closed")
	}
	require.Zero(t, c.rxCount.Load())
}
