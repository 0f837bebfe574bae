package afpacket

import (
	"testing"
	"unsafe"

	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"golang.org/x/sys/unix"
)

func auxdata(tci uint16) []byte {
	size := int(unsafe.Sizeof(unix.TpacketAuxdata{}))
	b := make([]byte, unix.CmsgSpace(size))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&b[0]))
	h.Level = unix.SOL_PACKET
	h.Type = unix.PACKET_AUXDATA
	h.SetLen(unix.CmsgLen(size))
	aux := (*unix.TpacketAuxdata)(unsafe.Pointer(&b[unix.CmsgLen(0)]))
	aux.Status = unix.TP_STATUS_VLAN_VALID
	aux.Vlan_tci = tci
	return b
}

func untaggedFrame(t *testing.T) []byte {
	t.Helper()
	f := &dhcp.Frame{
		SrcMAC:  []byte{0, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:  []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		SrcIP:   []byte{0, 0, 0, 0},
		DstIP:   []byte{255, 255, 255, 255},
		SrcPort: 68,
		DstPort: 67,
		Payload: []byte("discover"),
	}
	raw, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return raw
}

func TestWithVLANRestoresTag(t *testing.T) {
	raw := untaggedFrame(t)

	got, err := dhcp.DecodeFrame(withVLAN(raw, auxdata(10)))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.VLAN != 10 || string(got.Payload) != "discover" {
		t.Fatalf("got vlan %v payload %q, want 10 discover", got.VLAN, got.Payload)
	}
}

func TestWithVLANUntagged(t *testing.T) {
	raw := untaggedFrame(t)
	out := withVLAN(raw, nil)
	if string(out) != string(raw) {
		t.Fatal("untagged frame changed")
	}
	out[0] = 0
	if raw[0] == 0 {
		t.Fatal("output aliases the receive buffer")
	}
}

func TestHtons(t *testing.T) {
	if got := htons(0x0003); got != 0x0300 {
		t.Fatalf("got %#x, want 0x0300", got)
	}
}
