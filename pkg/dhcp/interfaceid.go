package dhcp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/veesix-networks/dhcprelay/pkg/models"
)

var ErrInterfaceID = errors.New("invalid interface id")

// InterfaceID is what the relay embeds in DHCPv6 relay-forward messages to
// route the reply back without state.
type InterfaceID struct {
	MAC          net.HardwareAddr
	ConnectPoint models.ConnectPoint
	VLAN         models.VLAN
}

// EncodeInterfaceID lays out mac(6) '-' connect-point ':' vlan(2, big endian).
func EncodeInterfaceID(id InterfaceID) []byte {
	cp := id.ConnectPoint.String()
	out := make([]byte, 0, 6+1+len(cp)+1+2)
	mac := make([]byte, 6)
	copy(mac, id.MAC)
	out = append(out, mac...)
	out = append(out, '-')
	out = append(out, cp...)
	out = append(out, ':')
	return binary.BigEndian.AppendUint16(out, uint16(id.VLAN))
}

func DecodeInterfaceID(data []byte) (InterfaceID, error) {
	// mac + '-' + at least "a/b" + ':' + vlan
	if len(data) < 6+1+3+1+2 {
		return InterfaceID{}, fmt.Errorf("%w: %d bytes", ErrInterfaceID, len(data))
	}
	if data[6] != '-' || data[len(data)-3] != ':' {
		return InterfaceID{}, fmt.Errorf("%w: bad separators", ErrInterfaceID)
	}

	cpBytes := data[7 : len(data)-3]
	if bytes.IndexByte(cpBytes, 0) >= 0 {
		return InterfaceID{}, fmt.Errorf("%w: nul in connect point", ErrInterfaceID)
	}
	cp, err := models.ParseConnectPoint(string(cpBytes))
	if err != nil {
		return InterfaceID{}, fmt.Errorf("%w: %v", ErrInterfaceID, err)
	}

	vlan := models.VLAN(binary.BigEndian.Uint16(data[len(data)-2:]))
	if vlan > models.VLANMax {
		return InterfaceID{}, fmt.Errorf("%w: vlan %d", ErrInterfaceID, vlan)
	}

	return InterfaceID{
		MAC:          append(net.HardwareAddr(nil), data[:6]...),
		ConnectPoint: cp,
		VLAN:         vlan,
	}, nil
}
