package dhcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/veesix-networks/dhcprelay/pkg/models"
)

var ErrCircuitID = errors.New("invalid circuit id")

// EncodeCircuitID renders the relay circuit id "<device>/<port>:<vlan>".
func EncodeCircuitID(cp models.ConnectPoint, vlan models.VLAN) []byte {
	return []byte(cp.String() + ":" + vlan.String())
}

// DecodeCircuitID reverses EncodeCircuitID. The vlan follows the last ':' so
// device ids containing ':' survive.
func DecodeCircuitID(data []byte) (models.ConnectPoint, models.VLAN, error) {
	s := string(data)
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return models.ConnectPoint{}, 0, fmt.Errorf("%w: %q", ErrCircuitID, s)
	}

	cp, err := models.ParseConnectPoint(s[:idx])
	if err != nil {
		return models.ConnectPoint{}, 0, fmt.Errorf("%w: %v", ErrCircuitID, err)
	}

	vlan, err := models.ParseVLAN(s[idx+1:])
	if err != nil || s[idx+1:] == "" {
		return models.ConnectPoint{}, 0, fmt.Errorf("%w: bad vlan in %q", ErrCircuitID, s)
	}

	return cp, vlan, nil
}
