package dhcp

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FlagBroadcast is the BOOTP broadcast bit.
const FlagBroadcast uint16 = 0x8000

func DecodeDHCPv4(payload []byte) (*layers.DHCPv4, error) {
	d := &layers.DHCPv4{}
	if err := d.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("decode dhcpv4: %w", err)
	}
	return d, nil
}

func EncodeDHCPv4(d *layers.DHCPv4) ([]byte, error) {
	d.Options = WithoutOption4(d.Options, layers.DHCPOptEnd)
	buf := gopacket.NewSerializeBuffer()
	if err := d.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}); err != nil {
		return nil, fmt.Errorf("encode dhcpv4: %w", err)
	}
	return buf.Bytes(), nil
}

func Option4(opts layers.DHCPOptions, code layers.DHCPOpt) []byte {
	for _, o := range opts {
		if o.Type == code {
			return o.Data
		}
	}
	return nil
}

func HasOption4(opts layers.DHCPOptions, code layers.DHCPOpt) bool {
	for _, o := range opts {
		if o.Type == code {
			return true
		}
	}
	return false
}

// WithoutOption4 returns a copy of opts minus every option of the given code
// and any pad or end markers.
func WithoutOption4(opts layers.DHCPOptions, code layers.DHCPOpt) layers.DHCPOptions {
	out := make(layers.DHCPOptions, 0, len(opts))
	for _, o := range opts {
		if o.Type == code || o.Type == layers.DHCPOptPad || o.Type == layers.DHCPOptEnd {
			continue
		}
		out = append(out, o)
	}
	return out
}

// AgentInfo4 decodes option 82 if present.
func AgentInfo4(opts layers.DHCPOptions) (*AgentInfo, bool, error) {
	if !HasOption4(opts, OptionAgentInfo) {
		return nil, false, nil
	}
	info, err := ParseAgentInfo(Option4(opts, OptionAgentInfo))
	return info, true, err
}
