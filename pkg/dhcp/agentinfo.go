package dhcp

import (
	"errors"
	"fmt"
)

const (
	OptionAgentInfo = 82

	SubOptCircuitID = 1
	SubOptRemoteID  = 2
)

var ErrTruncated = errors.New("truncated option")

// SubOption is one TLV inside the relay agent information option.
type SubOption struct {
	Code uint8
	Data []byte
}

// AgentInfo is a decoded relay agent information option.
type AgentInfo struct {
	SubOptions []SubOption
}

func (a *AgentInfo) Get(code uint8) []byte {
	for _, s := range a.SubOptions {
		if s.Code == code {
			return s.Data
		}
	}
	return nil
}

func (a *AgentInfo) CircuitID() []byte {
	return a.Get(SubOptCircuitID)
}

func (a *AgentInfo) RemoteID() []byte {
	return a.Get(SubOptRemoteID)
}

func ParseAgentInfo(data []byte) (*AgentInfo, error) {
	info := &AgentInfo{}
	i := 0
	for i < len(data) {
		if i+1 >= len(data) {
			return nil, fmt.Errorf("%w: sub-option header at %d", ErrTruncated, i)
		}

		code := data[i]
		length := int(data[i+1])
		if i+2+length > len(data) {
			return nil, fmt.Errorf("%w: sub-option %d wants %d bytes", ErrTruncated, code, length)
		}

		info.SubOptions = append(info.SubOptions, SubOption{
			Code: code,
			Data: append([]byte(nil), data[i+2:i+2+length]...),
		})
		i += 2 + length
	}
	return info, nil
}

// Marshal encodes the sub-options. Sub-options longer than 255 bytes are an
// error since the length field is a single byte.
func (a *AgentInfo) Marshal() ([]byte, error) {
	out := make([]byte, 0, 32)
	for _, s := range a.SubOptions {
		if len(s.Data) > 255 {
			return nil, fmt.Errorf("sub-option %d too long: %d bytes", s.Code, len(s.Data))
		}
		out = append(out, s.Code, byte(len(s.Data)))
		out = append(out, s.Data...)
	}
	if len(out) > 255 {
		return nil, fmt.Errorf("agent information too long: %d bytes", len(out))
	}
	return out, nil
}
