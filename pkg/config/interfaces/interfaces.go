package interfaces

// InterfaceConfig is one relay interface. ConnectPoint defaults to
// device_id/name.
type InterfaceConfig struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	ConnectPoint string         `json:"connect_point,omitempty" yaml:"connect_point,omitempty"`
	MAC          string         `json:"mac" yaml:"mac"`
	VLANID       int            `json:"vlan-id,omitempty" yaml:"vlan-id,omitempty"`
	Address      *AddressConfig `json:"address,omitempty" yaml:"address,omitempty"`
}

type AddressConfig struct {
	IPv4 []string `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
	IPv6 []string `json:"ipv6,omitempty" yaml:"ipv6,omitempty"`
}
