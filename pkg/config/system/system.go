package system

type DataplaneConfig struct {
	Ports      []string `json:"ports,omitempty" yaml:"ports,omitempty"`
	RecvBuffer int      `json:"recv_buffer,omitempty" yaml:"recv_buffer,omitempty"`
}

type RoutingConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Netns   string `json:"netns,omitempty" yaml:"netns,omitempty"`
	Table   int    `json:"table,omitempty" yaml:"table,omitempty"`
}

type OpDBConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

type APIConfig struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}
