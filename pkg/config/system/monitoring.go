package system

import "time"

type MonitoringConfig struct {
	Listen          string        `json:"listen,omitempty" yaml:"listen,omitempty"`
	Path            string        `json:"path,omitempty" yaml:"path,omitempty"`
	CollectInterval time.Duration `json:"collect_interval,omitempty" yaml:"collect_interval,omitempty"`
}
