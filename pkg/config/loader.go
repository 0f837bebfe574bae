package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Relay.DeviceID == "" {
		c.Relay.DeviceID = DefaultDeviceID
	}
	if c.Relay.PollInterval == 0 {
		c.Relay.PollInterval = DefaultPollInterval
	}
	if c.OpDB.Path == "" {
		c.OpDB.Path = DefaultOpDBPath
	}
	if c.API.Listen == "" {
		c.API.Listen = DefaultAPIListen
	}
	if c.Monitoring.Listen != "" && c.Monitoring.Path == "" {
		c.Monitoring.Path = DefaultMetricsPath
	}
	for name, iface := range c.Interfaces {
		if iface == nil {
			continue
		}
		if iface.Name == "" {
			iface.Name = name
		}
		if iface.ConnectPoint == "" {
			iface.ConnectPoint = c.Relay.DeviceID + "/" + iface.Name
		}
	}
}

func (c *Config) Validate() error {
	if c.Relay.PollInterval < 0 {
		return fmt.Errorf("relay.poll_interval must be positive")
	}
	if _, err := c.InterfaceModels(); err != nil {
		return err
	}
	if _, _, err := c.DHCPv4.Build(false); err != nil {
		return fmt.Errorf("dhcpv4: %w", err)
	}
	if _, _, err := c.DHCPv6.Build(true); err != nil {
		return fmt.Errorf("dhcpv6: %w", err)
	}
	if _, err := c.IgnoredVLANs(); err != nil {
		return err
	}
	if _, err := c.StaticHosts(); err != nil {
		return err
	}
	return nil
}
