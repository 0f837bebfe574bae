// Package all links every bundled plugin into the daemon.
package all

import (
	_ "github.com/veesix-networks/dhcprelay/plugins/exporter/prometheus"
)
