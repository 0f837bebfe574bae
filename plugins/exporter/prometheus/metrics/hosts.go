package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Register("hosts", func(logger *slog.Logger) (MetricHandler, error) {
		return &hostsHandler{
			hosts: prometheus.NewDesc(
				prometheus.BuildFQName(Namespace, "", "hosts"),
				"Known hosts by provider.",
				[]string{"provider"}, nil,
			),
			monitored: prometheus.NewDesc(
				prometheus.BuildFQName(Namespace, "", "monitored_addresses"),
				"Addresses the relay is resolving, split by whether a host answers for them.",
				[]string{"resolved"}, nil,
			),
		}, nil
	})
}

type hostsHandler struct {
	hosts     *prometheus.Desc
	monitored *prometheus.Desc
}

func (h *hostsHandler) Name() string { return "hosts" }

func (h *hostsHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.hosts
	ch <- h.monitored
}

func (h *hostsHandler) Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Hosts == nil {
		return nil
	}

	byProvider := map[string]int{}
	for _, host := range src.Hosts.Hosts() {
		byProvider[host.Provider]++
	}
	for p, n := range byProvider {
		ch <- prometheus.MustNewConstMetric(h.hosts, prometheus.GaugeValue, float64(n), p)
	}

	var resolved, pending int
	for _, ip := range src.Hosts.Monitored() {
		if len(src.Hosts.HostsByIP(ip)) > 0 {
			resolved++
		} else {
			pending++
		}
	}
	ch <- prometheus.MustNewConstMetric(h.monitored, prometheus.GaugeValue, float64(resolved), "true")
	ch <- prometheus.MustNewConstMetric(h.monitored, prometheus.GaugeValue, float64(pending), "false")
	return nil
}
