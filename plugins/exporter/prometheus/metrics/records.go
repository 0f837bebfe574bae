package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
)

func init() {
	Register("records", func(logger *slog.Logger) (MetricHandler, error) {
		return &recordsHandler{
			records: prometheus.NewDesc(
				prometheus.BuildFQName(Namespace, "", "records"),
				"Number of relay records.",
				nil, nil,
			),
			bindings: prometheus.NewDesc(
				prometheus.BuildFQName(Namespace, "", "bindings"),
				"Active leases by kind and attachment.",
				[]string{"kind", "attachment"}, nil,
			),
		}, nil
	})
}

type recordsHandler struct {
	records  *prometheus.Desc
	bindings *prometheus.Desc
}

func (h *recordsHandler) Name() string { return "records" }

func (h *recordsHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.records
	ch <- h.bindings
}

type bindingKey struct {
	kind       string
	attachment string
}

func (h *recordsHandler) Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Records == nil {
		return nil
	}

	all := src.Records.All()
	counts := map[bindingKey]int{}
	for _, kind := range []string{"ipv4", "ipv6", "pd"} {
		for _, att := range []string{"direct", "indirect"} {
			counts[bindingKey{kind, att}] = 0
		}
	}

	for _, rec := range all {
		att := "indirect"
		if rec.DirectlyConnected {
			att = "direct"
		}
		if rec.IP4Address != nil && rec.IP4Status == dhcp.Ack {
			counts[bindingKey{"ipv4", att}]++
		}
		if rec.HasIP6Address() {
			counts[bindingKey{"ipv6", att}]++
		}
		if rec.HasPDPrefix() {
			counts[bindingKey{"pd", att}]++
		}
	}

	ch <- prometheus.MustNewConstMetric(h.records, prometheus.GaugeValue, float64(len(all)))
	for k, n := range counts {
		ch <- prometheus.MustNewConstMetric(h.bindings, prometheus.GaugeValue, float64(n), k.kind, k.attachment)
	}
	return nil
}
