package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Register("counters", func(logger *slog.Logger) (MetricHandler, error) {
		return &countersHandler{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(Namespace, "", "events_total"),
				"Relay events by counter name, including message types and drop reasons.",
				[]string{"name"}, nil,
			),
		}, nil
	})
}

type countersHandler struct {
	desc *prometheus.Desc
}

func (h *countersHandler) Name() string { return "counters" }

func (h *countersHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.desc
}

func (h *countersHandler) Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Counters == nil {
		return nil
	}
	for name, v := range src.Counters.Snapshot() {
		ch <- prometheus.MustNewConstMetric(h.desc, prometheus.CounterValue, float64(v), name)
	}
	return nil
}
