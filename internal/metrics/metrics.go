package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/rotisserie/eris"
)

// Run holds the metrics of one pipeline run on a private registry. A batch
// job has nothing to scrape, so they leave the process through a textfile
// or a Pushgateway.
type Run struct {
	reg *prometheus.Registry

	sourceRecords  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	sourceDuration *prometheus.GaugeVec
	merge          *prometheus.GaugeVec
	dedupRemoved   prometheus.Gauge
	datasetSize    prometheus.Gauge
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

func New() *Run {
	m := &Run{reg: prometheus.NewRegistry()}
	m.sourceRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "source_records_total",
		Help:      "Records normalized per source",
	}, []string{"source"})
	m.sourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "source_failures_total",
		Help:      "Failed source runs by stage",
	}, []string{"source", "stage"})
	m.sourceDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "source_duration_seconds",
		Help:      "Time spent downloading and normalizing one source",
	}, []string{"source"})
	m.merge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "merge_records",
		Help:      "Incoming records by merge outcome",
	}, []string{"outcome"})
	m.dedupRemoved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "dedup_removed",
		Help:      "Records dropped as same-URL duplicates",
	})
	m.datasetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "dataset_records",
		Help:      "Records in the dataset after the run",
	})
	m.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last run",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingester",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that persisted the dataset",
	})
	m.reg.MustRegister(
		m.sourceRecords, m.sourceFailures, m.sourceDuration,
		m.merge, m.dedupRemoved, m.datasetSize, m.runDuration, m.lastSuccess,
	)
	return m
}

func (m *Run) Registry() *prometheus.Registry { return m.reg }

// Source records one adapter outcome. stage is empty on success.
func (m *Run) Source(key string, records int, took time.Duration, stage string) {
	m.sourceDuration.WithLabelValues(key).Set(took.Seconds())
	if stage != "" {
		m.sourceFailures.WithLabelValues(key, stage).Inc()
		return
	}
	m.sourceRecords.WithLabelValues(key).Add(float64(records))
}

func (m *Run) Merge(added, updated, unchanged int) {
	m.merge.WithLabelValues("added").Set(float64(added))
	m.merge.WithLabelValues("updated").Set(float64(updated))
	m.merge.WithLabelValues("unchanged").Set(float64(unchanged))
}

// Finish records the run totals; persisted marks a run that wrote the dataset.
func (m *Run) Finish(total, removed int, took time.Duration, persisted bool) {
	m.dedupRemoved.Set(float64(removed))
	m.datasetSize.Set(float64(total))
	m.runDuration.Set(took.Seconds())
	if persisted {
		m.lastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes the registry for node_exporter's textfile collector.
func (m *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	return nil
}

// Push sends the registry to a Pushgateway under job.
func (m *Run) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return eris.Wrapf(err, "metrics: push to %s", url)
	}
	return nil
}

// Dump returns a one-line snapshot of every sample (for logging).
func (m *Run) Dump() string {
	families, err := m.reg.Gather()
	if err != nil {
		return "gather failed: " + err.Error()
	}
	var out []string
	for _, f := range families {
		for _, s := range f.GetMetric() {
			out = append(out, fmt.Sprintf("%s{%s} %g", f.GetName(), labels(s.GetLabel()), value(s)))
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

func labels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}

func value(s *dto.Metric) float64 {
	switch {
	case s.GetCounter() != nil:
		return s.GetCounter().GetValue()
	case s.GetGauge() != nil:
		return s.GetGauge().GetValue()
	default:
		return 0
	}
}
