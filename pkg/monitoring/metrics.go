package monitoring

import (
	"context"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const metricsNamespace = "ghcr_retention"

// Metrics counts what a single run did. Each run owns its registry, there is no process wide state.
type Metrics struct {
	registry *prometheus.Registry
	log      zlog.Logger

	scanned  prometheus.Counter
	selected *prometheus.CounterVec
	deleted  prometheus.Counter
	failures prometheus.Counter
	lastRun  prometheus.Gauge
	success  prometheus.Gauge
}

func NewMetrics(log zlog.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		log:      log,
		scanned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "versions_scanned_total",
				Help:      "Total number of package versions read from the registry",
			},
		),
		selected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "versions_selected_total",
				Help:      "Total number of package versions selected for deletion",
			},
			[]string{"policy"},
		),
		deleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "versions_deleted_total",
				Help:      "Total number of package versions deleted",
			},
		),
		failures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "delete_failures_total",
				Help:      "Total number of failed package version deletions",
			},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last retention run finished",
			},
		),
		success: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_run_success",
				Help:      "1 if the last retention run succeeded, 0 otherwise",
			},
		),
	}
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) Planned(policy string, candidates []types.PackageVersion) {
	m.selected.WithLabelValues(policy).Add(float64(len(candidates)))
}

func (m *Metrics) Deleted(types.PackageVersion) {
	m.deleted.Inc()
}

func (m *Metrics) Failed(types.PackageVersion, error) {
	m.failures.Inc()
}

func (m *Metrics) Finished(err error) {
	m.lastRun.SetToCurrentTime()

	if err != nil {
		m.success.Set(0)

		return
	}

	m.success.Set(1)
}

// WriteTextfile exports the registry for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to write metrics textfile")

		return fmt.Errorf("%w: %s: %w", zerr.ErrBadMetricsTextfile, path, err)
	}

	m.log.Debug().Str("path", path).Msg("wrote metrics textfile")

	return nil
}

type countingSource struct {
	source  types.VersionSource
	scanned prometheus.Counter
}

// WrapSource counts every version the source yields.
func (m *Metrics) WrapSource(source types.VersionSource) types.VersionSource {
	return countingSource{source: source, scanned: m.scanned}
}

func (s countingSource) Versions(ctx context.Context) iter.Seq2[types.PackageVersion, error] {
	return func(yield func(types.PackageVersion, error) bool) {
		for version, err := range s.source.Versions(ctx) {
			if err == nil {
				s.scanned.Inc()
			}

			if !yield(version, err) {
				return
			}
		}
	}
}
