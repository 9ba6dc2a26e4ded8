package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service metrics on its own prometheus registry so that
// tests and multiple servers never collide on the global one.
type Registry struct {
	reg *prometheus.Registry

	QueryDuration *prometheus.HistogramVec
	Queries       *prometheus.CounterVec
	Loads         *prometheus.CounterVec
	DatasetRows   *prometheus.GaugeVec
	LastLoad      prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mis_query_duration_seconds",
				Help:    "Duration of analytics queries in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query"},
		),

		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mis_queries_total",
				Help: "Analytics queries by query and result",
			},
			[]string{"query", "result"},
		),

		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mis_dataset_loads_total",
				Help: "Dataset loads by result",
			},
			[]string{"result"},
		),

		DatasetRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mis_dataset_rows",
				Help: "Rows of the current dataset: read, kept and dropped by reason",
			},
			[]string{"kind"},
		),

		LastLoad: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mis_dataset_last_load_timestamp_seconds",
				Help: "Unix time of the last successful load",
			},
		),
	}

	r.reg.MustRegister(
		r.QueryDuration,
		r.Queries,
		r.Loads,
		r.DatasetRows,
		r.LastLoad,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveQuery records one query. result is "ok" or a short error class.
func (r *Registry) ObserveQuery(query, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.QueryDuration.WithLabelValues(query).Observe(d.Seconds())
	r.Queries.WithLabelValues(query, result).Inc()
}

// DatasetStats is what a load reports to metrics
type DatasetStats struct {
	Read, Kept                           int
	UnparseableDate, BeforeCutoff, Tests int
	LoadedAt                             time.Time
}

func (r *Registry) ObserveLoad(stats DatasetStats) {
	if r == nil {
		return
	}
	r.Loads.WithLabelValues("ok").Inc()
	r.DatasetRows.WithLabelValues("read").Set(float64(stats.Read))
	r.DatasetRows.WithLabelValues("kept").Set(float64(stats.Kept))
	r.DatasetRows.WithLabelValues("dropped_unparseable_date").Set(float64(stats.UnparseableDate))
	r.DatasetRows.WithLabelValues("dropped_before_cutoff").Set(float64(stats.BeforeCutoff))
	r.DatasetRows.WithLabelValues("dropped_test").Set(float64(stats.Tests))
	r.LastLoad.Set(float64(stats.LoadedAt.Unix()))
}

func (r *Registry) ObserveLoadFailure() {
	if r == nil {
		return
	}
	r.Loads.WithLabelValues("error").Inc()
}

// Handler serves the registry in the prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
