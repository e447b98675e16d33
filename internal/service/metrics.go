package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 扫描相关的 Prometheus 指标，使用独立的 registry
type Metrics struct {
	registry *prometheus.Registry

	cycleDuration prometheus.Histogram
	cycles        *prometheus.CounterVec
	symbols       *prometheus.CounterVec
	bucketSize    *prometheus.GaugeVec
	newHighs      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "athscan",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of scan cycles.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "athscan",
			Name:      "cycles_total",
			Help:      "Scan cycles by final status.",
		}, []string{"status"}),
		symbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "athscan",
			Name:      "symbols_total",
			Help:      "Symbols processed by outcome.",
		}, []string{"outcome"}),
		bucketSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "athscan",
			Name:      "bucket_symbols",
			Help:      "Number of symbols in each setup after the latest cycle.",
		}, []string{"bucket"}),
		newHighs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "athscan",
			Name:      "new_highs_total",
			Help:      "Candidates that raised a stored all-time high.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycleDuration, m.cycles, m.symbols, m.bucketSize, m.newHighs,
	)
	return m
}

// ObserveCycle 记录一次扫描
func (m *Metrics) ObserveCycle(status string, duration time.Duration, analyzed, excluded, insufficient, newHighs int) {
	m.cycleDuration.Observe(duration.Seconds())
	m.cycles.WithLabelValues(status).Inc()
	m.symbols.WithLabelValues("analyzed").Add(float64(analyzed))
	m.symbols.WithLabelValues("excluded").Add(float64(excluded))
	m.symbols.WithLabelValues("insufficient").Add(float64(insufficient))
	m.newHighs.Add(float64(newHighs))
}

// ObserveBuckets 记录各 setup 的交易对数量
func (m *Metrics) ObserveBuckets(buckets Buckets) {
	for name, symbols := range buckets {
		m.bucketSize.WithLabelValues(string(name)).Set(float64(len(symbols)))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
