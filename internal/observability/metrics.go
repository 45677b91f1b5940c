package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors of the extraction pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	PagesFetched     *prometheus.CounterVec
	ReviewsExtracted prometheus.Counter
	Extractions      *prometheus.CounterVec
	CrawlDuration    prometheus.Histogram
}

// NewMetrics registers everything on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinions_pages_fetched_total",
			Help: "Review pages requested, by outcome.",
		},
		[]string{"outcome"},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opinions_reviews_extracted_total",
			Help: "Organic reviews turned into records.",
		},
	)
	extractions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinions_extractions_total",
			Help: "Product extraction runs, by result.",
		},
		[]string{"result"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opinions_crawl_duration_seconds",
			Help:    "Wall time of a full product crawl.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	registry.MustRegister(pages, reviews, extractions, duration)

	return &Metrics{
		Registry:         registry,
		PagesFetched:     pages,
		ReviewsExtracted: reviews,
		Extractions:      extractions,
		CrawlDuration:    duration,
	}
}

func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddReviews(n int) {
	if m == nil {
		return
	}
	m.ReviewsExtracted.Add(float64(n))
}

func (m *Metrics) IncExtraction(result string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCrawl(d time.Duration) {
	if m == nil {
		return
	}
	m.CrawlDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
