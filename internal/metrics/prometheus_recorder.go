package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spaceblog"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cmsDuration    *prom.HistogramVec
	cmsResults     *prom.CounterVec
	pagesGenerated *prom.CounterVec
	buildDuration  prom.Histogram
	loadMore       *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cmsDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cms_request_duration_seconds",
			Help:      "Duration of content backend requests",
			Buckets:   prom.DefBuckets,
		}, []string{"op"}),
		cmsResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cms_requests_total",
			Help:      "Content backend requests by operation and outcome",
		}, []string{"op", "result"}),
		pagesGenerated: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_generated_total",
			Help:      "Generated pages by kind and outcome",
		}, []string{"kind", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		}),
		loadMore: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "load_more_total",
			Help:      "Load-more page requests served by outcome",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.cmsDuration, pr.cmsResults, pr.pagesGenerated, pr.buildDuration, pr.loadMore)
	return pr
}

func (p *PrometheusRecorder) ObserveCMSRequest(op string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.cmsDuration.WithLabelValues(op).Observe(d.Seconds())
	p.cmsResults.WithLabelValues(op, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPageGenerated(kind string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pagesGenerated.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncLoadMore(result ResultLabel) {
	if p == nil {
		return
	}
	p.loadMore.WithLabelValues(string(result)).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
