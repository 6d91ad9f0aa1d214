package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus registry and holds the API's
// instruments.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a metrics server listening on listenAddr. Instruments are
// registered under the given namespace alongside the standard Go and
// process collectors.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Engine operations by name and outcome.",
	}, []string{"operation", "outcome"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "API request handling time by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(operations, requestDuration)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		},
		registry:        registry,
		operations:      operations,
		requestDuration: requestDuration,
	}, nil
}

// RecordOperation counts one engine operation and its outcome.
func (m *MetricsServer) RecordOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRequest records the handling time of one API request.
func (m *MetricsServer) ObserveRequest(route string, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
