// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	ReceiptScansTotal    *prometheus.CounterVec
	CategorizerFallbacks prometheus.Counter
	AnomalyChecksTotal   *prometheus.CounterVec
	AssistantCallsTotal  *prometheus.CounterVec
}

// New registers and returns the application collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_http_requests_total",
			Help: "Total HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spendwise_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ReceiptScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_receipt_scans_total",
			Help: "Receipt scan pipeline runs by outcome.",
		}, []string{"outcome"}),
		CategorizerFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "spendwise_categorizer_amount_fallbacks_total",
			Help: "Categorizations that fell back to the amount-band rule.",
		}),
		AnomalyChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_anomaly_checks_total",
			Help: "Anomaly checks by result (anomaly, normal, skipped, failed).",
		}, []string{"result"}),
		AssistantCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spendwise_assistant_calls_total",
			Help: "Assistant LLM calls by outcome.",
		}, []string{"outcome"}),
	}
}

// Serve starts a dedicated metrics listener.
func Serve(port int, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	return srv
}
