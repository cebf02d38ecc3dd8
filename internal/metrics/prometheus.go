package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailguard_http_requests_total",
			Help: "HTTP requests by method and status class",
		},
		[]string{"method", "class"},
	)

	RequestsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailguard_http_requests_in_progress",
			Help: "HTTP requests currently being served",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailguard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailguard_analyses_total",
			Help: "Finished inbox analyses by result",
		},
		[]string{"result"},
	)

	AnalysesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailguard_analyses_running",
			Help: "Inbox analyses currently running",
		},
	)

	ServicesDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailguard_services_discovered_total",
			Help: "Discovered services by grade",
		},
		[]string{"grade"},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailguard_chat_messages_total",
			Help: "Chat transcript entries by role",
		},
		[]string{"role"},
	)

	ReportsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailguard_reports_recorded_total",
			Help: "Analysis reports handed to persistence by status",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestsInProgress,
			RequestDuration,
			AnalysesTotal,
			AnalysesRunning,
			ServicesDiscovered,
			ChatMessages,
			ReportsRecorded,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
