package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Actuator metrics

	ActionAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doorkeeper",
		Name:      "action_attempts_total",
		Help:      "Individual lock/unlock attempts, by outcome.",
	}, []string{"action", "outcome"})

	ActionAttemptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "doorkeeper",
		Name:      "action_attempt_duration_seconds",
		Help:      "Duration of one vendor API command.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
	}, []string{"action"})

	ActionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doorkeeper",
		Name:      "action_runs_total",
		Help:      "Completed retry sequences, by final outcome.",
	}, []string{"action", "outcome"})

	// Scheduler metrics

	ScheduleFiresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doorkeeper",
		Name:      "schedule_fires_total",
		Help:      "Scheduled tasks fired by the polling loop, by task kind.",
	}, []string{"kind"})

	LoopStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "doorkeeper",
		Name:      "loop_start_time_seconds",
		Help:      "Unix timestamp when the polling loop started.",
	})

	// Notification metrics

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doorkeeper",
		Name:      "notifications_total",
		Help:      "Notification deliveries, by channel and outcome.",
	}, []string{"channel", "outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "doorkeeper",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doorkeeper",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		ActionAttemptsTotal,
		ActionAttemptDuration,
		ActionRunsTotal,
		ScheduleFiresTotal,
		LoopStartTime,
		NotificationsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
