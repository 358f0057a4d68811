package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "http_requests_total",
		Help:      "HTTP requests by status code",
	}, []string{"status"})

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "uploads_total",
		Help:      "Successful file uploads",
	})

	uploadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "upload_errors_total",
		Help:      "Failed or rejected upload requests",
	})

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "downloads_total",
		Help:      "Download redirects issued",
	})

	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "sweep_runs_total",
		Help:      "Retention sweep passes started",
	})

	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "sweep_deleted_total",
		Help:      "Expired files fully deleted by the sweeper",
	})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "sweep_errors_total",
		Help:      "Individual failures during retention sweeps",
	})
)
