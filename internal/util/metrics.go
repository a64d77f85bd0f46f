package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BorrowsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrows_created_total",
		Help: "Total number of borrow records created",
	})

	BorrowsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "borrows_failed_total",
		Help: "Total number of rejected borrow attempts",
	}, []string{"reason"})

	BooksReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_returned_total",
		Help: "Total number of books returned",
	})

	RenewalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renewals_total",
		Help: "Total number of successful renewals",
	})

	FinesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fines_applied_total",
		Help: "Total number of fines applied to borrows",
	})

	StatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "borrow_status_updates_total",
		Help: "Total number of administrative borrow status updates",
	}, []string{"status"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of admin login attempts",
	}, []string{"result"})

	AuditEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_published_total",
		Help: "Total number of audit events published to the broker",
	})

	AuditEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Total number of audit events that could not be published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
