// Package metrics registers the Prometheus collectors exported by both
// services and the /metrics HTTP handler serving them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jaem"

// Registry is the collector registry both services' metrics are registered
// against, served by Handler.
var Registry = prometheus.NewRegistry()

// Handler returns an http.Handler exposing Registry in Prometheus
// exposition format, for mounting at GET /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	// MDEMessagesSent counts successful send_message calls.
	MDEMessagesSent = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "messages_sent_total",
		Help:      "Total number of messages accepted by send_message.",
	})

	// MDEMessagesRetrieved counts successful get_messages calls.
	MDEMessagesRetrieved = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "messages_retrieved_total",
		Help:      "Total number of mailbox retrievals served by get_messages.",
	})

	// MDEMailboxesDeleted counts successful delete_messages calls.
	MDEMailboxesDeleted = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "mailboxes_deleted_total",
		Help:      "Total number of mailboxes removed by delete_messages.",
	})

	// MDESharesCreated counts successful share puts.
	MDESharesCreated = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "shares_created_total",
		Help:      "Total number of share links created.",
	})

	// MDEShareGCSweeps counts janitor ticks that ran the share-GC sweep.
	MDEShareGCSweeps = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "share_gc_sweeps_total",
		Help:      "Total number of share-store garbage collection sweeps run.",
	})

	// MDEAuthFailures counts AuthProof verification failures.
	MDEAuthFailures = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mde",
		Name:      "auth_failures_total",
		Help:      "Total number of AuthProof verification failures.",
	})

	// UDSMutations counts UserStorage mutations, labeled by operation.
	UDSMutations = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "uds",
		Name:      "mutations_total",
		Help:      "Total number of UserStorage mutations.",
	}, []string{"op"})

	// UDSLookups counts UserStorage read operations.
	UDSLookups = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "uds",
		Name:      "lookups_total",
		Help:      "Total number of UserStorage lookups (list, search, by-uid).",
	})

	// UDSFlushDuration tracks how long a full JSON snapshot write takes.
	UDSFlushDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "uds",
		Name:      "flush_duration_seconds",
		Help:      "Duration of a full UserStorage JSON snapshot flush.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
)
