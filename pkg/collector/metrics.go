package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collection counters, exposed in daemon mode via the promhttp handler.
var (
	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdigest_polls_total",
		Help: "Completed collection polls.",
	})

	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdigest_poll_errors_total",
		Help: "Polls that failed and left the cursor untouched.",
	})

	pollsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdigest_polls_dropped_total",
		Help: "Poll requests dropped because a poll was already in flight.",
	})

	eventsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdigest_events_ingested_total",
		Help: "Events written to the ledger.",
	})

	commitsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdigest_commits_processed_total",
		Help: "Commits turned into diff events.",
	})
)
