package lookup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entity_lookup_requests_total",
		Help: "Lookup attempts by identifier kind.",
	}, []string{"kind"})

	notFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entity_lookup_not_found_total",
		Help: "Lookups that matched no index entry in any key space.",
	})

	shardFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entity_lookup_shard_failures_total",
		Help: "Index files that failed to load or parse.",
	})
)
