package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sequenceAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manud_sequence_allocations_total",
			Help: "Ids handed out by the sequence allocator",
		},
		[]string{"counter"},
	)

	// Lost compare-and-swap races; each one costs a retry
	sequenceConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manud_sequence_conflicts_total",
			Help: "Counter writes that lost a concurrent update",
		},
		[]string{"counter"},
	)

	catalogWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manud_catalog_writes_total",
			Help: "Catalog mutations partitioned by collection and operation",
		},
		[]string{"collection", "operation"},
	)

	chatbotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manud_chatbot_requests_total",
			Help: "Chatbot prompts partitioned by outcome",
		},
		[]string{"result"},
	)
)
