package profile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	malformedBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindpath_update_blocks_malformed_total",
		Help: "Update blocks dropped because their body was not valid JSON",
	})
	rejectedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindpath_updates_rejected_total",
		Help: "Raw update records rejected during normalization",
	})
	truncatedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindpath_updates_truncated_total",
		Help: "Valid update records dropped by the per-reply cap",
	})
	appliedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindpath_updates_applied_total",
		Help: "Profile updates handed to the reconciliation writer",
	})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindpath_persist_failures_total",
		Help: "Storage operations that failed during reconciliation",
	})
)
