package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bankclient",
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatched API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bankclient",
			Name:      "dispatch_duration_seconds",
			Help:      "Round trip of dispatched API calls",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	tokenRenewals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bankclient",
			Name:      "token_renewals_total",
			Help:      "Scheduled token renewals by result",
		},
		[]string{"result"},
	)

	cachedTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bankclient",
			Name:      "cached_transactions_total",
			Help:      "Transaction records written into the local cache",
		},
	)
)
