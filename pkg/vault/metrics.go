package vault

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "validator_vault"

var (
	depositsForwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deposits_forwarded_total",
		Help:      "Deposit records forwarded to the deposit contract.",
	})

	payouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payouts_total",
		Help:      "Non-zero payouts made by vaults.",
	}, []string{"kind"})

	unbondingRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "unbonding_requests_total",
		Help:      "Validator exit requests forwarded to the withdrawal request contract.",
	})

	rejectedOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rejected_operations_total",
		Help:      "State-changing vault calls that failed and were rolled back.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(depositsForwarded, payouts, unbondingRequests, rejectedOperations)
}
