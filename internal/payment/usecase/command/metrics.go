package command

import "github.com/prometheus/client_golang/prometheus"

var (
	paymentOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Total number of payment write operations by outcome",
		},
		[]string{"operation", "result"},
	)

	paymentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Total number of committed payment status transitions",
		},
		[]string{"from", "to"},
	)

	paymentConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_transition_conflicts_total",
			Help: "Total number of status updates that lost a concurrent race",
		},
	)
)

func init() {
	prometheus.MustRegister(paymentOperationsTotal)
	prometheus.MustRegister(paymentTransitionsTotal)
	prometheus.MustRegister(paymentConflictsTotal)
}

func observe(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	paymentOperationsTotal.WithLabelValues(operation, result).Inc()
}
