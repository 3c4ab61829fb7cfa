package registrations

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_operations_total",
			Help: "Total number of registration lifecycle operations",
		},
		[]string{"operation", "outcome"}, // outcome: success, not_found, authentication, validation, conflict, failure
	)

	promotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_waitlist_promotions_total",
			Help: "Total number of WAITING registrations moved back to PENDING",
		},
	)

	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_compensations_total",
			Help: "Total number of compensating actions run by lifecycle sagas",
		},
		[]string{"action", "outcome"},
	)
)

func recordOperation(operation string, err error) {
	operationsTotal.WithLabelValues(operation, outcomeOf(err)).Inc()
}

func recordCompensation(action, outcome string) {
	compensationsTotal.WithLabelValues(action, outcome).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return outcomeFailure
	}
}
