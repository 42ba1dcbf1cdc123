package ticketing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TicketTransitions counts lifecycle transitions by kind.
var TicketTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ticketing_transitions_total",
		Help: "Total number of ticket lifecycle transitions",
	},
	[]string{"transition"},
)
