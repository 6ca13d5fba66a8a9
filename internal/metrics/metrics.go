package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authentication flow counters.

var (
	ChallengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dvarapala",
		Subsystem: "auth",
		Name:      "challenges_issued_total",
		Help:      "Total sign-in challenges issued",
	})

	// LoginAttempts is partitioned by outcome: verified, rejected, expired,
	// replayed, malformed.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dvarapala",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Total signature verification attempts by outcome",
	}, []string{"outcome"})
)
