package tally

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/scrutin"
)

// defines prometheus metrics
var (
	promBallots = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrutin_ballots_total",
		Help: "total number of accepted ballots",
	})

	promTallies = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrutin_tallies_created_total",
		Help: "total number of encrypted tallies created",
	})

	promShares = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrutin_shares_accepted_total",
		Help: "total number of accepted guardian shares",
	})

	promRejectedShares = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrutin_shares_rejected_total",
		Help: "total number of guardian shares rejected by proof verification",
	})

	promCombinations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrutin_combinations_total",
		Help: "total number of threshold combinations performed",
	})
)

func init() {
	scrutin.PromCollectors = append(scrutin.PromCollectors, promBallots,
		promTallies, promShares, promRejectedShares, promCombinations)
}
