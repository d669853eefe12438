// Package election holds the pure parts of the coordination core: the status
// resolver, the derived tally phase and the eligibility evaluator. Everything
// in this package is a function of its inputs, safe for any number of
// concurrent callers, and reads no ambient state. In particular the current
// time is always an explicit parameter so that the authoritative phase
// computation never depends on a ticking internal clock.
package election

import (
	"time"

	"go.dedis.ch/scrutin/election/types"
)

// ResolveStatus maps an election's time window to its lifecycle status. The
// boundary is half-open: the start instant belongs to Ongoing, the end instant
// to Completed.
func ResolveStatus(start, end, now time.Time) types.Status {
	switch {
	case now.Before(start):
		return types.StatusUpcoming
	case now.Before(end):
		return types.StatusOngoing
	default:
		return types.StatusCompleted
	}
}

// DerivePhase computes the tally phase of an election from its stored record,
// its guardians and the given time. Scheduled, Ongoing and Ended follow from
// the time window; the remaining phases follow from the presence of tally,
// share and result data.
func DerivePhase(e types.Election, guardians []types.Guardian,
	now time.Time) types.TallyPhase {

	switch ResolveStatus(e.Start, e.End, now) {
	case types.StatusUpcoming:
		return types.PhaseScheduled
	case types.StatusOngoing:
		return types.PhaseOngoing
	}

	if e.CombinedTallyID != "" {
		if e.Finalized() {
			return types.PhaseFinalized
		}

		return types.PhaseCombined
	}

	if e.EncryptedTallyID == "" {
		return types.PhaseEnded
	}

	submitted := 0
	available := 0

	for _, g := range guardians {
		if g.Submitted {
			submitted++
			available++
			continue
		}

		if !g.LockedOut(types.DefaultMaxProofFailures) {
			available++
		}
	}

	if available < e.Quorum {
		return types.PhaseInsufficientGuardians
	}

	if submitted == 0 {
		return types.PhaseTallyCreated
	}

	return types.PhaseAwaitingQuorum
}
