package election

import (
	"go.dedis.ch/scrutin/election/types"
)

// CanVote checks whether an identity may cast a ballot. A public election
// opens voting to anyone without requiring a roster entry; a private election
// requires the explicit voter role. When the answer is false, the returned
// string carries the denial reason.
func CanVote(identity string, e types.Election) (bool, string) {
	if e.Public {
		return true, ""
	}

	if e.HasVoter(identity) {
		return true, ""
	}

	return false, "identity is not on the voter roster of a private election"
}

// CanAdminister checks whether an identity may administer the election.
// Administrative capability is always roster-gated: the public flag never
// substitutes for the admin role.
func CanAdminister(identity string, e types.Election) (bool, string) {
	if e.HasAdmin(identity) {
		return true, ""
	}

	return false, "identity is not on the admin roster"
}

// CanGuard checks whether an identity holds a guardian seat. Like
// administration, guardianship is always roster-gated, so a public election
// never implicitly grants key-custody rights.
func CanGuard(identity string, e types.Election,
	guardians []types.Guardian) (bool, string) {

	for _, g := range guardians {
		if g.Identity == identity {
			return true, ""
		}
	}

	return false, "identity holds no guardian seat"
}

// Evaluate computes the full eligibility record of an identity for an
// election. The record is derived on demand and never persisted.
func Evaluate(identity string, e types.Election, guardians []types.Guardian,
	hasVoted bool) types.EligibilityRecord {

	guard, _ := CanGuard(identity, e, guardians)

	return types.EligibilityRecord{
		Identity:   identity,
		ElectionID: e.ID,
		Voter:      e.HasVoter(identity),
		Admin:      e.HasAdmin(identity),
		Guardian:   guard,
		HasVoted:   hasVoted,
	}
}
