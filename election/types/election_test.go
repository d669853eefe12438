package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestElection_Validate(t *testing.T) {
	e := validElection()
	require.NoError(t, e.Validate())

	e = validElection()
	e.ID = ""
	require.EqualError(t, e.Validate(), "validation error: election id is empty")

	e = validElection()
	e.Quorum = 0
	require.EqualError(t, e.Validate(), "validation error: quorum 0 out of range 1..3")

	e = validElection()
	e.Quorum = 4
	require.EqualError(t, e.Validate(), "validation error: quorum 4 out of range 1..3")

	e = validElection()
	e.End = e.Start
	require.EqualError(t, e.Validate(), "validation error: election ends before it starts")

	e = validElection()
	e.Choices = nil
	require.EqualError(t, e.Validate(), "validation error: election has no choices")
}

func TestElection_Finalized(t *testing.T) {
	e := validElection()
	require.False(t, e.Finalized())

	count := uint64(5)
	e.Choices[0].TotalVotes = &count
	require.False(t, e.Finalized())

	e.Choices[1].TotalVotes = &count
	require.True(t, e.Finalized())

	require.False(t, Election{}.Finalized())
}

func TestElection_Rosters(t *testing.T) {
	e := validElection()

	require.True(t, e.HasVoter("alice"))
	require.False(t, e.HasVoter("carol"))
	require.True(t, e.HasAdmin("carol"))
	require.False(t, e.HasAdmin("alice"))
}

func TestGuardian_LockedOut(t *testing.T) {
	g := Guardian{ProofFailures: DefaultMaxProofFailures}
	require.True(t, g.LockedOut(DefaultMaxProofFailures))

	g.ProofFailures--
	require.False(t, g.LockedOut(DefaultMaxProofFailures))

	// A successful submission is never undone by the failure count.
	g = Guardian{Submitted: true, ProofFailures: DefaultMaxProofFailures}
	require.False(t, g.LockedOut(DefaultMaxProofFailures))
}

// -----------------------------------------------------------------------------
// Utility functions

func validElection() Election {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	return Election{
		ID:           "deadbeef",
		Start:        start,
		End:          start.Add(8 * time.Hour),
		Quorum:       2,
		NumGuardians: 3,
		Choices:      []Choice{{ID: "a"}, {ID: "b"}},
		Voters:       []string{"alice", "bob"},
		Admins:       []string{"carol"},
	}
}
