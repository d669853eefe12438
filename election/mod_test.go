package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/scrutin/election/types"
)

func TestResolveStatus(t *testing.T) {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	require.Equal(t, types.StatusUpcoming, ResolveStatus(start, end, start.Add(-time.Second)))
	require.Equal(t, types.StatusOngoing, ResolveStatus(start, end, start))
	require.Equal(t, types.StatusOngoing, ResolveStatus(start, end, end.Add(-time.Second)))
	require.Equal(t, types.StatusCompleted, ResolveStatus(start, end, end))
	require.Equal(t, types.StatusCompleted, ResolveStatus(start, end, end.Add(time.Hour)))
}

func TestResolveStatus_Pure(t *testing.T) {
	start := time.Now()
	end := start.Add(time.Hour)
	now := start.Add(time.Minute)

	// Same inputs, same answer, no matter how often it is asked.
	for i := 0; i < 10; i++ {
		require.Equal(t, types.StatusOngoing, ResolveStatus(start, end, now))
	}
}

func TestDerivePhase_TimeWindow(t *testing.T) {
	e := makeElection()

	require.Equal(t, types.PhaseScheduled,
		DerivePhase(e, nil, e.Start.Add(-time.Second)))
	require.Equal(t, types.PhaseOngoing,
		DerivePhase(e, nil, e.Start))
	require.Equal(t, types.PhaseEnded,
		DerivePhase(e, nil, e.End))
}

func TestDerivePhase_TallyProgression(t *testing.T) {
	e := makeElection()
	now := e.End.Add(time.Minute)

	guardians := []types.Guardian{
		{Sequence: 1}, {Sequence: 2}, {Sequence: 3},
	}

	e.EncryptedTallyID = "tally"
	require.Equal(t, types.PhaseTallyCreated, DerivePhase(e, guardians, now))

	guardians[0].Submitted = true
	require.Equal(t, types.PhaseAwaitingQuorum, DerivePhase(e, guardians, now))

	e.CombinedTallyID = "combined"
	require.Equal(t, types.PhaseCombined, DerivePhase(e, guardians, now))

	count := uint64(1)
	for i := range e.Choices {
		e.Choices[i].TotalVotes = &count
	}

	require.Equal(t, types.PhaseFinalized, DerivePhase(e, guardians, now))
}

func TestDerivePhase_InsufficientGuardians(t *testing.T) {
	e := makeElection()
	e.EncryptedTallyID = "tally"
	now := e.End.Add(time.Minute)

	guardians := []types.Guardian{
		{Sequence: 1, Submitted: true},
		{Sequence: 2, ProofFailures: types.DefaultMaxProofFailures},
		{Sequence: 3, ProofFailures: types.DefaultMaxProofFailures},
	}

	// Two of three guardians locked out leaves one available, below the
	// quorum of two.
	require.Equal(t, types.PhaseInsufficientGuardians,
		DerivePhase(e, guardians, now))

	// A submitted share counts as available even with failures on record.
	guardians[1].Submitted = true
	require.Equal(t, types.PhaseAwaitingQuorum, DerivePhase(e, guardians, now))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeElection() types.Election {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	return types.Election{
		ID:           "deadbeef",
		Start:        start,
		End:          start.Add(8 * time.Hour),
		Quorum:       2,
		NumGuardians: 3,
		Choices:      []types.Choice{{ID: "a"}, {ID: "b"}},
	}
}
