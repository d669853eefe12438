package tally

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/scrutin/election/types"
)

func TestService_CombinePartialDecryptions(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := setupEndedElection(t, srvc)

	_, err := srvc.CombinePartialDecryptions("unknown")
	require.EqualError(t, err,
		"failed to get election: not found: no election 'unknown'")

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.EqualError(t, err, "state error: no encrypted tally to combine yet")

	_, err = srvc.CreateTally(e.ID)
	require.NoError(t, err)

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.EqualError(t, err, "quorum error: 0 of 2 required shares submitted")

	require.NoError(t, srvc.SubmitGuardianShare(e.ID, "g1",
		types.DecryptionShare{Sequence: 1}))

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.EqualError(t, err, "quorum error: 1 of 2 required shares submitted")

	require.NoError(t, srvc.SubmitGuardianShare(e.ID, "g3",
		types.DecryptionShare{Sequence: 3}))

	plain, err := srvc.CombinePartialDecryptions(e.ID)
	require.NoError(t, err)
	require.Equal(t, e.ID, plain.ElectionID)
	require.Equal(t, []int{1, 3}, plain.Subset)

	stored, err := srvc.GetElection(e.ID)
	require.NoError(t, err)
	require.Equal(t, plain.ID, stored.CombinedTallyID)

	// Idempotent: no recombination, even though another subset would now be
	// possible.
	require.NoError(t, srvc.SubmitGuardianShare(e.ID, "g2",
		types.DecryptionShare{Sequence: 2}))

	again, err := srvc.CombinePartialDecryptions(e.ID)
	require.NoError(t, err)
	require.Equal(t, plain.ID, again.ID)
	require.Equal(t, 1, engine.CombineCall.Len())
}

func TestService_CombinePartialDecryptions_Deterministic(t *testing.T) {
	srvc, _, _ := makeService(t)

	e := setupEndedElection(t, srvc)

	_, err := srvc.CreateTally(e.ID)
	require.NoError(t, err)

	// All three guardians submit; the quorum of two lowest sequences is the
	// subset that gets combined.
	for i, identity := range []string{"g3", "g1", "g2"} {
		seq := []int{3, 1, 2}[i]

		require.NoError(t, srvc.SubmitGuardianShare(e.ID, identity,
			types.DecryptionShare{Sequence: seq}))
	}

	plain, err := srvc.CombinePartialDecryptions(e.ID)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, plain.Subset)
}

func TestService_CombinePartialDecryptions_FailClosed(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := setupEndedElection(t, srvc)

	_, err := srvc.CreateTally(e.ID)
	require.NoError(t, err)

	for _, seq := range []int{1, 2} {
		identity := "g" + string(rune('0'+seq))

		require.NoError(t, srvc.SubmitGuardianShare(e.ID, identity,
			types.DecryptionShare{Sequence: seq}))
	}

	engine.ErrCombine = types.NewCryptoVerificationError("combine broke")

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.EqualError(t, err,
		"failed to combine shares: crypto verification error: combine broke")

	engine.ErrCombine = nil
	engine.ErrProof = types.NewCryptoVerificationError("digest mismatch")

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.EqualError(t, err,
		"combined result does not verify: crypto verification error: digest mismatch")

	// Nothing was persisted by the failed attempts.
	stored, err := srvc.GetElection(e.ID)
	require.NoError(t, err)
	require.Empty(t, stored.CombinedTallyID)

	engine.ErrProof = nil

	_, err = srvc.CombinePartialDecryptions(e.ID)
	require.NoError(t, err)
}

func TestService_CombinePartialDecryptions_Concurrent(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := setupEndedElection(t, srvc)

	_, err := srvc.CreateTally(e.ID)
	require.NoError(t, err)

	for _, seq := range []int{1, 2} {
		identity := "g" + string(rune('0'+seq))

		require.NoError(t, srvc.SubmitGuardianShare(e.ID, identity,
			types.DecryptionShare{Sequence: seq}))
	}

	const callers = 8

	results := make([]types.PlaintextTally, callers)

	wg := sync.WaitGroup{}
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()

			plain, err := srvc.CombinePartialDecryptions(e.ID)
			require.NoError(t, err)

			results[i] = plain
		}(i)
	}

	wg.Wait()

	// The reference is set exactly once; every caller sees the same record.
	require.Equal(t, 1, engine.CombineCall.Len())

	for _, plain := range results {
		require.Equal(t, results[0].ID, plain.ID)
	}
}

// -----------------------------------------------------------------------------
// Utility functions

// setupEndedElection stores an election with registered guardians, two cast
// ballots and the clock past the end time.
func setupEndedElection(t *testing.T, srvc *Service) types.Election {
	e := makeElection()

	require.NoError(t, srvc.CreateElection(e))
	require.NoError(t, srvc.Registry().Register(e.ID, makeDescriptors(3)))

	srvc.SetClock(func() time.Time { return e.Start.Add(time.Minute) })

	require.NoError(t, srvc.CastBallot("alice", e.ID, makeCiphertexts(2)))
	require.NoError(t, srvc.CastBallot("bob", e.ID, makeCiphertexts(2)))

	srvc.SetClock(func() time.Time { return e.End.Add(time.Minute) })

	return e
}
