package tally

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestService_CreateTally(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := makeElection()
	require.NoError(t, srvc.CreateElection(e))

	_, err := srvc.CreateTally("unknown")
	require.EqualError(t, err,
		"failed to get election: not found: no election 'unknown'")

	// No tally before the polls close: it would leak partial turnout.
	srvc.SetClock(func() time.Time { return e.End.Add(-time.Second) })

	_, err = srvc.CreateTally(e.ID)
	require.EqualError(t, err, "state error: tally creation requires an ended election")

	srvc.SetClock(func() time.Time { return e.Start.Add(time.Minute) })

	require.NoError(t, srvc.CastBallot("alice", e.ID, makeCiphertexts(2)))
	require.NoError(t, srvc.CastBallot("bob", e.ID, makeCiphertexts(2)))

	srvc.SetClock(func() time.Time { return e.End.Add(time.Minute) })

	tally, err := srvc.CreateTally(e.ID)
	require.NoError(t, err)
	require.Equal(t, 2, tally.BallotCount)
	require.Equal(t, e.ID, tally.ElectionID)

	stored, err := srvc.GetElection(e.ID)
	require.NoError(t, err)
	require.Equal(t, tally.ID, stored.EncryptedTallyID)

	// Idempotent: the second call returns the stored record without
	// aggregating again.
	again, err := srvc.CreateTally(e.ID)
	require.NoError(t, err)
	require.Equal(t, tally.ID, again.ID)
	require.Equal(t, 1, engine.AggregateCall.Len())
}

func TestService_CreateTally_EngineError(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := makeElection()
	require.NoError(t, srvc.CreateElection(e))

	srvc.SetClock(func() time.Time { return e.End.Add(time.Minute) })

	engine.ErrAggregate = types.NewValidationError("oops")

	_, err := srvc.CreateTally(e.ID)
	require.EqualError(t, err,
		"failed to aggregate ballots: validation error: oops")

	// Nothing was persisted, so a later call can still succeed.
	stored, err := srvc.GetElection(e.ID)
	require.NoError(t, err)
	require.Empty(t, stored.EncryptedTallyID)
}

func TestService_CreateTally_StorageError(t *testing.T) {
	srvc, db, _ := makeService(t)

	e := makeElection()
	require.NoError(t, srvc.CreateElection(e))

	srvc.SetClock(func() time.Time { return e.End.Add(time.Minute) })

	srvc.store = fake.Store{
		Store:         db,
		ErrGetBallots: xerrors.New("disk broke"),
	}

	_, err := srvc.CreateTally(e.ID)
	require.EqualError(t, err, "failed to get ballots: disk broke")

	srvc.store = fake.Store{
		Store:                db,
		ErrSetEncryptedTally: xerrors.New("disk broke"),
	}

	_, err = srvc.CreateTally(e.ID)
	require.EqualError(t, err, "failed to store tally: disk broke")
}

func TestService_CreateTally_Concurrent(t *testing.T) {
	srvc, _, engine := makeService(t)

	e := makeElection()
	require.NoError(t, srvc.CreateElection(e))

	srvc.SetClock(func() time.Time { return e.End.Add(time.Minute) })

	const callers = 8

	tallies := make([]types.EncryptedTally, callers)

	wg := sync.WaitGroup{}
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()

			tally, err := srvc.CreateTally(e.ID)
			require.NoError(t, err)

			tallies[i] = tally
		}(i)
	}

	wg.Wait()

	// Exactly one aggregation, every caller sees the same record.
	require.Equal(t, 1, engine.AggregateCall.Len())

	for _, tally := range tallies {
		require.Equal(t, tallies[0].ID, tally.ID)
	}
}
