package tally

import (
	"go.dedis.ch/scrutin/election"
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
	"golang.org/x/xerrors"
)

// CreateTally produces the encrypted tally of an election by homomorphically
// summing the accepted ballots. The operation is idempotent: once the
// election's tally reference is set, every later call returns the stored
// record without recomputing. Concurrent callers racing to create the same
// tally are serialized by the per-election lock and, ultimately, by the
// check-and-set of the reference inside the store transaction, so two
// distinct tally records can never exist.
func (s *Service) CreateTally(id types.ID) (types.EncryptedTally, error) {
	lock := s.electionLock(id)
	lock.Lock()
	defer lock.Unlock()

	e, err := s.store.GetElection(id)
	if err != nil {
		return types.EncryptedTally{}, xerrors.Errorf(
			"failed to get election: %w", err)
	}

	if election.ResolveStatus(e.Start, e.End, s.clock()) != types.StatusCompleted {
		// Tallying before polls close would leak partial-turnout information.
		return types.EncryptedTally{}, types.NewStateError(
			"tally creation requires an ended election")
	}

	if e.EncryptedTallyID != "" {
		return s.store.GetEncryptedTally(id)
	}

	ballots, err := s.store.GetBallots(id)
	if err != nil {
		return types.EncryptedTally{}, xerrors.Errorf(
			"failed to get ballots: %w", err)
	}

	tally, err := s.engine.AggregateCiphertexts(ballots, len(e.Choices))
	if err != nil {
		return types.EncryptedTally{}, xerrors.Errorf(
			"failed to aggregate ballots: %v", err)
	}

	tally.ElectionID = id

	err = s.store.SetEncryptedTally(id, tally)
	if xerrors.Is(err, storage.ErrConflict) {
		// Lost the race against another caller: adopt its record.
		return s.store.GetEncryptedTally(id)
	}

	if err != nil {
		return types.EncryptedTally{}, xerrors.Errorf(
			"failed to store tally: %w", err)
	}

	promTallies.Inc()

	s.logger.Info().
		Str("election", string(id)).
		Str("tally", tally.ID).
		Int("ballots", tally.BallotCount).
		Msg("encrypted tally created")

	return tally, nil
}
