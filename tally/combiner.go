package tally

import (
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
	"golang.org/x/xerrors"
)

// CombinePartialDecryptions reconstructs the plaintext tally from a
// quorum-sized subset of the submitted guardian shares. Subset selection is
// deterministic, ascending sequence order, so a re-run reconstructs from the
// same shares and an audit can reproduce the result. The operation is
// idempotent: once a combined tally exists it is returned unchanged, and
// recombination is disallowed even with a different guardian subset. On a
// verification failure nothing is persisted.
func (s *Service) CombinePartialDecryptions(id types.ID) (types.PlaintextTally, error) {
	lock := s.electionLock(id)
	lock.Lock()
	defer lock.Unlock()

	e, err := s.store.GetElection(id)
	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to get election: %w", err)
	}

	if e.CombinedTallyID != "" {
		return s.store.GetPlaintextTally(id)
	}

	if e.EncryptedTallyID == "" {
		return types.PlaintextTally{}, types.NewStateError(
			"no encrypted tally to combine yet")
	}

	guardians, err := s.store.GetGuardians(id)
	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to get guardians: %w", err)
	}

	// Guardians come back in ascending sequence order, so taking the first
	// quorum submitted shares is the deterministic selection.
	shares := make([]types.DecryptionShare, 0, e.Quorum)

	submitted := 0
	for _, g := range guardians {
		if !g.Submitted || g.Share == nil {
			continue
		}

		submitted++

		if len(shares) < e.Quorum {
			shares = append(shares, *g.Share)
		}
	}

	if submitted < e.Quorum {
		return types.PlaintextTally{}, types.NewQuorumError(
			"%d of %d required shares submitted", submitted, e.Quorum)
	}

	tally, err := s.store.GetEncryptedTally(id)
	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to get encrypted tally: %w", err)
	}

	plain, err := s.engine.CombineShares(tally, shares)
	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to combine shares: %w", err)
	}

	plain.ElectionID = id

	err = s.engine.VerifyCombinationProof(tally, shares, plain)
	if err != nil {
		// Fail closed: no partial combined-tally state is visible.
		return types.PlaintextTally{}, xerrors.Errorf(
			"combined result does not verify: %w", err)
	}

	err = s.store.SetPlaintextTally(id, plain)
	if xerrors.Is(err, storage.ErrConflict) {
		return s.store.GetPlaintextTally(id)
	}

	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to store combined tally: %w", err)
	}

	promCombinations.Inc()

	s.logger.Info().
		Str("election", string(id)).
		Str("tally", plain.ID).
		Ints("subset", plain.Subset).
		Msg("tally combined")

	return plain, nil
}
