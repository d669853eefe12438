// Package guardian tracks the submission state of the election guardians. The
// registry is the single source of truth for which guardian has contributed a
// partial decryption share, and it enforces the hard rules around submission:
// one share per guardian, ever, and no share accepted without a verified
// proof.
package guardian

import (
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/scrutin"
	"go.dedis.ch/scrutin/crypto"
	"go.dedis.ch/scrutin/election"
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
	"golang.org/x/xerrors"
)

// Registry manages guardian registration and share submissions.
type Registry struct {
	store  storage.Store
	engine crypto.Engine
	logger zerolog.Logger

	// MaxProofFailures bounds the retries of a guardian whose proof fails
	// verification. Past the bound the guardian is locked out.
	MaxProofFailures int
}

// NewRegistry returns a registry backed by the given store and engine.
func NewRegistry(store storage.Store, engine crypto.Engine) *Registry {
	return &Registry{
		store:            store,
		engine:           engine,
		logger:           scrutin.Logger.With().Str("component", "guardian").Logger(),
		MaxProofFailures: types.DefaultMaxProofFailures,
	}
}

// Register stores the guardian set of an election, once, at ceremony time.
// The descriptors must carry a contiguous 1..n set of sequence orders with n
// equal to the election's guardian count.
func (r *Registry) Register(id types.ID, descs []types.GuardianDescriptor) error {
	e, err := r.store.GetElection(id)
	if err != nil {
		return xerrors.Errorf("failed to get election: %w", err)
	}

	if len(descs) != e.NumGuardians {
		return types.NewValidationError(
			"%d guardian descriptors for %d seats", len(descs), e.NumGuardians)
	}

	seen := make(map[int]bool)
	identities := make(map[string]bool)
	guardians := make([]types.Guardian, len(descs))

	for i, desc := range descs {
		if desc.Sequence < 1 || desc.Sequence > len(descs) {
			return types.NewValidationError(
				"sequence order %d out of range 1..%d", desc.Sequence, len(descs))
		}

		if seen[desc.Sequence] {
			return types.NewValidationError(
				"duplicate sequence order %d", desc.Sequence)
		}

		if identities[desc.Identity] {
			return types.NewValidationError(
				"duplicate guardian identity '%s'", desc.Identity)
		}

		seen[desc.Sequence] = true
		identities[desc.Identity] = true

		guardians[i] = types.Guardian{
			ElectionID: id,
			Identity:   desc.Identity,
			Sequence:   desc.Sequence,
			PublicKey:  desc.PublicKey,
			Commitment: desc.Commitment,
		}
	}

	err = r.store.SetGuardians(id, guardians)
	if err != nil {
		return xerrors.Errorf("failed to store guardians: %w", err)
	}

	r.logger.Info().
		Str("election", string(id)).
		Int("guardians", len(guardians)).
		Msg("guardians registered")

	return nil
}

// RecordSubmission verifies and stores a guardian's partial decryption share.
// Preconditions, in order: the guardian exists and belongs to the election;
// the guardian has not already submitted; the election has ended; an
// encrypted tally exists to decrypt; the proof verifies against the
// guardian's public commitment. A rejected share is discarded, not stored,
// and only counts against that guardian.
func (r *Registry) RecordSubmission(id types.ID, identity string,
	ds types.DecryptionShare, now time.Time) error {

	e, err := r.store.GetElection(id)
	if err != nil {
		return xerrors.Errorf("failed to get election: %w", err)
	}

	g, err := r.getGuardian(id, identity)
	if err != nil {
		return err
	}

	if g.Submitted {
		return types.NewDuplicateSubmissionError(
			"guardian %d already submitted a share", g.Sequence)
	}

	if election.ResolveStatus(e.Start, e.End, now) != types.StatusCompleted {
		return types.NewStateError(
			"shares are only accepted after the election ends")
	}

	if e.EncryptedTallyID == "" {
		return types.NewStateError("no encrypted tally to decrypt yet")
	}

	if ds.Sequence != g.Sequence {
		return types.NewValidationError(
			"share carries sequence %d, guardian holds seat %d",
			ds.Sequence, g.Sequence)
	}

	if g.LockedOut(r.MaxProofFailures) {
		return types.NewCryptoVerificationError(
			"guardian %d is locked out after %d rejected shares",
			g.Sequence, g.ProofFailures)
	}

	tally, err := r.store.GetEncryptedTally(id)
	if err != nil {
		return xerrors.Errorf("failed to get encrypted tally: %w", err)
	}

	err = r.engine.VerifyShareProof(g, tally, ds)
	if err != nil {
		failures := 0

		updateErr := r.store.UpdateGuardian(id, identity, func(g *types.Guardian) error {
			g.ProofFailures++
			failures = g.ProofFailures
			return nil
		})
		if updateErr != nil {
			return xerrors.Errorf("failed to record proof failure: %v", updateErr)
		}

		r.logger.Warn().
			Str("election", string(id)).
			Int("sequence", g.Sequence).
			Int("failures", failures).
			Msg("share rejected")

		return err
	}

	err = r.store.UpdateGuardian(id, identity, func(g *types.Guardian) error {
		// Recheck inside the transaction so two concurrent submissions yield
		// exactly one accepted write.
		if g.Submitted {
			return types.NewDuplicateSubmissionError(
				"guardian %d already submitted a share", g.Sequence)
		}

		share := ds
		submitted := now

		g.Submitted = true
		g.Share = &share
		g.SubmittedAt = &submitted

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("election", string(id)).
		Int("sequence", g.Sequence).
		Msg("share accepted")

	return nil
}

// SubmittedCount returns the number of guardians that have submitted their
// share.
func (r *Registry) SubmittedCount(id types.ID) (int, error) {
	guardians, err := r.store.GetGuardians(id)
	if err != nil {
		return 0, xerrors.Errorf("failed to get guardians: %w", err)
	}

	count := 0
	for _, g := range guardians {
		if g.Submitted {
			count++
		}
	}

	return count, nil
}

// QuorumMet returns true once enough shares have been submitted to combine.
func (r *Registry) QuorumMet(id types.ID) (bool, error) {
	e, err := r.store.GetElection(id)
	if err != nil {
		return false, xerrors.Errorf("failed to get election: %w", err)
	}

	count, err := r.SubmittedCount(id)
	if err != nil {
		return false, err
	}

	return count >= e.Quorum, nil
}

func (r *Registry) getGuardian(id types.ID, identity string) (types.Guardian, error) {
	guardians, err := r.store.GetGuardians(id)
	if err != nil {
		return types.Guardian{}, xerrors.Errorf("failed to get guardians: %w", err)
	}

	for _, g := range guardians {
		if g.Identity == identity {
			return g, nil
		}
	}

	return types.Guardian{}, types.NewNotFoundError(
		"no guardian '%s' in election '%s'", identity, id)
}
