// Package tally implements the caller-facing operations of the coordination
// core: election setup, ballot casting, tally creation, threshold-decryption
// combination and results aggregation. The service is safe for any number of
// concurrent callers; the store transactions and a per-election mutex are the
// only serialization points.
package tally

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/scrutin"
	"go.dedis.ch/scrutin/crypto"
	"go.dedis.ch/scrutin/election"
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/guardian"
	"go.dedis.ch/scrutin/storage"
	"golang.org/x/xerrors"
)

// Service exposes the operations of the coordination core. The acting
// identity is always an explicit parameter: the core never reads ambient
// session state to determine who is acting.
type Service struct {
	store    storage.Store
	engine   crypto.Engine
	registry *guardian.Registry
	logger   zerolog.Logger
	clock    func() time.Time

	mu    sync.Mutex
	locks map[types.ID]*sync.Mutex
}

// NewService returns a service over the given store and engine.
func NewService(store storage.Store, engine crypto.Engine) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		registry: guardian.NewRegistry(store, engine),
		logger:   scrutin.Logger.With().Str("component", "tally").Logger(),
		clock:    time.Now,
		locks:    make(map[types.ID]*sync.Mutex),
	}
}

// Registry returns the guardian registry of the service.
func (s *Service) Registry() *guardian.Registry {
	return s.registry
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// CreateElection validates and stores a new election record.
func (s *Service) CreateElection(e types.Election) error {
	err := e.Validate()
	if err != nil {
		return err
	}

	err = s.store.CreateElection(e)
	if err != nil {
		return xerrors.Errorf("failed to store election: %w", err)
	}

	s.logger.Info().
		Str("election", string(e.ID)).
		Int("quorum", e.Quorum).
		Int("guardians", e.NumGuardians).
		Msg("election created")

	return nil
}

// GetElection returns an election record.
func (s *Service) GetElection(id types.ID) (types.Election, error) {
	return s.store.GetElection(id)
}

// GetStatus returns the time-derived status and the derived tally phase of an
// election at the given instant. The phase is recomputed from the stored
// record on every call.
func (s *Service) GetStatus(id types.ID,
	now time.Time) (types.Status, types.TallyPhase, error) {

	e, err := s.store.GetElection(id)
	if err != nil {
		return 0, 0, xerrors.Errorf("failed to get election: %w", err)
	}

	guardians, err := s.store.GetGuardians(id)
	if err != nil {
		if !isNotFound(err) {
			return 0, 0, xerrors.Errorf("failed to get guardians: %w", err)
		}

		guardians = nil
	}

	status := election.ResolveStatus(e.Start, e.End, now)
	phase := election.DerivePhase(e, guardians, now)

	return status, phase, nil
}

// CheckEligibility computes the eligibility record of an identity for an
// election.
func (s *Service) CheckEligibility(identity string,
	id types.ID) (types.EligibilityRecord, error) {

	e, err := s.store.GetElection(id)
	if err != nil {
		return types.EligibilityRecord{}, xerrors.Errorf(
			"failed to get election: %w", err)
	}

	guardians, err := s.store.GetGuardians(id)
	if err != nil && !isNotFound(err) {
		return types.EligibilityRecord{}, xerrors.Errorf(
			"failed to get guardians: %w", err)
	}

	hasVoted, err := s.hasVoted(id, identity)
	if err != nil {
		return types.EligibilityRecord{}, err
	}

	return election.Evaluate(identity, e, guardians, hasVoted), nil
}

// CastBallot stores an encrypted ballot for an eligible voter of an ongoing
// election. A voter casting again replaces the earlier ballot: only the last
// one is tallied.
func (s *Service) CastBallot(identity string, id types.ID,
	cts []types.Ciphertext) error {

	e, err := s.store.GetElection(id)
	if err != nil {
		return xerrors.Errorf("failed to get election: %w", err)
	}

	if election.ResolveStatus(e.Start, e.End, s.clock()) != types.StatusOngoing {
		return types.NewStateError("election is not open for ballot casting")
	}

	ok, reason := election.CanVote(identity, e)
	if !ok {
		return types.NewValidationError("%s", reason)
	}

	if len(cts) != len(e.Choices) {
		return types.NewValidationError(
			"ballot has %d ciphertexts for %d choices", len(cts), len(e.Choices))
	}

	ballot := types.Ballot{
		Voter:       identity,
		Ciphertexts: cts,
		Cast:        s.clock(),
	}

	err = s.store.SaveBallot(id, ballot)
	if err != nil {
		return xerrors.Errorf("failed to store ballot: %w", err)
	}

	promBallots.Inc()

	return nil
}

// SubmitGuardianShare records a guardian's partial decryption share. The
// submission is attributed to the given identity, never to ambient state.
func (s *Service) SubmitGuardianShare(id types.ID, identity string,
	ds types.DecryptionShare) error {

	err := s.registry.RecordSubmission(id, identity, ds, s.clock())
	if err != nil {
		var cve types.CryptoVerificationError
		if xerrors.As(err, &cve) {
			promRejectedShares.Inc()
		}

		return err
	}

	promShares.Inc()

	return nil
}

// hasVoted checks whether the identity has an accepted ballot.
func (s *Service) hasVoted(id types.ID, identity string) (bool, error) {
	ballots, err := s.store.GetBallots(id)
	if err != nil {
		return false, xerrors.Errorf("failed to get ballots: %w", err)
	}

	for _, ballot := range ballots {
		if ballot.Voter == identity {
			return true, nil
		}
	}

	return false, nil
}

// electionLock returns the per-election mutex serializing the expensive
// operations (tally creation, combination) for one election id.
func (s *Service) electionLock(id types.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, found := s.locks[id]
	if !found {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}

	return lock
}

func isNotFound(err error) bool {
	var notFound types.NotFoundError
	return xerrors.As(err, &notFound)
}
