// Package inmemory implements the store with plain maps, for tests and
// demos. Records are kept marshalled so that readers always get a copy of the
// committed state, and one mutex serializes the mutating closures.
package inmemory

import (
	"encoding/json"
	"sort"
	"sync"

	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
	"golang.org/x/xerrors"
)

// InMemory implements an in-memory store.
//
// - implements storage.Store
type InMemory struct {
	sync.Mutex

	elections map[types.ID][]byte
	guardians map[types.ID][]byte
	ballots   map[types.ID]map[string][]byte
	tallies   map[types.ID][]byte
	combined  map[types.ID][]byte
}

// NewInMemory returns a new empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		elections: make(map[types.ID][]byte),
		guardians: make(map[types.ID][]byte),
		ballots:   make(map[types.ID]map[string][]byte),
		tallies:   make(map[types.ID][]byte),
		combined:  make(map[types.ID][]byte),
	}
}

// CreateElection implements storage.Store.
func (s *InMemory) CreateElection(e types.Election) error {
	s.Lock()
	defer s.Unlock()

	if _, found := s.elections[e.ID]; found {
		return types.NewValidationError("election '%s' already exists", e.ID)
	}

	return s.putElection(e)
}

// GetElection implements storage.Store.
func (s *InMemory) GetElection(id types.ID) (types.Election, error) {
	s.Lock()
	defer s.Unlock()

	return s.readElection(id)
}

// UpdateElection implements storage.Store.
func (s *InMemory) UpdateElection(id types.ID, fn func(*types.Election) error) error {
	s.Lock()
	defer s.Unlock()

	e, err := s.readElection(id)
	if err != nil {
		return err
	}

	err = fn(&e)
	if err != nil {
		return err
	}

	return s.putElection(e)
}

// SetGuardians implements storage.Store.
func (s *InMemory) SetGuardians(id types.ID, guardians []types.Guardian) error {
	s.Lock()
	defer s.Unlock()

	if _, found := s.guardians[id]; found {
		return types.NewValidationError(
			"guardians of election '%s' are already registered", id)
	}

	buf, err := json.Marshal(guardians)
	if err != nil {
		return xerrors.Errorf("failed to marshal guardians: %v", err)
	}

	s.guardians[id] = buf

	return nil
}

// GetGuardians implements storage.Store.
func (s *InMemory) GetGuardians(id types.ID) ([]types.Guardian, error) {
	s.Lock()
	defer s.Unlock()

	return s.readGuardians(id)
}

// UpdateGuardian implements storage.Store.
func (s *InMemory) UpdateGuardian(id types.ID, identity string,
	fn func(*types.Guardian) error) error {

	s.Lock()
	defer s.Unlock()

	guardians, err := s.readGuardians(id)
	if err != nil {
		return err
	}

	index := -1
	for i, g := range guardians {
		if g.Identity == identity {
			index = i
			break
		}
	}

	if index < 0 {
		return types.NewNotFoundError("no guardian '%s' in election '%s'", identity, id)
	}

	err = fn(&guardians[index])
	if err != nil {
		return err
	}

	buf, err := json.Marshal(guardians)
	if err != nil {
		return xerrors.Errorf("failed to marshal guardians: %v", err)
	}

	s.guardians[id] = buf

	return nil
}

// SaveBallot implements storage.Store.
func (s *InMemory) SaveBallot(id types.ID, ballot types.Ballot) error {
	s.Lock()
	defer s.Unlock()

	buf, err := json.Marshal(ballot)
	if err != nil {
		return xerrors.Errorf("failed to marshal ballot: %v", err)
	}

	box, found := s.ballots[id]
	if !found {
		box = make(map[string][]byte)
		s.ballots[id] = box
	}

	box[ballot.Voter] = buf

	return nil
}

// GetBallots implements storage.Store. Ballots come back sorted by voter so
// repeated reads see the same order.
func (s *InMemory) GetBallots(id types.ID) ([]types.Ballot, error) {
	s.Lock()
	defer s.Unlock()

	box := s.ballots[id]

	voters := make([]string, 0, len(box))
	for voter := range box {
		voters = append(voters, voter)
	}

	sort.Strings(voters)

	ballots := make([]types.Ballot, 0, len(box))

	for _, voter := range voters {
		var ballot types.Ballot

		err := json.Unmarshal(box[voter], &ballot)
		if err != nil {
			return nil, xerrors.Errorf("failed to unmarshal ballot: %v", err)
		}

		ballots = append(ballots, ballot)
	}

	return ballots, nil
}

// SetEncryptedTally implements storage.Store.
func (s *InMemory) SetEncryptedTally(id types.ID, tally types.EncryptedTally) error {
	s.Lock()
	defer s.Unlock()

	e, err := s.readElection(id)
	if err != nil {
		return err
	}

	if e.EncryptedTallyID != "" {
		return storage.ErrConflict
	}

	buf, err := json.Marshal(tally)
	if err != nil {
		return xerrors.Errorf("failed to marshal tally: %v", err)
	}

	s.tallies[id] = buf
	e.EncryptedTallyID = tally.ID

	return s.putElection(e)
}

// GetEncryptedTally implements storage.Store.
func (s *InMemory) GetEncryptedTally(id types.ID) (types.EncryptedTally, error) {
	s.Lock()
	defer s.Unlock()

	buf, found := s.tallies[id]
	if !found {
		return types.EncryptedTally{}, types.NewNotFoundError(
			"no encrypted tally for election '%s'", id)
	}

	var tally types.EncryptedTally

	err := json.Unmarshal(buf, &tally)
	if err != nil {
		return types.EncryptedTally{}, xerrors.Errorf(
			"failed to unmarshal tally: %v", err)
	}

	return tally, nil
}

// SetPlaintextTally implements storage.Store.
func (s *InMemory) SetPlaintextTally(id types.ID, tally types.PlaintextTally) error {
	s.Lock()
	defer s.Unlock()

	e, err := s.readElection(id)
	if err != nil {
		return err
	}

	if e.CombinedTallyID != "" {
		return storage.ErrConflict
	}

	buf, err := json.Marshal(tally)
	if err != nil {
		return xerrors.Errorf("failed to marshal combined tally: %v", err)
	}

	s.combined[id] = buf
	e.CombinedTallyID = tally.ID

	return s.putElection(e)
}

// GetPlaintextTally implements storage.Store.
func (s *InMemory) GetPlaintextTally(id types.ID) (types.PlaintextTally, error) {
	s.Lock()
	defer s.Unlock()

	buf, found := s.combined[id]
	if !found {
		return types.PlaintextTally{}, types.NewNotFoundError(
			"no combined tally for election '%s'", id)
	}

	var tally types.PlaintextTally

	err := json.Unmarshal(buf, &tally)
	if err != nil {
		return types.PlaintextTally{}, xerrors.Errorf(
			"failed to unmarshal combined tally: %v", err)
	}

	return tally, nil
}

// Close implements storage.Store.
func (s *InMemory) Close() error {
	return nil
}

func (s *InMemory) readElection(id types.ID) (types.Election, error) {
	buf, found := s.elections[id]
	if !found {
		return types.Election{}, types.NewNotFoundError("no election '%s'", id)
	}

	var e types.Election

	err := json.Unmarshal(buf, &e)
	if err != nil {
		return types.Election{}, xerrors.Errorf("failed to unmarshal election: %v", err)
	}

	return e, nil
}

func (s *InMemory) putElection(e types.Election) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return xerrors.Errorf("failed to marshal election: %v", err)
	}

	s.elections[e.ID] = buf

	return nil
}

func (s *InMemory) readGuardians(id types.ID) ([]types.Guardian, error) {
	buf, found := s.guardians[id]
	if !found {
		return nil, types.NewNotFoundError("no guardians for election '%s'", id)
	}

	var guardians []types.Guardian

	err := json.Unmarshal(buf, &guardians)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal guardians: %v", err)
	}

	sort.Slice(guardians, func(i, j int) bool {
		return guardians[i].Sequence < guardians[j].Sequence
	})

	return guardians, nil
}
