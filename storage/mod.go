// Package storage defines the persistence store of the coordination core.
// Every mutating method runs inside one transaction of the backing engine, so
// the read-modify-write closures and the tally-reference compare-and-set are
// the serialization points the concurrency model relies on.
package storage

import (
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// ErrConflict is returned by the tally setters when the reference field is
// already set. Losing racers detect it and adopt the stored record.
var ErrConflict = xerrors.New("reference already set")

// Store provides CRUD for election, guardian, ballot and tally records.
type Store interface {
	// CreateElection stores a new election record. It fails if the id is
	// already taken.
	CreateElection(e types.Election) error

	// GetElection returns the election record, or a types.NotFoundError.
	GetElection(id types.ID) (types.Election, error)

	// UpdateElection atomically applies fn to the stored record. An error
	// returned by fn aborts the transaction with no partial effect.
	UpdateElection(id types.ID, fn func(*types.Election) error) error

	// SetGuardians stores the guardian set of an election, once. It fails
	// with a types.ValidationError if guardians are already registered.
	SetGuardians(id types.ID, guardians []types.Guardian) error

	// GetGuardians returns the guardians in ascending sequence order.
	GetGuardians(id types.ID) ([]types.Guardian, error)

	// UpdateGuardian atomically applies fn to one guardian, identified by
	// identity. An error returned by fn aborts with no partial effect.
	UpdateGuardian(id types.ID, identity string, fn func(*types.Guardian) error) error

	// SaveBallot stores a ballot, keyed by voter: a later ballot of the same
	// voter replaces the earlier one.
	SaveBallot(id types.ID, ballot types.Ballot) error

	// GetBallots returns the accepted ballots, one per voter, in a
	// deterministic order.
	GetBallots(id types.ID) ([]types.Ballot, error)

	// SetEncryptedTally stores the tally record and sets the election's
	// encrypted-tally reference in one transaction. It returns ErrConflict
	// if the reference is already set.
	SetEncryptedTally(id types.ID, tally types.EncryptedTally) error

	// GetEncryptedTally returns the encrypted tally of an election.
	GetEncryptedTally(id types.ID) (types.EncryptedTally, error)

	// SetPlaintextTally stores the combined result and sets the election's
	// combined-tally reference in one transaction. It returns ErrConflict if
	// the reference is already set.
	SetPlaintextTally(id types.ID, tally types.PlaintextTally) error

	// GetPlaintextTally returns the combined tally of an election.
	GetPlaintextTally(id types.ID) (types.PlaintextTally, error)

	// Close closes the store and frees the resources.
	Close() error
}
