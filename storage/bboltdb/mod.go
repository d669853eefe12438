// Package bboltdb implements the store on top of bbolt. The single-writer
// transaction of bbolt provides the atomicity of the read-modify-write
// closures and of the tally-reference compare-and-set.
package bboltdb

import (
	"bytes"
	"encoding/json"
	"sort"

	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var (
	electionBucket = []byte("elections")
	guardianBucket = []byte("guardians")
	ballotBucket   = []byte("ballots")
	tallyBucket    = []byte("tallies")
	combinedBucket = []byte("combined")
)

// boltStore is an adapter of the store using bbolt.
//
// - implements storage.Store
type boltStore struct {
	bolt *bbolt.DB
}

// New opens a database at the given path.
func New(path string) (storage.Store, error) {
	db, err := bbolt.Open(path, 0666, &bbolt.Options{})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	err = db.Update(func(txn *bbolt.Tx) error {
		for _, name := range [][]byte{electionBucket, guardianBucket,
			ballotBucket, tallyBucket, combinedBucket} {

			_, err := txn.CreateBucketIfNotExists(name)
			if err != nil {
				return xerrors.Errorf("failed to create bucket: %v", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return boltStore{bolt: db}, nil
}

// CreateElection implements storage.Store.
func (s boltStore) CreateElection(e types.Election) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		bucket := txn.Bucket(electionBucket)

		if bucket.Get([]byte(e.ID)) != nil {
			return types.NewValidationError("election '%s' already exists", e.ID)
		}

		buf, err := json.Marshal(e)
		if err != nil {
			return xerrors.Errorf("failed to marshal election: %v", err)
		}

		return bucket.Put([]byte(e.ID), buf)
	})
}

// GetElection implements storage.Store.
func (s boltStore) GetElection(id types.ID) (types.Election, error) {
	var e types.Election

	err := s.bolt.View(func(txn *bbolt.Tx) error {
		return readElection(txn, id, &e)
	})

	return e, err
}

// UpdateElection implements storage.Store.
func (s boltStore) UpdateElection(id types.ID, fn func(*types.Election) error) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		var e types.Election

		err := readElection(txn, id, &e)
		if err != nil {
			return err
		}

		err = fn(&e)
		if err != nil {
			return err
		}

		return writeElection(txn, e)
	})
}

// SetGuardians implements storage.Store.
func (s boltStore) SetGuardians(id types.ID, guardians []types.Guardian) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		bucket := txn.Bucket(guardianBucket)

		if bucket.Get([]byte(id)) != nil {
			return types.NewValidationError(
				"guardians of election '%s' are already registered", id)
		}

		buf, err := json.Marshal(guardians)
		if err != nil {
			return xerrors.Errorf("failed to marshal guardians: %v", err)
		}

		return bucket.Put([]byte(id), buf)
	})
}

// GetGuardians implements storage.Store.
func (s boltStore) GetGuardians(id types.ID) ([]types.Guardian, error) {
	var guardians []types.Guardian

	err := s.bolt.View(func(txn *bbolt.Tx) error {
		return readGuardians(txn, id, &guardians)
	})
	if err != nil {
		return nil, err
	}

	return guardians, nil
}

// UpdateGuardian implements storage.Store.
func (s boltStore) UpdateGuardian(id types.ID, identity string,
	fn func(*types.Guardian) error) error {

	return s.bolt.Update(func(txn *bbolt.Tx) error {
		var guardians []types.Guardian

		err := readGuardians(txn, id, &guardians)
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
			return types.NewNotFoundError(
				"no guardian '%s' in election '%s'", identity, id)
		}

		err = fn(&guardians[index])
		if err != nil {
			return err
		}

		buf, err := json.Marshal(guardians)
		if err != nil {
			return xerrors.Errorf("failed to marshal guardians: %v", err)
		}

		return txn.Bucket(guardianBucket).Put([]byte(id), buf)
	})
}

// SaveBallot implements storage.Store.
func (s boltStore) SaveBallot(id types.ID, ballot types.Ballot) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		buf, err := json.Marshal(ballot)
		if err != nil {
			return xerrors.Errorf("failed to marshal ballot: %v", err)
		}

		return txn.Bucket(ballotBucket).Put(ballotKey(id, ballot.Voter), buf)
	})
}

// GetBallots implements storage.Store. Ballots come back in the key order of
// the bucket, so repeated reads see the same order.
func (s boltStore) GetBallots(id types.ID) ([]types.Ballot, error) {
	ballots := make([]types.Ballot, 0)
	prefix := ballotKey(id, "")

	err := s.bolt.View(func(txn *bbolt.Tx) error {
		cursor := txn.Bucket(ballotBucket).Cursor()

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var ballot types.Ballot

			err := json.Unmarshal(v, &ballot)
			if err != nil {
				return xerrors.Errorf("failed to unmarshal ballot: %v", err)
			}

			ballots = append(ballots, ballot)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ballots, nil
}

// SetEncryptedTally implements storage.Store.
func (s boltStore) SetEncryptedTally(id types.ID, tally types.EncryptedTally) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		var e types.Election

		err := readElection(txn, id, &e)
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

		err = txn.Bucket(tallyBucket).Put([]byte(id), buf)
		if err != nil {
			return err
		}

		e.EncryptedTallyID = tally.ID

		return writeElection(txn, e)
	})
}

// GetEncryptedTally implements storage.Store.
func (s boltStore) GetEncryptedTally(id types.ID) (types.EncryptedTally, error) {
	var tally types.EncryptedTally

	err := s.bolt.View(func(txn *bbolt.Tx) error {
		buf := txn.Bucket(tallyBucket).Get([]byte(id))
		if buf == nil {
			return types.NewNotFoundError("no encrypted tally for election '%s'", id)
		}

		return json.Unmarshal(buf, &tally)
	})

	return tally, err
}

// SetPlaintextTally implements storage.Store.
func (s boltStore) SetPlaintextTally(id types.ID, tally types.PlaintextTally) error {
	return s.bolt.Update(func(txn *bbolt.Tx) error {
		var e types.Election

		err := readElection(txn, id, &e)
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

		err = txn.Bucket(combinedBucket).Put([]byte(id), buf)
		if err != nil {
			return err
		}

		e.CombinedTallyID = tally.ID

		return writeElection(txn, e)
	})
}

// GetPlaintextTally implements storage.Store.
func (s boltStore) GetPlaintextTally(id types.ID) (types.PlaintextTally, error) {
	var tally types.PlaintextTally

	err := s.bolt.View(func(txn *bbolt.Tx) error {
		buf := txn.Bucket(combinedBucket).Get([]byte(id))
		if buf == nil {
			return types.NewNotFoundError("no combined tally for election '%s'", id)
		}

		return json.Unmarshal(buf, &tally)
	})

	return tally, err
}

// Close implements storage.Store. Any call will result in an error after this
// function is called.
func (s boltStore) Close() error {
	return s.bolt.Close()
}

func readElection(txn *bbolt.Tx, id types.ID, e *types.Election) error {
	buf := txn.Bucket(electionBucket).Get([]byte(id))
	if buf == nil {
		return types.NewNotFoundError("no election '%s'", id)
	}

	err := json.Unmarshal(buf, e)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal election: %v", err)
	}

	return nil
}

func writeElection(txn *bbolt.Tx, e types.Election) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return xerrors.Errorf("failed to marshal election: %v", err)
	}

	return txn.Bucket(electionBucket).Put([]byte(e.ID), buf)
}

func readGuardians(txn *bbolt.Tx, id types.ID, guardians *[]types.Guardian) error {
	buf := txn.Bucket(guardianBucket).Get([]byte(id))
	if buf == nil {
		return types.NewNotFoundError("no guardians for election '%s'", id)
	}

	err := json.Unmarshal(buf, guardians)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal guardians: %v", err)
	}

	sort.Slice(*guardians, func(i, j int) bool {
		return (*guardians)[i].Sequence < (*guardians)[j].Sequence
	})

	return nil
}

func ballotKey(id types.ID, voter string) []byte {
	key := make([]byte, 0, len(id)+1+len(voter))
	key = append(key, []byte(id)...)
	key = append(key, 0)
	key = append(key, []byte(voter)...)

	return key
}
