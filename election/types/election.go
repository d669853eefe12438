package types

import (
	"time"
)

// ID identifies an election.
type ID string

// Choice is one of the candidates or options of an election. TotalVotes stays
// nil until the results aggregator writes the decrypted count, which happens
// exactly once.
type Choice struct {
	ID         string
	Name       string
	Party      string
	TotalVotes *uint64
}

// Ciphertext wraps an ElGamal ciphertext pair.
type Ciphertext struct {
	K []byte
	C []byte
}

// Ballot is an accepted encrypted ballot. It carries one ciphertext per choice
// so that ballots aggregate homomorphically into the encrypted tally.
type Ballot struct {
	Voter       string
	Ciphertexts []Ciphertext
	Cast        time.Time
}

// EncryptedTally is the homomorphic sum of all accepted ballots, one
// ciphertext per choice. There is at most one per election.
type EncryptedTally struct {
	ID          string
	ElectionID  ID
	Ciphertexts []Ciphertext
	BallotCount int
	Created     time.Time
}

// DecryptionShare is a guardian's partial decryption of the encrypted tally:
// one point per choice, each accompanied by a Chaum-Pedersen proof that it was
// computed with the guardian's key share.
type DecryptionShare struct {
	Sequence int
	Points   [][]byte
	Proofs   [][]byte
}

// PlaintextTally is the combined decryption result. Subset records the
// guardian sequence orders whose shares were interpolated, so the published
// result is tied to one auditable reconstruction. Proof commits to the inputs
// of that reconstruction.
type PlaintextTally struct {
	ID         string
	ElectionID ID
	Counts     []uint64
	Subset     []int
	Proof      []byte
	Created    time.Time
}

// Election is the base record of a voting procedure. The tally references stay
// empty until the coordinator, respectively the combiner, set them. The
// lifecycle phase is never stored: it is derived from the timestamps and the
// presence of tally and share data.
type Election struct {
	ID          ID
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Public      bool

	// Quorum is the number of guardian shares sufficient to reconstruct the
	// decryption, out of NumGuardians total.
	Quorum       int
	NumGuardians int

	JointKey       []byte
	CommitmentHash []byte
	Manifest       string

	Choices []Choice
	Voters  []string
	Admins  []string

	EncryptedTallyID string
	CombinedTallyID  string
}

// Validate checks the structural invariants of an election record.
func (e Election) Validate() error {
	if e.ID == "" {
		return NewValidationError("election id is empty")
	}

	if e.Quorum < 1 || e.Quorum > e.NumGuardians {
		return NewValidationError("quorum %d out of range 1..%d",
			e.Quorum, e.NumGuardians)
	}

	if !e.Start.Before(e.End) {
		return NewValidationError("election ends before it starts")
	}

	if len(e.Choices) == 0 {
		return NewValidationError("election has no choices")
	}

	return nil
}

// Finalized returns true once every choice carries a decrypted total.
func (e Election) Finalized() bool {
	if len(e.Choices) == 0 {
		return false
	}

	for _, c := range e.Choices {
		if c.TotalVotes == nil {
			return false
		}
	}

	return true
}

// HasVoter checks if an identity is on the explicit voter roster.
func (e Election) HasVoter(identity string) bool {
	return contains(e.Voters, identity)
}

// HasAdmin checks if an identity is on the admin roster.
func (e Election) HasAdmin(identity string) bool {
	return contains(e.Admins, identity)
}

func contains(list []string, identity string) bool {
	for _, member := range list {
		if member == identity {
			return true
		}
	}

	return false
}

// EligibilityRecord is the derived view of what an identity may do on an
// election. It is computed on demand and never persisted.
type EligibilityRecord struct {
	Identity   string
	ElectionID ID
	Voter      bool
	Admin      bool
	Guardian   bool
	HasVoted   bool
}
