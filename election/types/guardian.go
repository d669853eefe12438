package types

import "time"

// DefaultMaxProofFailures bounds how many times a guardian may retry a share
// whose proof failed verification before being locked out.
const DefaultMaxProofFailures = 3

// GuardianDescriptor is the ceremony-time description of a guardian, before
// any submission state exists.
type GuardianDescriptor struct {
	Identity   string
	Sequence   int
	PublicKey  []byte
	Commitment []byte
}

// Guardian tracks a custodian of one share of the election's decryption
// capability. Submitted is monotonic: it flips to true exactly when a share
// and its proof are accepted, and is never reversed.
type Guardian struct {
	ElectionID ID
	Identity   string

	// Sequence is the share index of the guardian, 1..n, unique per election.
	Sequence int

	PublicKey  []byte
	Commitment []byte

	Submitted   bool
	Share       *DecryptionShare
	SubmittedAt *time.Time

	// ProofFailures counts rejected submission attempts. A failed proof does
	// not set Submitted, so the guardian may retry with a corrected share
	// until the lockout threshold is reached.
	ProofFailures int
}

// LockedOut returns true once the guardian has exhausted the allowed proof
// failures without a successful submission.
func (g Guardian) LockedOut(max int) bool {
	return !g.Submitted && g.ProofFailures >= max
}
