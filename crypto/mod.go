// Package crypto defines the cryptographic engine the coordination core
// delegates to. The core never performs group arithmetic itself: it supplies
// ballots and shares, and persists whatever the engine returns.
package crypto

import (
	"go.dedis.ch/scrutin/election/types"
)

// Engine provides homomorphic aggregation of encrypted ballots, verification
// of guardian partial-decryption proofs, and threshold combination of a
// quorum of shares into the plaintext tally.
type Engine interface {
	// AggregateCiphertexts homomorphically sums the accepted ballots into one
	// ciphertext per choice. It must accept an empty ballot set.
	AggregateCiphertexts(ballots []types.Ballot, numChoices int) (types.EncryptedTally, error)

	// VerifyShareProof checks a guardian's partial decryption of the tally
	// against the guardian's known public commitment. A failure returns a
	// types.CryptoVerificationError and the share must be discarded.
	VerifyShareProof(guardian types.Guardian, tally types.EncryptedTally,
		share types.DecryptionShare) error

	// CombineShares reconstructs the plaintext tally from a quorum-sized
	// subset of shares using Lagrange interpolation. Any quorum-sized subset
	// must reconstruct the identical result.
	CombineShares(tally types.EncryptedTally,
		shares []types.DecryptionShare) (types.PlaintextTally, error)

	// VerifyCombinationProof checks that a combined result is tied to the
	// given tally and shares. A failure returns a
	// types.CryptoVerificationError and nothing may be persisted.
	VerifyCombinationProof(tally types.EncryptedTally,
		shares []types.DecryptionShare, plain types.PlaintextTally) error
}
