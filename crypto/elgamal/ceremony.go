package elgamal

import (
	"crypto/sha256"
	"encoding/binary"

	"go.dedis.ch/kyber/v3/proof/dleq"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// Ceremony is a trusted-dealer stand-in for the distributed key ceremony. It
// deals quorum-of-n key shares, derives the joint public key and the guardian
// descriptors, and computes the partial decryptions a guardian would submit.
// Tests and the demo command use it; a production deployment replaces it with
// a proper DKG.
type Ceremony struct {
	quorum    int
	priShares []*share.PriShare
	pubPoly   *share.PubPoly
	jointKey  []byte
	descs     []types.GuardianDescriptor
}

// NewCeremony deals key shares for the given guardian identities. The
// identity at index i receives sequence order i+1.
func NewCeremony(quorum int, identities []string) (*Ceremony, error) {
	n := len(identities)

	if quorum < 1 || quorum > n {
		return nil, types.NewValidationError("quorum %d out of range 1..%d", quorum, n)
	}

	secret := suite.Scalar().Pick(random.New())
	priPoly := share.NewPriPoly(suite, quorum, secret, random.New())
	pubPoly := priPoly.Commit(suite.Point().Base())

	jointKey, err := pubPoly.Commit().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal joint key: %v", err)
	}

	descs := make([]types.GuardianDescriptor, n)

	for i, identity := range identities {
		pub, err := pubPoly.Eval(i).V.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal guardian key: %v", err)
		}

		h := sha256.New()
		binary.Write(h, binary.BigEndian, int64(i+1))
		h.Write(pub)
		h.Write(jointKey)

		descs[i] = types.GuardianDescriptor{
			Identity:   identity,
			Sequence:   i + 1,
			PublicKey:  pub,
			Commitment: h.Sum(nil),
		}
	}

	return &Ceremony{
		quorum:    quorum,
		priShares: priPoly.Shares(n),
		pubPoly:   pubPoly,
		jointKey:  jointKey,
		descs:     descs,
	}, nil
}

// JointKey returns the marshalled joint public key ballots are encrypted
// against.
func (c *Ceremony) JointKey() []byte {
	return c.jointKey
}

// CommitmentHash returns a digest binding the joint key to every guardian
// commitment.
func (c *Ceremony) CommitmentHash() []byte {
	h := sha256.New()
	h.Write(c.jointKey)

	for _, desc := range c.descs {
		h.Write(desc.Commitment)
	}

	return h.Sum(nil)
}

// Descriptors returns the guardian descriptors in ascending sequence order.
func (c *Ceremony) Descriptors() []types.GuardianDescriptor {
	return c.descs
}

// ComputeShare computes the partial decryption of the tally for the guardian
// with the given sequence order, with one DLEQ proof per choice.
func (c *Ceremony) ComputeShare(sequence int,
	tally types.EncryptedTally) (types.DecryptionShare, error) {

	if sequence < 1 || sequence > len(c.priShares) {
		return types.DecryptionShare{}, xerrors.Errorf(
			"sequence %d out of range 1..%d", sequence, len(c.priShares))
	}

	x := c.priShares[sequence-1].V

	points := make([][]byte, len(tally.Ciphertexts))
	proofs := make([][]byte, len(tally.Ciphertexts))

	for i, ct := range tally.Ciphertexts {
		K := suite.Point()

		err := K.UnmarshalBinary(ct.K)
		if err != nil {
			return types.DecryptionShare{}, xerrors.Errorf(
				"failed to unmarshal tally point: %v", err)
		}

		proof, _, U, err := dleq.NewDLEQProof(suite, suite.Point().Base(), K, x)
		if err != nil {
			return types.DecryptionShare{}, xerrors.Errorf(
				"failed to build DLEQ proof: %v", err)
		}

		points[i], err = U.MarshalBinary()
		if err != nil {
			return types.DecryptionShare{}, xerrors.Errorf(
				"failed to marshal share point: %v", err)
		}

		proofs[i], err = marshalProof(proof)
		if err != nil {
			return types.DecryptionShare{}, xerrors.Errorf(
				"failed to marshal proof: %v", err)
		}
	}

	return types.DecryptionShare{
		Sequence: sequence,
		Points:   points,
		Proofs:   proofs,
	}, nil
}
