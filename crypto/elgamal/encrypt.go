package elgamal

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// EncryptBallot encrypts a vote for the given choice index under the joint
// public key. The ballot is a unit vector encrypted choice by choice as
// exponential ElGamal, so the ciphertexts of all ballots aggregate by point
// addition and the decrypted sums are the per-choice counts.
func EncryptBallot(jointKey []byte, numChoices, choice int) ([]types.Ciphertext, error) {
	if choice < 0 || choice >= numChoices {
		return nil, xerrors.Errorf("choice %d out of range 0..%d", choice, numChoices-1)
	}

	pub := suite.Point()

	err := pub.UnmarshalBinary(jointKey)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal joint key: %v", err)
	}

	cts := make([]types.Ciphertext, numChoices)

	for i := 0; i < numChoices; i++ {
		r := suite.Scalar().Pick(random.New()) // ephemeral private key
		K := suite.Point().Mul(r, nil)         // ephemeral DH public key
		S := suite.Point().Mul(r, pub)         // ephemeral DH shared secret

		var M kyber.Point
		if i == choice {
			M = suite.Point().Base()
		} else {
			M = suite.Point().Null()
		}

		C := suite.Point().Add(S, M) // vote blinded with secret

		ct, err := marshalCiphertext(K, C)
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal ciphertext: %v", err)
		}

		cts[i] = ct
	}

	return cts, nil
}
