package elgamal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/scrutin/election/types"
)

func TestEngine_AggregateCiphertexts(t *testing.T) {
	ceremony, err := NewCeremony(2, []string{"g1", "g2", "g3"})
	require.NoError(t, err)

	ballots := makeBallots(t, ceremony.JointKey(), 3, []int{0, 2, 2})

	tally, err := NewEngine().AggregateCiphertexts(ballots, 3)
	require.NoError(t, err)
	require.NotEmpty(t, tally.ID)
	require.Equal(t, 3, tally.BallotCount)
	require.Len(t, tally.Ciphertexts, 3)
}

func TestEngine_AggregateCiphertexts_Empty(t *testing.T) {
	tally, err := NewEngine().AggregateCiphertexts(nil, 2)
	require.NoError(t, err)
	require.Equal(t, 0, tally.BallotCount)
	require.Len(t, tally.Ciphertexts, 2)

	_, err = NewEngine().AggregateCiphertexts(nil, 0)
	require.EqualError(t, err, "numChoices must be positive")
}

func TestEngine_AggregateCiphertexts_BadBallot(t *testing.T) {
	ballots := []types.Ballot{{
		Voter:       "alice",
		Ciphertexts: []types.Ciphertext{{K: []byte{1}, C: []byte{2}}},
	}}

	_, err := NewEngine().AggregateCiphertexts(ballots, 2)
	require.EqualError(t, err,
		"ballot of 'alice' has 1 ciphertexts instead of 2")

	ballots[0].Ciphertexts = append(ballots[0].Ciphertexts,
		types.Ciphertext{K: []byte{1}, C: []byte{2}})

	_, err = NewEngine().AggregateCiphertexts(ballots, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal ciphertext of 'alice'")
}

func TestEngine_Roundtrip(t *testing.T) {
	engine := NewEngine()

	ceremony, err := NewCeremony(3, []string{"g1", "g2", "g3", "g4", "g5"})
	require.NoError(t, err)

	// 7 ballots over 3 choices: 3 for choice 0, 2 for choice 1, 2 for
	// choice 2.
	votes := []int{0, 0, 0, 1, 1, 2, 2}
	ballots := makeBallots(t, ceremony.JointKey(), 3, votes)

	tally, err := engine.AggregateCiphertexts(ballots, 3)
	require.NoError(t, err)

	shares := makeShares(t, ceremony, tally, []int{1, 2, 3})

	for i, ds := range shares {
		g := types.Guardian{
			Sequence:  ds.Sequence,
			PublicKey: ceremony.Descriptors()[i].PublicKey,
		}

		require.NoError(t, engine.VerifyShareProof(g, tally, ds))
	}

	plain, err := engine.CombineShares(tally, shares)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 2, 2}, plain.Counts)
	require.Equal(t, []int{1, 2, 3}, plain.Subset)

	require.NoError(t, engine.VerifyCombinationProof(tally, shares, plain))
}

func TestEngine_CombineShares_SubsetIndependent(t *testing.T) {
	engine := NewEngine()

	ceremony, err := NewCeremony(3, []string{"g1", "g2", "g3", "g4", "g5"})
	require.NoError(t, err)

	ballots := makeBallots(t, ceremony.JointKey(), 2, []int{0, 1, 1, 1})

	tally, err := engine.AggregateCiphertexts(ballots, 2)
	require.NoError(t, err)

	// Any quorum-sized subset of guardians reconstructs the same counts.
	first, err := engine.CombineShares(tally, makeShares(t, ceremony, tally,
		[]int{1, 2, 3}))
	require.NoError(t, err)

	second, err := engine.CombineShares(tally, makeShares(t, ceremony, tally,
		[]int{2, 4, 5}))
	require.NoError(t, err)

	require.Equal(t, []uint64{1, 3}, first.Counts)
	require.Equal(t, first.Counts, second.Counts)
	require.Equal(t, []int{2, 4, 5}, second.Subset)
}

func TestEngine_VerifyShareProof_Corrupted(t *testing.T) {
	engine := NewEngine()

	ceremony, err := NewCeremony(2, []string{"g1", "g2", "g3"})
	require.NoError(t, err)

	ballots := makeBallots(t, ceremony.JointKey(), 2, []int{0, 1})

	tally, err := engine.AggregateCiphertexts(ballots, 2)
	require.NoError(t, err)

	shares := makeShares(t, ceremony, tally, []int{1, 2})

	g := types.Guardian{
		Sequence:  1,
		PublicKey: ceremony.Descriptors()[0].PublicKey,
	}

	require.NoError(t, engine.VerifyShareProof(g, tally, shares[0]))

	// A share point swapped for another guardian's no longer matches the
	// proof transcript.
	corrupted := shares[0]
	corrupted.Points = shares[1].Points

	err = engine.VerifyShareProof(g, tally, corrupted)

	var cve types.CryptoVerificationError
	require.ErrorAs(t, err, &cve)

	// A share covering the wrong number of choices is rejected outright.
	short := shares[0]
	short.Points = short.Points[:1]

	err = engine.VerifyShareProof(g, tally, short)
	require.ErrorAs(t, err, &cve)
}

func TestEngine_CombineShares_NoShares(t *testing.T) {
	_, err := NewEngine().CombineShares(types.EncryptedTally{}, nil)
	require.EqualError(t, err, "no shares to combine")
}

func TestEngine_VerifyCombinationProof_Tampered(t *testing.T) {
	engine := NewEngine()

	ceremony, err := NewCeremony(2, []string{"g1", "g2", "g3"})
	require.NoError(t, err)

	ballots := makeBallots(t, ceremony.JointKey(), 2, []int{0, 0, 1})

	tally, err := engine.AggregateCiphertexts(ballots, 2)
	require.NoError(t, err)

	shares := makeShares(t, ceremony, tally, []int{1, 3})

	plain, err := engine.CombineShares(tally, shares)
	require.NoError(t, err)
	require.NoError(t, engine.VerifyCombinationProof(tally, shares, plain))

	tampered := plain
	tampered.Counts = []uint64{3, 0}

	err = engine.VerifyCombinationProof(tally, shares, tampered)

	var cve types.CryptoVerificationError
	require.ErrorAs(t, err, &cve)
}

func TestEncryptBallot_BadInput(t *testing.T) {
	_, err := EncryptBallot(nil, 2, 2)
	require.EqualError(t, err, "choice 2 out of range 0..1")

	_, err = EncryptBallot([]byte{1, 2, 3}, 2, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal joint key")
}

func TestCeremony_New(t *testing.T) {
	_, err := NewCeremony(4, []string{"g1", "g2", "g3"})
	require.EqualError(t, err, "validation error: quorum 4 out of range 1..3")

	ceremony, err := NewCeremony(2, []string{"g1", "g2", "g3"})
	require.NoError(t, err)

	descs := ceremony.Descriptors()
	require.Len(t, descs, 3)

	for i, desc := range descs {
		require.Equal(t, i+1, desc.Sequence)
		require.NotEmpty(t, desc.PublicKey)
		require.NotEmpty(t, desc.Commitment)
	}

	require.NotEmpty(t, ceremony.JointKey())
	require.NotEmpty(t, ceremony.CommitmentHash())
}

func TestCeremony_ComputeShare_BadSequence(t *testing.T) {
	ceremony, err := NewCeremony(2, []string{"g1", "g2", "g3"})
	require.NoError(t, err)

	_, err = ceremony.ComputeShare(0, types.EncryptedTally{})
	require.EqualError(t, err, "sequence 0 out of range 1..3")

	_, err = ceremony.ComputeShare(4, types.EncryptedTally{})
	require.EqualError(t, err, "sequence 4 out of range 1..3")
}

func TestUnmarshalProof_BadLength(t *testing.T) {
	_, err := unmarshalProof([]byte{1, 2, 3})
	require.EqualError(t, err, "invalid proof length 3")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeBallots(t *testing.T, jointKey []byte, numChoices int,
	votes []int) []types.Ballot {

	ballots := make([]types.Ballot, len(votes))

	for i, vote := range votes {
		cts, err := EncryptBallot(jointKey, numChoices, vote)
		require.NoError(t, err)

		ballots[i] = types.Ballot{
			Voter:       string(rune('a' + i)),
			Ciphertexts: cts,
			Cast:        time.Now(),
		}
	}

	return ballots
}

func makeShares(t *testing.T, ceremony *Ceremony, tally types.EncryptedTally,
	sequences []int) []types.DecryptionShare {

	shares := make([]types.DecryptionShare, len(sequences))

	for i, sequence := range sequences {
		ds, err := ceremony.ComputeShare(sequence, tally)
		require.NoError(t, err)

		shares[i] = ds
	}

	return shares
}
