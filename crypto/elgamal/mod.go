// Package elgamal implements the cryptographic engine with exponential
// ElGamal over the Ed25519 group. Ballots encrypt a unit vector, one
// ciphertext per choice, so that ciphertexts aggregate by point addition and
// the combined decryption of the sum yields the per-choice counts. Guardian
// partial decryptions carry Chaum-Pedersen (DLEQ) proofs and the combination
// recovers the blinding term with Lagrange interpolation.
package elgamal

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"

	"github.com/rs/xid"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/proof/dleq"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// suite is the Kyber suite used by the engine.
var suite = suites.MustFind("Ed25519")

// Engine implements the cryptographic engine over Ed25519.
//
// - implements crypto.Engine
type Engine struct{}

// NewEngine returns a new ElGamal engine.
func NewEngine() Engine {
	return Engine{}
}

// AggregateCiphertexts implements crypto.Engine. It sums the ballots
// componentwise into one ciphertext pair per choice. An empty ballot set
// yields the identity ciphertexts.
func (Engine) AggregateCiphertexts(ballots []types.Ballot,
	numChoices int) (types.EncryptedTally, error) {

	if numChoices <= 0 {
		return types.EncryptedTally{}, xerrors.New("numChoices must be positive")
	}

	Ks := make([]kyber.Point, numChoices)
	Cs := make([]kyber.Point, numChoices)

	for i := range Ks {
		Ks[i] = suite.Point().Null()
		Cs[i] = suite.Point().Null()
	}

	for _, ballot := range ballots {
		if len(ballot.Ciphertexts) != numChoices {
			return types.EncryptedTally{}, xerrors.Errorf(
				"ballot of '%s' has %d ciphertexts instead of %d",
				ballot.Voter, len(ballot.Ciphertexts), numChoices)
		}

		for i, ct := range ballot.Ciphertexts {
			K, C, err := unmarshalCiphertext(ct)
			if err != nil {
				return types.EncryptedTally{}, xerrors.Errorf(
					"failed to unmarshal ciphertext of '%s': %v", ballot.Voter, err)
			}

			Ks[i] = Ks[i].Add(Ks[i], K)
			Cs[i] = Cs[i].Add(Cs[i], C)
		}
	}

	cts := make([]types.Ciphertext, numChoices)

	for i := range cts {
		ct, err := marshalCiphertext(Ks[i], Cs[i])
		if err != nil {
			return types.EncryptedTally{}, xerrors.Errorf(
				"failed to marshal aggregate: %v", err)
		}

		cts[i] = ct
	}

	return types.EncryptedTally{
		ID:          xid.New().String(),
		Ciphertexts: cts,
		BallotCount: len(ballots),
		Created:     time.Now(),
	}, nil
}

// VerifyShareProof implements crypto.Engine. It checks, for every choice, the
// DLEQ proof that the guardian's partial point was computed with the secret
// behind its public commitment.
func (Engine) VerifyShareProof(guardian types.Guardian,
	tally types.EncryptedTally, ds types.DecryptionShare) error {

	if len(ds.Points) != len(tally.Ciphertexts) ||
		len(ds.Proofs) != len(tally.Ciphertexts) {
		return types.NewCryptoVerificationError(
			"share of guardian %d covers %d choices instead of %d",
			guardian.Sequence, len(ds.Points), len(tally.Ciphertexts))
	}

	pub := suite.Point()

	err := pub.UnmarshalBinary(guardian.PublicKey)
	if err != nil {
		return types.NewCryptoVerificationError(
			"failed to unmarshal guardian public key: %v", err)
	}

	for i, ct := range tally.Ciphertexts {
		K := suite.Point()

		err := K.UnmarshalBinary(ct.K)
		if err != nil {
			return types.NewCryptoVerificationError(
				"failed to unmarshal tally point: %v", err)
		}

		U := suite.Point()

		err = U.UnmarshalBinary(ds.Points[i])
		if err != nil {
			return types.NewCryptoVerificationError(
				"failed to unmarshal share point %d: %v", i, err)
		}

		proof, err := unmarshalProof(ds.Proofs[i])
		if err != nil {
			return types.NewCryptoVerificationError(
				"failed to unmarshal proof %d: %v", i, err)
		}

		err = proof.Verify(suite, suite.Point().Base(), K, pub, U)
		if err != nil {
			return types.NewCryptoVerificationError(
				"share proof %d of guardian %d does not verify: %v",
				i, guardian.Sequence, err)
		}
	}

	return nil
}

// CombineShares implements crypto.Engine. It interpolates the partial points
// of the given shares at zero to recover the blinding term of each aggregated
// ciphertext, unblinds it, and recovers the count by searching the discrete
// log over the 0..BallotCount range.
func (e Engine) CombineShares(tally types.EncryptedTally,
	shares []types.DecryptionShare) (types.PlaintextTally, error) {

	if len(shares) == 0 {
		return types.PlaintextTally{}, xerrors.New("no shares to combine")
	}

	counts := make([]uint64, len(tally.Ciphertexts))

	for i, ct := range tally.Ciphertexts {
		C := suite.Point()

		err := C.UnmarshalBinary(ct.C)
		if err != nil {
			return types.PlaintextTally{}, xerrors.Errorf(
				"failed to unmarshal tally ciphertext %d: %v", i, err)
		}

		pubShares := make([]*share.PubShare, len(shares))

		for j, ds := range shares {
			if len(ds.Points) != len(tally.Ciphertexts) {
				return types.PlaintextTally{}, xerrors.Errorf(
					"share of guardian %d covers %d choices instead of %d",
					ds.Sequence, len(ds.Points), len(tally.Ciphertexts))
			}

			U := suite.Point()

			err := U.UnmarshalBinary(ds.Points[i])
			if err != nil {
				return types.PlaintextTally{}, xerrors.Errorf(
					"failed to unmarshal share point of guardian %d: %v",
					ds.Sequence, err)
			}

			pubShares[j] = &share.PubShare{I: ds.Sequence - 1, V: U}
		}

		blind, err := share.RecoverCommit(suite, pubShares, len(shares), len(shares))
		if err != nil {
			return types.PlaintextTally{}, xerrors.Errorf(
				"failed to recover commit: %v", err)
		}

		M := suite.Point().Sub(C, blind)

		count, err := recoverCount(M, tally.BallotCount)
		if err != nil {
			return types.PlaintextTally{}, types.NewCryptoVerificationError(
				"choice %d does not decrypt to a count: %v", i, err)
		}

		counts[i] = count
	}

	subset := make([]int, len(shares))
	for i, ds := range shares {
		subset[i] = ds.Sequence
	}

	sort.Ints(subset)

	return types.PlaintextTally{
		ID:         xid.New().String(),
		ElectionID: tally.ElectionID,
		Counts:     counts,
		Subset:     subset,
		Proof:      combinationDigest(tally, shares, counts),
		Created:    time.Now(),
	}, nil
}

// VerifyCombinationProof implements crypto.Engine. It re-verifies every share
// proof, recombines the shares and checks that the counts and the combination
// digest match the published result.
func (e Engine) VerifyCombinationProof(tally types.EncryptedTally,
	shares []types.DecryptionShare, plain types.PlaintextTally) error {

	recombined, err := e.CombineShares(tally, shares)
	if err != nil {
		return types.NewCryptoVerificationError(
			"failed to recombine shares: %v", err)
	}

	if len(recombined.Counts) != len(plain.Counts) {
		return types.NewCryptoVerificationError(
			"combined result has %d counts instead of %d",
			len(plain.Counts), len(recombined.Counts))
	}

	for i, count := range recombined.Counts {
		if plain.Counts[i] != count {
			return types.NewCryptoVerificationError(
				"count of choice %d diverges from the reconstruction", i)
		}
	}

	digest := combinationDigest(tally, shares, plain.Counts)
	if !bytes.Equal(digest, plain.Proof) {
		return types.NewCryptoVerificationError(
			"combination digest does not match the published result")
	}

	return nil
}

// recoverCount searches the discrete log of M over the 0..max range. The
// range is bounded by the number of cast ballots, so the walk stays cheap.
func recoverCount(M kyber.Point, max int) (uint64, error) {
	acc := suite.Point().Null()
	base := suite.Point().Base()

	for i := 0; i <= max; i++ {
		if acc.Equal(M) {
			return uint64(i), nil
		}

		acc = acc.Add(acc, base)
	}

	return 0, xerrors.Errorf("no count in 0..%d", max)
}

// combinationDigest commits to the inputs and output of one reconstruction so
// that the published result is tied to a specific, auditable subset.
func combinationDigest(tally types.EncryptedTally,
	shares []types.DecryptionShare, counts []uint64) []byte {

	h := sha256.New()
	h.Write([]byte(tally.ID))

	for _, ct := range tally.Ciphertexts {
		h.Write(ct.K)
		h.Write(ct.C)
	}

	for _, ds := range shares {
		binary.Write(h, binary.BigEndian, int64(ds.Sequence))

		for _, p := range ds.Points {
			h.Write(p)
		}
	}

	for _, count := range counts {
		binary.Write(h, binary.BigEndian, count)
	}

	return h.Sum(nil)
}

func marshalCiphertext(K, C kyber.Point) (types.Ciphertext, error) {
	kbuf, err := K.MarshalBinary()
	if err != nil {
		return types.Ciphertext{}, xerrors.Errorf("failed to marshal K: %v", err)
	}

	cbuf, err := C.MarshalBinary()
	if err != nil {
		return types.Ciphertext{}, xerrors.Errorf("failed to marshal C: %v", err)
	}

	return types.Ciphertext{K: kbuf, C: cbuf}, nil
}

func unmarshalCiphertext(ct types.Ciphertext) (K, C kyber.Point, err error) {
	K = suite.Point()

	err = K.UnmarshalBinary(ct.K)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to unmarshal K: %v", err)
	}

	C = suite.Point()

	err = C.UnmarshalBinary(ct.C)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to unmarshal C: %v", err)
	}

	return K, C, nil
}

// marshalProof serializes a DLEQ proof as C || R || VG || VH with the fixed
// scalar and point lengths of the suite.
func marshalProof(p *dleq.Proof) ([]byte, error) {
	buf := new(bytes.Buffer)

	for _, s := range []kyber.Scalar{p.C, p.R} {
		b, err := s.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal scalar: %v", err)
		}

		buf.Write(b)
	}

	for _, pt := range []kyber.Point{p.VG, p.VH} {
		b, err := pt.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal point: %v", err)
		}

		buf.Write(b)
	}

	return buf.Bytes(), nil
}

func unmarshalProof(data []byte) (*dleq.Proof, error) {
	slen := suite.ScalarLen()
	plen := suite.PointLen()

	if len(data) != 2*slen+2*plen {
		return nil, xerrors.Errorf("invalid proof length %d", len(data))
	}

	p := &dleq.Proof{
		C:  suite.Scalar(),
		R:  suite.Scalar(),
		VG: suite.Point(),
		VH: suite.Point(),
	}

	err := p.C.UnmarshalBinary(data[:slen])
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal C: %v", err)
	}

	err = p.R.UnmarshalBinary(data[slen : 2*slen])
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal R: %v", err)
	}

	err = p.VG.UnmarshalBinary(data[2*slen : 2*slen+plen])
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal VG: %v", err)
	}

	err = p.VH.UnmarshalBinary(data[2*slen+plen:])
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal VH: %v", err)
	}

	return p, nil
}
