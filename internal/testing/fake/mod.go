// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed
// by the unit test and it is also possible to record the call of functions of
// an object in some cases.
package fake

import (
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage"
)

// Call is a tool to keep track of a function calls.
type Call struct {
	calls [][]interface{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.calls = append(c.calls, args)
}

// Engine is a fake implementation of crypto.Engine.
//
// - implements crypto.Engine
type Engine struct {
	Tally types.EncryptedTally
	Plain types.PlaintextTally

	ErrAggregate error
	ErrVerify    error
	ErrCombine   error
	ErrProof     error

	AggregateCall *Call
	CombineCall   *Call
}

// NewEngine returns a fake engine recording its calls.
func NewEngine() *Engine {
	return &Engine{
		AggregateCall: &Call{},
		CombineCall:   &Call{},
	}
}

// AggregateCiphertexts implements crypto.Engine.
func (e *Engine) AggregateCiphertexts(ballots []types.Ballot,
	numChoices int) (types.EncryptedTally, error) {

	e.AggregateCall.Add(ballots, numChoices)

	if e.ErrAggregate != nil {
		return types.EncryptedTally{}, e.ErrAggregate
	}

	tally := e.Tally
	if tally.ID == "" {
		tally.ID = "fake-tally"
	}

	tally.BallotCount = len(ballots)

	return tally, nil
}

// VerifyShareProof implements crypto.Engine.
func (e *Engine) VerifyShareProof(guardian types.Guardian,
	tally types.EncryptedTally, ds types.DecryptionShare) error {

	return e.ErrVerify
}

// CombineShares implements crypto.Engine.
func (e *Engine) CombineShares(tally types.EncryptedTally,
	shares []types.DecryptionShare) (types.PlaintextTally, error) {

	e.CombineCall.Add(tally, shares)

	if e.ErrCombine != nil {
		return types.PlaintextTally{}, e.ErrCombine
	}

	plain := e.Plain
	if plain.ID == "" {
		plain.ID = "fake-combined"
	}

	plain.Subset = nil
	for _, ds := range shares {
		plain.Subset = append(plain.Subset, ds.Sequence)
	}

	return plain, nil
}

// VerifyCombinationProof implements crypto.Engine.
func (e *Engine) VerifyCombinationProof(tally types.EncryptedTally,
	shares []types.DecryptionShare, plain types.PlaintextTally) error {

	return e.ErrProof
}

// Store wraps a real store and injects errors on selected operations.
//
// - implements storage.Store
type Store struct {
	storage.Store

	ErrGetBallots        error
	ErrSetEncryptedTally error
	ErrSetPlaintextTally error
}

// GetBallots implements storage.Store.
func (s Store) GetBallots(id types.ID) ([]types.Ballot, error) {
	if s.ErrGetBallots != nil {
		return nil, s.ErrGetBallots
	}

	return s.Store.GetBallots(id)
}

// SetEncryptedTally implements storage.Store.
func (s Store) SetEncryptedTally(id types.ID, tally types.EncryptedTally) error {
	if s.ErrSetEncryptedTally != nil {
		return s.ErrSetEncryptedTally
	}

	return s.Store.SetEncryptedTally(id, tally)
}

// SetPlaintextTally implements storage.Store.
func (s Store) SetPlaintextTally(id types.ID, tally types.PlaintextTally) error {
	if s.ErrSetPlaintextTally != nil {
		return s.ErrSetPlaintextTally
	}

	return s.Store.SetPlaintextTally(id, tally)
}
