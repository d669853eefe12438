package main

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/scrutin/crypto/elgamal"
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// demoAction drives a complete election through the coordination core: it
// deals the guardian keys with the trusted-dealer ceremony, opens an election,
// casts encrypted ballots, creates the tally after the end, submits a quorum
// of partial decryptions and prints the combined results.
func demoAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	quorum := c.Int("quorum")
	numGuardians := c.Int("guardians")
	numBallots := c.Int("ballots")

	identities := make([]string, numGuardians)
	for i := range identities {
		identities[i] = fmt.Sprintf("guardian-%d", i+1)
	}

	ceremony, err := elgamal.NewCeremony(quorum, identities)
	if err != nil {
		return xerrors.Errorf("failed to run ceremony: %v", err)
	}

	voters := make([]string, numBallots)
	for i := range voters {
		voters[i] = fmt.Sprintf("voter-%d", i+1)
	}

	start := time.Now().Add(-time.Hour)
	end := start.Add(30 * time.Minute)

	e := types.Election{
		ID:             types.ID(xid.New().String()),
		Title:          "demo election",
		Start:          start,
		End:            end,
		Quorum:         quorum,
		NumGuardians:   numGuardians,
		JointKey:       ceremony.JointKey(),
		CommitmentHash: ceremony.CommitmentHash(),
		Choices: []types.Choice{
			{ID: "a", Name: "Alice", Party: "Apples"},
			{ID: "b", Name: "Bob", Party: "Bananas"},
			{ID: "c", Name: "Charlie", Party: "Cherries"},
		},
		Voters: voters,
	}

	err = srvc.CreateElection(e)
	if err != nil {
		return xerrors.Errorf("failed to create election: %v", err)
	}

	err = srvc.Registry().Register(e.ID, ceremony.Descriptors())
	if err != nil {
		return xerrors.Errorf("failed to register guardians: %v", err)
	}

	// Cast from inside the voting window, then jump past the end for the
	// tally operations.
	srvc.SetClock(func() time.Time { return start.Add(time.Minute) })

	for i, voter := range voters {
		cts, err := elgamal.EncryptBallot(e.JointKey, len(e.Choices),
			i%len(e.Choices))
		if err != nil {
			return xerrors.Errorf("failed to encrypt ballot: %v", err)
		}

		err = srvc.CastBallot(voter, e.ID, cts)
		if err != nil {
			return xerrors.Errorf("failed to cast ballot: %v", err)
		}
	}

	srvc.SetClock(time.Now)

	tally, err := srvc.CreateTally(e.ID)
	if err != nil {
		return xerrors.Errorf("failed to create tally: %v", err)
	}

	fmt.Fprintf(c.App.Writer, "encrypted tally %s over %d ballots\n",
		tally.ID, tally.BallotCount)

	for i := 0; i < quorum; i++ {
		ds, err := ceremony.ComputeShare(i+1, tally)
		if err != nil {
			return xerrors.Errorf("failed to compute share: %v", err)
		}

		err = srvc.SubmitGuardianShare(e.ID, identities[i], ds)
		if err != nil {
			return xerrors.Errorf("failed to submit share: %v", err)
		}
	}

	plain, err := srvc.CombinePartialDecryptions(e.ID)
	if err != nil {
		return xerrors.Errorf("failed to combine: %v", err)
	}

	fmt.Fprintf(c.App.Writer, "combined from guardians %v\n", plain.Subset)

	results, err := srvc.GetResults(e.ID)
	if err != nil {
		return xerrors.Errorf("failed to get results: %v", err)
	}

	return printJSON(c, results)
}
