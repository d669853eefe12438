package tally

import (
	"go.dedis.ch/scrutin/election/types"
	"golang.org/x/xerrors"
)

// ChoiceResult is the decrypted outcome of one choice.
type ChoiceResult struct {
	ID      string
	Name    string
	Party   string
	Votes   uint64
	Percent float64
}

// Results is the read-only view reconciling the combined tally with the
// ballot and voter counts.
type Results struct {
	ElectionID  types.ID
	Choices     []ChoiceResult
	TotalVotes  uint64
	BallotCount int
	Turnout     float64

	// NeedsDecryption signals that the visible per-choice sum does not yet
	// match the count of cast ballots, so a combination request is still
	// pending somewhere.
	NeedsDecryption bool
}

// GetResults computes the per-choice totals, percentages and turnout of a
// combined election. The per-choice totals are also written into the election
// record, once; that write is what moves the derived phase to Finalized.
func (s *Service) GetResults(id types.ID) (Results, error) {
	e, err := s.store.GetElection(id)
	if err != nil {
		return Results{}, xerrors.Errorf("failed to get election: %w", err)
	}

	if e.CombinedTallyID == "" {
		return Results{}, types.NewStateError(
			"results require a combined tally")
	}

	plain, err := s.store.GetPlaintextTally(id)
	if err != nil {
		return Results{}, xerrors.Errorf("failed to get combined tally: %w", err)
	}

	if len(plain.Counts) != len(e.Choices) {
		return Results{}, types.NewValidationError(
			"combined tally has %d counts for %d choices",
			len(plain.Counts), len(e.Choices))
	}

	ballots, err := s.store.GetBallots(id)
	if err != nil {
		return Results{}, xerrors.Errorf("failed to get ballots: %w", err)
	}

	var total uint64
	for _, count := range plain.Counts {
		total += count
	}

	choices := make([]ChoiceResult, len(e.Choices))

	for i, choice := range e.Choices {
		percent := 0.0
		if total > 0 {
			percent = float64(plain.Counts[i]) / float64(total)
		}

		choices[i] = ChoiceResult{
			ID:      choice.ID,
			Name:    choice.Name,
			Party:   choice.Party,
			Votes:   plain.Counts[i],
			Percent: percent,
		}
	}

	turnout := 0.0
	if len(e.Voters) > 0 {
		turnout = float64(len(ballots)) / float64(len(e.Voters))
	}

	err = s.publishTotals(id, plain.Counts)
	if err != nil {
		return Results{}, err
	}

	return Results{
		ElectionID:      id,
		Choices:         choices,
		TotalVotes:      total,
		BallotCount:     len(ballots),
		Turnout:         turnout,
		NeedsDecryption: total != uint64(len(ballots)),
	}, nil
}

// publishTotals writes the decrypted counts into the choice records. The
// totals are immutable once written.
func (s *Service) publishTotals(id types.ID, counts []uint64) error {
	err := s.store.UpdateElection(id, func(e *types.Election) error {
		for i := range e.Choices {
			if e.Choices[i].TotalVotes != nil {
				continue
			}

			count := counts[i]
			e.Choices[i].TotalVotes = &count
		}

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to publish totals: %w", err)
	}

	return nil
}
