package types

// Status is the time-derived lifecycle stage of an election.
type Status byte

const (
	// StatusUpcoming depicts an election whose start time lies in the future.
	StatusUpcoming Status = iota
	// StatusOngoing depicts an election open for ballot casting. The start
	// instant itself belongs to this stage.
	StatusOngoing
	// StatusCompleted depicts an election whose end time has passed. The end
	// instant itself belongs to this stage.
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusUpcoming:
		return "Upcoming"
	case StatusOngoing:
		return "Ongoing"
	case StatusCompleted:
		return "Completed"
	default:
		return "UNKNOWN"
	}
}

// TallyPhase is the derived stage of the tallying lifecycle. Phases change as
// follow:
//
//	Scheduled ─► Ongoing ─► Ended ─► TallyCreated ─► AwaitingQuorum ─► Combined ─► Finalized
//	                                        │
//	                                        └──► InsufficientGuardians
//
// The phase is recomputed from the stored record on every call, never stored,
// so derived and stored state cannot drift apart.
type TallyPhase byte

const (
	// PhaseScheduled maps to StatusUpcoming.
	PhaseScheduled TallyPhase = iota
	// PhaseOngoing maps to StatusOngoing.
	PhaseOngoing
	// PhaseEnded means voting closed but no encrypted tally exists yet.
	PhaseEnded
	// PhaseTallyCreated means the encrypted tally exists and no guardian has
	// submitted a share yet.
	PhaseTallyCreated
	// PhaseAwaitingQuorum means shares are arriving but the combination has
	// not been performed.
	PhaseAwaitingQuorum
	// PhaseCombined means the combined plaintext tally exists.
	PhaseCombined
	// PhaseFinalized means the per-choice totals have been published.
	PhaseFinalized
	// PhaseInsufficientGuardians is the terminal failure phase: locked-out
	// guardians make the quorum unreachable.
	PhaseInsufficientGuardians
)

func (p TallyPhase) String() string {
	switch p {
	case PhaseScheduled:
		return "Scheduled"
	case PhaseOngoing:
		return "Ongoing"
	case PhaseEnded:
		return "Ended"
	case PhaseTallyCreated:
		return "TallyCreated"
	case PhaseAwaitingQuorum:
		return "AwaitingQuorum"
	case PhaseCombined:
		return "Combined"
	case PhaseFinalized:
		return "Finalized"
	case PhaseInsufficientGuardians:
		return "InsufficientGuardians"
	default:
		return "UNKNOWN"
	}
}
