package types

import "fmt"

// Phase is the lifecycle phase of a voting round. Transitions are monotonic
// and one-directional: Open -> Tallying -> Revealed -> Archived.
type Phase uint8

const (
	// PhaseOpen accepts proposal submissions and votes.
	PhaseOpen Phase = iota
	// PhaseTallying means a reveal computation has been requested and its
	// callback is awaited. No proposals or votes are accepted.
	PhaseTallying
	// PhaseRevealed means the winner is known and the round can be archived.
	PhaseRevealed
	// PhaseArchived is terminal: the history entry has been written and the
	// next round opened.
	PhaseArchived
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseTallying:
		return "tallying"
	case PhaseRevealed:
		return "revealed"
	case PhaseArchived:
		return "archived"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// CanTransition reports whether moving from p to next is a legal forward
// step. Phases are never revisited.
func (p Phase) CanTransition(next Phase) bool {
	return next == p+1 && next <= PhaseArchived
}
