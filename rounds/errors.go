package rounds

import "errors"

var (
	// ErrInvalidPhase is returned when an operation is not legal in the
	// round's current phase.
	ErrInvalidPhase = errors.New("operation not legal in current round phase")
	// ErrMaxProposalsReached is returned when a round already holds the
	// maximum number of proposals.
	ErrMaxProposalsReached = errors.New("maximum number of proposals reached")
	// ErrInvalidProposalID is returned when a vote targets a proposal that
	// does not exist in the round.
	ErrInvalidProposalID = errors.New("invalid proposal id")
	// ErrAlreadyVoted is returned when a voter already holds a receipt for
	// the round.
	ErrAlreadyVoted = errors.New("voter already cast a ballot in this round")
	// ErrInvalidRound is returned when the round identifier is stale,
	// future, or otherwise not the one the operation requires.
	ErrInvalidRound = errors.New("invalid round id")
	// ErrReceiptMismatch is returned when a claimed ciphertext differs from
	// the voter's stored receipt.
	ErrReceiptMismatch = errors.New("claimed ciphertext does not match stored receipt")
	// ErrComputationAborted is returned when the computation engine aborted
	// the request backing an operation.
	ErrComputationAborted = errors.New("computation aborted")
	// ErrUnauthorized is returned when a caller other than the authority
	// invokes an authority-only operation.
	ErrUnauthorized = errors.New("caller is not the round authority")
	// ErrTallyBusy is returned when a tally-mutating request is issued
	// while another one is still in flight for the round.
	ErrTallyBusy = errors.New("a tally computation is already in flight for this round")
)
