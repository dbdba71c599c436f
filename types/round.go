package types

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Round is one complete propose-vote-reveal-archive cycle. Rounds are
// strictly sequential; at most one round is in a non-archived phase at any
// time.
type Round struct {
	ID            uint64    `json:"id"            cbor:"0,keyasint"`
	Phase         Phase     `json:"phase"         cbor:"1,keyasint"`
	ProposalCount uint8     `json:"proposalCount" cbor:"2,keyasint"`
	VoterCount    uint64    `json:"voterCount"    cbor:"3,keyasint"`
	OpenedAt      time.Time `json:"openedAt"      cbor:"4,keyasint"`
	// Winner holds the declassified result between reveal and archive.
	// It is cleared by Archive once the history entry is written.
	Winner *Winner `json:"winner,omitempty" cbor:"5,keyasint,omitempty"`
}

// Winner is the declassified outcome of a reveal computation.
type Winner struct {
	ProposalID uint8          `json:"proposalId" cbor:"0,keyasint"`
	VoteCount  uint64         `json:"voteCount"  cbor:"1,keyasint"`
	RevealedAt time.Time      `json:"revealedAt" cbor:"2,keyasint"`
	RevealedBy common.Address `json:"revealedBy" cbor:"3,keyasint"`
}

func (r *Round) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// Proposal is a publicly submitted proposal within a round. VoteCount is
// informational only and never derived from the encrypted tally while the
// round is live.
type Proposal struct {
	ID          uint8          `json:"id"          cbor:"0,keyasint"`
	RoundID     uint64         `json:"roundId"     cbor:"1,keyasint"`
	Submitter   common.Address `json:"submitter"   cbor:"2,keyasint"`
	Title       string         `json:"title"       cbor:"3,keyasint"`
	Description string         `json:"description" cbor:"4,keyasint"`
	URL         string         `json:"url,omitempty" cbor:"5,keyasint,omitempty"`
	VoteCount   uint64         `json:"voteCount"   cbor:"6,keyasint"`
	SubmittedAt time.Time      `json:"submittedAt" cbor:"7,keyasint"`
}

// VoteReceipt is the durable proof that a voter cast exactly one ballot in a
// round. Only the encrypted choice is persisted; the plaintext is never
// stored here.
type VoteReceipt struct {
	Voter           common.Address `json:"voter"           cbor:"0,keyasint"`
	RoundID         uint64         `json:"roundId"         cbor:"1,keyasint"`
	EncryptedChoice Ciphertext     `json:"encryptedChoice" cbor:"2,keyasint"`
	PublicKey       HexBytes       `json:"publicKey"       cbor:"3,keyasint"`
	Nonce           Nonce          `json:"nonce"           cbor:"4,keyasint"`
	CastAt          time.Time      `json:"castAt"          cbor:"5,keyasint"`
	// Folded is set once the ballot has been folded into the encrypted
	// tally. A folded ballot is never submitted to the engine again.
	Folded bool `json:"folded,omitempty" cbor:"6,keyasint,omitempty"`
}

// RoundHistory is the append-only record of a closed round. Once written it
// is the sole persistent record of the round's winner.
type RoundHistory struct {
	RoundID        uint64         `json:"roundId"        cbor:"0,keyasint"`
	WinningID      uint8          `json:"winningProposalId" cbor:"1,keyasint"`
	WinningVotes   uint64         `json:"winningVotes"   cbor:"2,keyasint"`
	TotalProposals uint8          `json:"totalProposals" cbor:"3,keyasint"`
	TotalVoters    uint64         `json:"totalVoters"    cbor:"4,keyasint"`
	RevealedAt     time.Time      `json:"revealedAt"     cbor:"5,keyasint"`
	RevealedBy     common.Address `json:"revealedBy"     cbor:"6,keyasint"`
	ArchivedAt     time.Time      `json:"archivedAt"     cbor:"7,keyasint"`
}

// EscrowStatus is the lifecycle status of a round's fee escrow.
type EscrowStatus uint8

const (
	// EscrowActive collects submission fees while the round runs.
	EscrowActive EscrowStatus = iota
	// EscrowCompleted means the round is archived and the balance awaits
	// distribution by the settlement ledger.
	EscrowCompleted
	// EscrowClosed means the balance has been fully distributed. The
	// transition is driven by the settlement collaborator, not by us.
	EscrowClosed
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowActive:
		return "active"
	case EscrowCompleted:
		return "completed"
	case EscrowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EscrowAccount accumulates proposal submission fees for one round.
type EscrowAccount struct {
	RoundID          uint64       `json:"roundId"          cbor:"0,keyasint"`
	TotalCollected   uint64       `json:"totalCollected"   cbor:"1,keyasint"`
	TotalDistributed uint64       `json:"totalDistributed" cbor:"2,keyasint"`
	CurrentBalance   uint64       `json:"currentBalance"   cbor:"3,keyasint"`
	Status           EscrowStatus `json:"status"           cbor:"4,keyasint"`
	// RecordHandle identifies the durable record backing this escrow in the
	// settlement ledger.
	RecordHandle HexBytes `json:"recordHandle,omitempty" cbor:"5,keyasint,omitempty"`
}
