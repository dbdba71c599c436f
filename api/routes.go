package api

const (
	// PingEndpoint is a liveness check.
	PingEndpoint = "/ping"
	// RoundsEndpoint opens the genesis round.
	RoundsEndpoint = "/rounds"
	// CurrentRoundEndpoint returns the most recently opened round.
	CurrentRoundEndpoint = "/rounds/current"
	// RoundEndpoint returns a round by identifier.
	RoundEndpoint = "/rounds/{roundId}"
	// ProposalsEndpoint submits or lists proposals of a round.
	ProposalsEndpoint = "/rounds/{roundId}/proposals"
	// ProposalEndpoint returns one proposal of a round.
	ProposalEndpoint = "/rounds/{roundId}/proposals/{proposalId}"
	// VotesEndpoint casts an encrypted ballot in a round.
	VotesEndpoint = "/rounds/{roundId}/votes"
	// ReissueEndpoint re-submits a ballot's tally fold after an abort or a
	// lost callback.
	ReissueEndpoint = "/rounds/{roundId}/votes/reissue"
	// RevealEndpoint requests the declassification of a round's winner.
	RevealEndpoint = "/rounds/{roundId}/reveal"
	// ArchiveEndpoint closes a revealed round and opens the next one.
	ArchiveEndpoint = "/rounds/{roundId}/archive"
	// RetryEndpoint abandons a round's stuck computation and reissues it.
	RetryEndpoint = "/rounds/{roundId}/retry"
	// ReceiptEndpoint returns a voter's receipt for a round.
	ReceiptEndpoint = "/rounds/{roundId}/receipts/{address}"
	// VerifyEndpoint checks a ballot against a closed round's winner.
	VerifyEndpoint = "/rounds/{roundId}/verify"
	// DecryptEndpoint declassifies a single ballot. Audit only.
	DecryptEndpoint = "/audit/decrypt"
	// HistoriesEndpoint lists every archived round.
	HistoriesEndpoint = "/history"
	// HistoryEndpoint returns the archived outcome of a round.
	HistoryEndpoint = "/history/{roundId}"
	// EscrowEndpoint returns the escrow account of a round.
	EscrowEndpoint = "/rounds/{roundId}/escrow"
)
