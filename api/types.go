package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/types"
)

// ProposalRequest is the body of POST /rounds/{roundId}/proposals.
type ProposalRequest struct {
	Submitter   common.Address `json:"submitter"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url,omitempty"`
}

// VoteRequest is the body of POST /rounds/{roundId}/votes. The choice
// travels encrypted; ProposalID is the public claim checked against the
// round's proposal count only.
type VoteRequest struct {
	Voter           common.Address `json:"voter"`
	ProposalID      uint8          `json:"proposalId"`
	EncryptedChoice types.HexBytes `json:"encryptedChoice"`
	PublicKey       types.HexBytes `json:"publicKey"`
	Nonce           types.HexBytes `json:"nonce"`
}

// AuthorityRequest is the body of the authority-only round operations.
type AuthorityRequest struct {
	Caller common.Address `json:"caller"`
}

// ReissueRequest is the body of POST /rounds/{roundId}/votes/reissue.
type ReissueRequest struct {
	Caller common.Address `json:"caller"`
	Voter  common.Address `json:"voter"`
}

// VerifyRequest is the body of POST /rounds/{roundId}/verify.
type VerifyRequest struct {
	Voter           common.Address `json:"voter"`
	EncryptedChoice types.HexBytes `json:"encryptedChoice"`
}

// VerifyResponse reports whether the ballot matches the round's winner.
type VerifyResponse struct {
	Matches bool `json:"matches"`
}

// DecryptRequest is the body of POST /audit/decrypt.
type DecryptRequest struct {
	Caller          common.Address `json:"caller"`
	EncryptedChoice types.HexBytes `json:"encryptedChoice"`
	PublicKey       types.HexBytes `json:"publicKey"`
	Nonce           types.HexBytes `json:"nonce"`
}

// DecryptResponse carries the declassified choice.
type DecryptResponse struct {
	Choice uint8 `json:"choice"`
}
