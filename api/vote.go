package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/sealedvote/sealedvote/types"
)

// castVote submits an encrypted ballot for the round.
// POST /rounds/{roundId}/votes
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &VoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	ct, err := types.CiphertextFromBytes(req.EncryptedChoice)
	if err != nil {
		ErrMalformedPayload.Withf("invalid encrypted choice: %v", err).Write(w)
		return
	}
	nonce, err := types.NonceFromBytes(req.Nonce)
	if err != nil {
		ErrMalformedPayload.Withf("invalid nonce: %v", err).Write(w)
		return
	}
	receipt, err := a.orchestrator.CastVote(r.Context(), id, req.ProposalID,
		req.Voter, ct, req.PublicKey, nonce)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, receipt)
}

// reissueVote resubmits the stored ballot of a voter whose fold was lost.
// POST /rounds/{roundId}/votes/reissue
func (a *API) reissueVote(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &ReissueRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.orchestrator.ReissueVote(r.Context(), id, req.Caller, req.Voter); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// receipt returns the vote receipt of an address for a round.
// GET /rounds/{roundId}/receipts/{address}
func (a *API) receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	addr := chi.URLParam(r, "address")
	if !common.IsHexAddress(addr) {
		ErrMalformedPayload.Withf("invalid address %q", addr).Write(w)
		return
	}
	rcpt, err := a.orchestrator.VerifyMembership(id, common.HexToAddress(addr))
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, rcpt)
}
