package api

import (
	"encoding/json"
	"net/http"

	"github.com/sealedvote/sealedvote/types"
)

// verifyWinningVote checks a ballot against the winner of a closed round.
// POST /rounds/{roundId}/verify
func (a *API) verifyWinningVote(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &VerifyRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	ct, err := types.CiphertextFromBytes(req.EncryptedChoice)
	if err != nil {
		ErrMalformedPayload.Withf("invalid encrypted choice: %v", err).Write(w)
		return
	}
	matches, err := a.orchestrator.VerifyWinningVote(r.Context(), id, req.Voter, ct)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, &VerifyResponse{Matches: matches})
}

// decryptVote declassifies a single ballot for audit.
// POST /audit/decrypt
func (a *API) decryptVote(w http.ResponseWriter, r *http.Request) {
	req := &DecryptRequest{}
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
	choice, err := a.orchestrator.DecryptVote(r.Context(), req.Caller, ct, req.PublicKey, nonce)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, &DecryptResponse{Choice: choice})
}
