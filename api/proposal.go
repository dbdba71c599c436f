package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// submitProposal registers a proposal in the current round.
// POST /rounds/{roundId}/proposals
func (a *API) submitProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &ProposalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	current, err := a.orchestrator.CurrentRound()
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	if current.ID != id {
		ErrInvalidRound.Withf("round %d is not the current round", id).Write(w)
		return
	}
	proposal, err := a.orchestrator.SubmitProposal(req.Submitter, req.Title, req.Description, req.URL)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, proposal)
}

// listProposals returns every proposal of a round.
// GET /rounds/{roundId}/proposals
func (a *API) listProposals(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	proposals, err := a.orchestrator.Proposals(id)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, proposals)
}

// proposal returns a single proposal of a round.
// GET /rounds/{roundId}/proposals/{proposalId}
func (a *API) proposal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	pid, err := strconv.ParseUint(chi.URLParam(r, "proposalId"), 10, 8)
	if err != nil {
		ErrMalformedPayload.Withf("invalid proposal id: %v", err).Write(w)
		return
	}
	proposal, err := a.orchestrator.Proposal(id, uint8(pid))
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, proposal)
}
