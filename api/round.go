package api

import (
	"encoding/json"
	"net/http"
)

// openRound opens the genesis round.
// POST /rounds
func (a *API) openRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.orchestrator.OpenRound(r.Context())
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// currentRound returns the most recently opened round.
// GET /rounds/current
func (a *API) currentRound(w http.ResponseWriter, _ *http.Request) {
	round, err := a.orchestrator.CurrentRound()
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// round returns a round by identifier.
// GET /rounds/{roundId}
func (a *API) round(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	round, err := a.orchestrator.Round(id)
	if err != nil {
		ErrRoundNotFound.Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// requestReveal requests declassification of the round's winner.
// POST /rounds/{roundId}/reveal
func (a *API) requestReveal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &AuthorityRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.orchestrator.RequestReveal(r.Context(), req.Caller, id); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// archive closes a revealed round and opens the next one.
// POST /rounds/{roundId}/archive
func (a *API) archive(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &AuthorityRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	entry, err := a.orchestrator.Archive(r.Context(), req.Caller, id)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, entry)
}

// forceRetry abandons a stuck computation and reissues it.
// POST /rounds/{roundId}/retry
func (a *API) forceRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	req := &AuthorityRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.orchestrator.ForceRetry(r.Context(), req.Caller, id); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// listHistory returns every archived round.
// GET /history
func (a *API) listHistory(w http.ResponseWriter, _ *http.Request) {
	entries, err := a.orchestrator.ListHistory()
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, entries)
}

// history returns the archived outcome of a round.
// GET /history/{roundId}
func (a *API) history(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	entry, err := a.orchestrator.History(id)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, entry)
}

// escrow returns the escrow account of a round.
// GET /rounds/{roundId}/escrow
func (a *API) escrow(w http.ResponseWriter, r *http.Request) {
	id, ok := urlRoundID(r)
	if !ok {
		ErrMalformedRoundID.Write(w)
		return
	}
	account, err := a.orchestrator.Escrow(id)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, account)
}
