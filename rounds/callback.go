package rounds

import (
	"errors"
	"time"

	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// OnCallback receives computation results from the engine. It is the only
// path that mutates the encrypted tally. Application is all-or-nothing on
// the callback boundary: an abort discards the pending-computation record
// and touches nothing else.
func (o *Orchestrator) OnCallback(res mpc.Result) {
	// Verify/Decrypt results go straight to the caller blocked on them.
	o.waitersMu.Lock()
	if ch, ok := o.waiters[res.Handle]; ok {
		delete(o.waiters, res.Handle)
		o.waitersMu.Unlock()
		ch <- res
		return
	}
	o.waitersMu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.stg.PendingByHandle(res.Handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Stale result: the pending record was abandoned by an
			// operator retry, or this handle was never ours.
			log.Warnw("dropping callback for unknown computation", "handle", res.Handle.String())
			return
		}
		log.Errorw(err, "failed to load pending computation")
		return
	}

	if res.Aborted() {
		log.Warnw("computation aborted",
			"kind", pending.Kind.String(), "round", pending.RoundID, "error", res.Abort.Error())
		if err := o.stg.ClearPending(res.Handle); err != nil {
			log.Errorw(err, "failed to clear aborted computation")
		}
		return
	}

	switch pending.Kind {
	case mpc.KindInit:
		o.applyInit(pending, res)
	case mpc.KindVote:
		o.applyVoteFold(pending, res)
	case mpc.KindReveal:
		o.applyReveal(pending, res)
	default:
		log.Warnw("callback for unexpected kind", "kind", pending.Kind.String())
	}
}

// applyInit installs the encrypted zero tally of a fresh round.
func (o *Orchestrator) applyInit(pending *storage.PendingComputation, res mpc.Result) {
	if res.Output == nil || res.Output.Tally == nil {
		log.Errorw(errors.New("missing tally payload"), "malformed init callback")
		return
	}
	if err := o.stg.ReplaceTally(&types.Tally{
		RoundID:     pending.RoundID,
		Ciphertexts: res.Output.Tally.Ciphertexts,
		Nonce:       res.Output.Tally.Nonce,
	}); err != nil {
		log.Errorw(err, "failed to install zero tally")
		return
	}
	if err := o.stg.ClearPending(res.Handle); err != nil {
		log.Errorw(err, "failed to clear init computation")
	}
	log.Infow("tally initialized", "round", pending.RoundID)
}

// applyVoteFold replaces the tally with the folded state and counts the
// voter. A reused nonce is treated as an abort: nothing is applied.
func (o *Orchestrator) applyVoteFold(pending *storage.PendingComputation, res mpc.Result) {
	if res.Output == nil || res.Output.Tally == nil {
		log.Errorw(errors.New("missing tally payload"), "malformed vote callback")
		return
	}
	if err := o.stg.ReplaceTally(&types.Tally{
		RoundID:     pending.RoundID,
		Ciphertexts: res.Output.Tally.Ciphertexts,
		Nonce:       res.Output.Tally.Nonce,
	}); err != nil {
		// ErrNonceReuse in particular: the engine failed its
		// re-randomization obligation, so the payload is rejected whole.
		log.Errorw(err, "rejected vote fold payload")
		if cerr := o.stg.ClearPending(res.Handle); cerr != nil {
			log.Errorw(cerr, "failed to clear rejected computation")
		}
		return
	}

	// The fold marker is what keeps a settled ballot from being submitted
	// again through ReissueVote.
	if err := o.stg.MarkReceiptFolded(pending.RoundID, pending.Actor); err != nil {
		log.Errorw(err, "failed to mark receipt folded")
	}

	round, err := o.stg.Round(pending.RoundID)
	if err != nil {
		log.Errorw(err, "failed to load round for vote count")
		return
	}
	round.VoterCount++
	if err := o.stg.SetRound(round); err != nil {
		log.Errorw(err, "failed to store voter count")
		return
	}
	if err := o.stg.ClearPending(res.Handle); err != nil {
		log.Errorw(err, "failed to clear vote computation")
	}
	log.Infow("vote folded into tally",
		"round", pending.RoundID, "voter", pending.Actor.Hex(), "voters", round.VoterCount)
}

// applyReveal stores the declassified winner and moves the round to
// Revealed, making the next round eligible to open.
func (o *Orchestrator) applyReveal(pending *storage.PendingComputation, res mpc.Result) {
	if res.Output == nil || res.Output.Winner == nil {
		log.Errorw(errors.New("missing winner payload"), "malformed reveal callback")
		return
	}
	round, err := o.stg.Round(pending.RoundID)
	if err != nil {
		log.Errorw(err, "failed to load round for reveal")
		return
	}
	if round.Phase != types.PhaseTallying {
		log.Warnw("dropping reveal callback in wrong phase",
			"round", round.ID, "phase", round.Phase.String())
		return
	}
	round.Winner = &types.Winner{
		ProposalID: res.Output.Winner.ProposalID,
		VoteCount:  res.Output.Winner.VoteCount,
		RevealedAt: time.Now(),
		RevealedBy: pending.Actor,
	}
	round.Phase = types.PhaseRevealed
	if err := o.stg.SetRound(round); err != nil {
		log.Errorw(err, "failed to store revealed round")
		return
	}
	if err := o.stg.ClearPending(res.Handle); err != nil {
		log.Errorw(err, "failed to clear reveal computation")
	}
	log.Infow("winner revealed",
		"round", round.ID, "winner", round.Winner.ProposalID, "votes", round.Winner.VoteCount)
}
