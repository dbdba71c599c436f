package rounds

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// RequestReveal transitions the currently open round to Tallying and issues
// the Reveal computation over the current tally and nonce. Authority only.
// If a vote fold is still in flight the reveal is rejected with ErrTallyBusy
// and the phase is left untouched.
func (o *Orchestrator) RequestReveal(ctx context.Context, caller common.Address, roundID uint64) error {
	if caller != o.authority {
		return ErrUnauthorized
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.stg.CurrentRound()
	if err != nil {
		return err
	}
	if roundID != current {
		return fmt.Errorf("%w: got %d, current is %d", ErrInvalidRound, roundID, current)
	}
	round, err := o.stg.Round(roundID)
	if err != nil {
		return err
	}
	if round.Phase != types.PhaseOpen {
		return fmt.Errorf("%w: round %d is %s", ErrInvalidPhase, roundID, round.Phase)
	}
	if _, err := o.stg.PendingByRound(roundID); err == nil {
		return ErrTallyBusy
	}

	round.Phase = types.PhaseTallying
	if err := o.stg.SetRound(round); err != nil {
		return err
	}
	if err := o.issueReveal(ctx, roundID, caller); err != nil {
		return err
	}
	log.Infow("reveal requested", "round", roundID, "by", caller.Hex())
	return nil
}

// ForceRetry clears a round's stuck pending-computation slot and re-issues
// the computation the round is waiting for. It is the operator's recovery
// path for requests that never resolved. Authority only.
func (o *Orchestrator) ForceRetry(ctx context.Context, caller common.Address, roundID uint64) error {
	if caller != o.authority {
		return ErrUnauthorized
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	round, err := o.stg.Round(roundID)
	if err != nil {
		return err
	}

	if pending, err := o.stg.PendingByRound(roundID); err == nil {
		if err := o.stg.ClearPending(pending.Handle); err != nil {
			return err
		}
		log.Warnw("abandoned pending computation",
			"round", roundID, "kind", pending.Kind.String(), "handle", pending.Handle.String())
	}

	switch round.Phase {
	case types.PhaseTallying:
		if err := o.issueReveal(ctx, roundID, caller); err != nil {
			return err
		}
		log.Infow("reveal reissued", "round", roundID)
		return nil
	case types.PhaseOpen:
		// A dropped Init leaves the round without a tally; reissue it.
		if _, err := o.stg.Tally(); errors.Is(err, storage.ErrNotFound) {
			if err := o.issueInit(ctx, roundID); err != nil {
				return err
			}
			log.Infow("tally init reissued", "round", roundID)
		}
		// A dropped vote fold is recovered per-ballot via ReissueVote.
		return nil
	default:
		return fmt.Errorf("%w: round %d is %s", ErrInvalidPhase, roundID, round.Phase)
	}
}

// issueReveal submits the Reveal circuit over the current tally state. The
// orchestrator mutex must be held.
func (o *Orchestrator) issueReveal(ctx context.Context, roundID uint64, caller common.Address) error {
	tally, err := o.stg.Tally()
	if err != nil {
		return fmt.Errorf("load tally: %w", err)
	}
	req := mpc.Request{
		Kind: mpc.KindReveal,
		Args: []mpc.Argument{
			mpc.PlaintextNonce(tally.Nonce),
			mpc.TallyReference(o.stg.TallyReference()),
		},
	}
	return o.submitPending(ctx, req, &storage.PendingComputation{
		Kind:    mpc.KindReveal,
		RoundID: roundID,
		Actor:   caller,
	})
}
