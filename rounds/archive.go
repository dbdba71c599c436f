package rounds

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// Archive closes a revealed round: it writes the round's history entry from
// the live winner fields, completes the escrow, clears the winner fields,
// resets the encrypted tally and opens the next round. Authority only; legal
// only from the Revealed phase.
//
// The history entry is keyed by the round's own identifier, read from the
// live round before anything is cleared. Only after every needed value is
// read does Archive mutate state.
func (o *Orchestrator) Archive(ctx context.Context, caller common.Address, roundID uint64) (*types.RoundHistory, error) {
	if caller != o.authority {
		return nil, ErrUnauthorized
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	round, err := o.stg.Round(roundID)
	if err != nil {
		return nil, err
	}
	if round.Phase != types.PhaseRevealed {
		return nil, fmt.Errorf("%w: round %d is %s", ErrInvalidPhase, roundID, round.Phase)
	}
	if round.Winner == nil {
		return nil, fmt.Errorf("round %d revealed but winner fields missing", roundID)
	}

	entry := &types.RoundHistory{
		RoundID:        round.ID,
		WinningID:      round.Winner.ProposalID,
		WinningVotes:   round.Winner.VoteCount,
		TotalProposals: round.ProposalCount,
		TotalVoters:    round.VoterCount,
		RevealedAt:     round.Winner.RevealedAt,
		RevealedBy:     round.Winner.RevealedBy,
		ArchivedAt:     time.Now(),
	}
	if err := o.stg.AppendHistory(entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	// The winning proposal's public vote count becomes meaningful once the
	// result is declassified.
	if winner, err := o.stg.Proposal(round.ID, entry.WinningID); err == nil {
		winner.VoteCount = entry.WinningVotes
		if err := o.stg.SetProposal(winner); err != nil {
			log.Warnw("failed to update winning proposal vote count", "error", err.Error())
		}
	}

	if err := o.stg.CompleteEscrow(round.ID); err != nil {
		return nil, fmt.Errorf("complete escrow: %w", err)
	}

	round.Winner = nil
	round.Phase = types.PhaseArchived
	if err := o.stg.SetRound(round); err != nil {
		return nil, err
	}
	if err := o.stg.ClearTally(); err != nil {
		return nil, err
	}

	next := &types.Round{
		ID:       round.ID + 1,
		Phase:    types.PhaseOpen,
		OpenedAt: time.Now(),
	}
	record, err := o.settler.CreateRecord(ledger.RecordEscrow, escrowRecordSize)
	if err != nil {
		return nil, fmt.Errorf("create escrow record: %w", err)
	}
	if err := o.stg.OpenRound(next, record); err != nil {
		return nil, fmt.Errorf("open next round: %w", err)
	}
	if err := o.issueInit(ctx, next.ID); err != nil {
		return nil, err
	}

	log.Infow("round archived",
		"round", entry.RoundID, "winner", entry.WinningID, "votes", entry.WinningVotes,
		"next", next.ID)
	return entry, nil
}
