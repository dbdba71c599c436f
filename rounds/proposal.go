package rounds

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// SubmitProposal registers a new proposal in the currently open round and
// collects the submission fee into the round's escrow. Proposal creation and
// fee collection succeed or fail together.
func (o *Orchestrator) SubmitProposal(submitter common.Address, title, description, url string) (*types.Proposal, error) {
	if err := validateProposal(title, description, url); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	round, err := o.CurrentRound()
	if err != nil {
		return nil, fmt.Errorf("load current round: %w", err)
	}
	if round.Phase != types.PhaseOpen {
		return nil, fmt.Errorf("%w: round %d is %s", ErrInvalidPhase, round.ID, round.Phase)
	}
	if round.ProposalCount >= types.MaxProposals {
		return nil, ErrMaxProposalsReached
	}

	if o.fee > 0 {
		if err := o.settler.Transfer(submitter, o.escrow, o.fee); err != nil {
			return nil, fmt.Errorf("collect submission fee: %w", err)
		}
	}

	proposal := &types.Proposal{
		ID:          round.ProposalCount,
		RoundID:     round.ID,
		Submitter:   submitter,
		Title:       title,
		Description: description,
		URL:         url,
		SubmittedAt: time.Now(),
	}
	round.ProposalCount++
	if err := o.stg.AddProposal(round, proposal, o.fee); err != nil {
		// The fee was already moved; return it so neither side of the
		// atomic pair survives alone.
		if o.fee > 0 {
			if rerr := o.settler.Transfer(o.escrow, submitter, o.fee); rerr != nil {
				log.Errorw(rerr, "failed to return submission fee after storage error")
			}
		}
		return nil, fmt.Errorf("store proposal: %w", err)
	}

	log.Infow("proposal submitted",
		"round", round.ID, "proposal", proposal.ID, "submitter", submitter.Hex())
	return proposal, nil
}

func validateProposal(title, description, url string) error {
	if title == "" || len(title) > types.MaxTitleLen {
		return fmt.Errorf("title must be 1 to %d characters", types.MaxTitleLen)
	}
	if len(description) > types.MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", types.MaxDescriptionLen)
	}
	if len(url) > types.MaxURLLen {
		return fmt.Errorf("url exceeds %d characters", types.MaxURLLen)
	}
	return nil
}
