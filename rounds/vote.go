package rounds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// CastVote records an encrypted ballot: it creates the voter's receipt and
// issues the tally-increment computation. The ballot's plaintext never
// touches this process; the receipt stores the ciphertext only.
//
// The vote is accepted only when roundID is the currently open round. While
// another tally computation is in flight the vote is rejected with
// ErrTallyBusy and no receipt is created, so the voter can simply retry.
func (o *Orchestrator) CastVote(ctx context.Context, roundID uint64, proposalID uint8,
	voter common.Address, encryptedChoice types.Ciphertext, publicKey types.HexBytes, nonce types.Nonce,
) (*types.VoteReceipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.stg.CurrentRound()
	if err != nil {
		return nil, fmt.Errorf("load current round: %w", err)
	}
	if roundID != current {
		return nil, fmt.Errorf("%w: got %d, current is %d", ErrInvalidRound, roundID, current)
	}
	round, err := o.stg.Round(roundID)
	if err != nil {
		return nil, err
	}
	if round.Phase != types.PhaseOpen {
		return nil, fmt.Errorf("%w: round %d is %s", ErrInvalidPhase, roundID, round.Phase)
	}
	if proposalID >= round.ProposalCount {
		return nil, fmt.Errorf("%w: %d (round has %d proposals)", ErrInvalidProposalID, proposalID, round.ProposalCount)
	}
	if _, err := o.stg.PendingByRound(roundID); err == nil {
		return nil, ErrTallyBusy
	}

	receipt := &types.VoteReceipt{
		Voter:           voter,
		RoundID:         roundID,
		EncryptedChoice: encryptedChoice,
		PublicKey:       publicKey,
		Nonce:           nonce,
		CastAt:          time.Now(),
	}
	if err := o.stg.CreateReceipt(receipt); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	if err := o.issueVoteFold(ctx, receipt); err != nil {
		// The receipt stays: the ballot was recorded but not folded in.
		// ReissueVote covers the retry.
		log.Warnw("vote recorded but fold submission failed",
			"round", roundID, "voter", voter.Hex(), "error", err.Error())
		return receipt, err
	}
	log.Infow("vote cast", "round", roundID, "voter", voter.Hex())
	return receipt, nil
}

// ReissueVote re-submits the tally-increment computation for a ballot whose
// fold aborted or never resolved. The stored receipt is the source of truth;
// no new receipt is created, and a receipt already folded into the tally is
// rejected with ErrAlreadyVoted. Either the voter or the authority may call
// it.
func (o *Orchestrator) ReissueVote(ctx context.Context, roundID uint64, caller, voter common.Address) error {
	if caller != voter && caller != o.authority {
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
	receipt, err := o.stg.Receipt(roundID, voter)
	if err != nil {
		return err
	}
	if receipt.Folded {
		return fmt.Errorf("%w: ballot already folded into the tally", ErrAlreadyVoted)
	}
	if _, err := o.stg.PendingByRound(roundID); err == nil {
		return ErrTallyBusy
	}
	if err := o.issueVoteFold(ctx, receipt); err != nil {
		return err
	}
	log.Infow("vote fold reissued", "round", roundID, "voter", voter.Hex())
	return nil
}

// issueVoteFold submits the Vote circuit over the ballot ciphertext and a
// reference to the current tally. The orchestrator mutex must be held.
func (o *Orchestrator) issueVoteFold(ctx context.Context, receipt *types.VoteReceipt) error {
	tally, err := o.stg.Tally()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: encrypted tally not initialized", ErrTallyBusy)
		}
		return err
	}
	req := mpc.Request{
		Kind: mpc.KindVote,
		Args: []mpc.Argument{
			mpc.SharedEncrypted(receipt.EncryptedChoice, receipt.PublicKey, receipt.Nonce),
			mpc.PlaintextNonce(tally.Nonce),
			mpc.TallyReference(o.stg.TallyReference()),
		},
		Targets: []types.HexBytes{types.HexBytes("tally")},
	}
	return o.submitPending(ctx, req, &storage.PendingComputation{
		Kind:    mpc.KindVote,
		RoundID: receipt.RoundID,
		Actor:   receipt.Voter,
	})
}
