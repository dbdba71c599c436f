package rounds

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/log"
)

// VerifyMembership returns the voter's receipt for a round, proving a ballot
// was cast without exposing its content.
func (o *Orchestrator) VerifyMembership(roundID uint64, voter common.Address) (*types.VoteReceipt, error) {
	return o.stg.Receipt(roundID, voter)
}

// VerifyWinningVote checks whether the voter's ballot in a closed round was
// cast for that round's recorded winner. The claimed ciphertext must equal
// the stored receipt's; the equality test against the winner runs in the
// computation engine and discloses exactly one bit.
//
// The wait for the engine's answer is bounded by ctx.
func (o *Orchestrator) VerifyWinningVote(ctx context.Context, roundID uint64, voter common.Address, claimed types.Ciphertext) (bool, error) {
	current, err := o.stg.CurrentRound()
	if err != nil {
		return false, err
	}
	if roundID >= current {
		return false, fmt.Errorf("%w: round %d is not closed yet", ErrInvalidRound, roundID)
	}
	receipt, err := o.stg.Receipt(roundID, voter)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(claimed[:], receipt.EncryptedChoice[:]) {
		return false, ErrReceiptMismatch
	}
	entry, err := o.stg.History(roundID)
	if err != nil {
		return false, err
	}

	res, err := o.submitAndWait(ctx, mpc.Request{
		Kind: mpc.KindVerify,
		Args: []mpc.Argument{
			mpc.SharedEncrypted(receipt.EncryptedChoice, receipt.PublicKey, receipt.Nonce),
			mpc.Plaintext(uint64(entry.WinningID)),
		},
	})
	if err != nil {
		return false, err
	}
	if res.Aborted() {
		return false, fmt.Errorf("%w: %v", ErrComputationAborted, res.Abort)
	}
	if res.Output == nil || res.Output.Valid == nil {
		return false, fmt.Errorf("malformed verify output")
	}
	log.Debugw("winning vote verified",
		"round", roundID, "voter", voter.Hex(), "matches", *res.Output.Valid)
	return *res.Output.Valid, nil
}

// DecryptVote declassifies a single ballot through the engine's audit
// circuit. Authority only; every use is logged.
func (o *Orchestrator) DecryptVote(ctx context.Context, caller common.Address,
	encryptedChoice types.Ciphertext, publicKey types.HexBytes, nonce types.Nonce,
) (uint8, error) {
	if caller != o.authority {
		return 0, ErrUnauthorized
	}

	log.Warnw("audit decrypt requested", "by", caller.Hex())
	res, err := o.submitAndWait(ctx, mpc.Request{
		Kind: mpc.KindDecrypt,
		Args: []mpc.Argument{
			mpc.SharedEncrypted(encryptedChoice, publicKey, nonce),
		},
	})
	if err != nil {
		return 0, err
	}
	if res.Aborted() {
		return 0, fmt.Errorf("%w: %v", ErrComputationAborted, res.Abort)
	}
	if res.Output == nil || res.Output.Plaintext == nil {
		return 0, fmt.Errorf("malformed decrypt output")
	}
	return *res.Output.Plaintext, nil
}
