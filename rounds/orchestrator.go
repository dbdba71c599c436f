// Package rounds implements the round state machine that orchestrates the
// confidential voting protocol: proposal submission, encrypted ballot
// casting, reveal and archival. All authoritative mutation funnels through a
// single orchestrator instance; the encrypted tally itself is only ever
// changed by computation engine callbacks.
package rounds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"github.com/sealedvote/sealedvote/util"
	"go.vocdoni.io/dvote/log"
)

// escrowRecordSize is the settlement ledger allocation for one round's
// escrow record.
const escrowRecordSize = 64

// Config collects the orchestrator dependencies.
type Config struct {
	Storage *storage.Storage
	Engine  mpc.Engine
	Settler ledger.Settler
	// Authority is the only address allowed to reveal, archive, force
	// retries and decrypt ballots for audit.
	Authority common.Address
	// EscrowAccount receives proposal submission fees.
	EscrowAccount common.Address
	// ProposalFee is the fee collected per proposal submission.
	ProposalFee uint64
}

// Orchestrator owns the round lifecycle. It is the only writer of round,
// receipt, escrow and history state, and the only consumer of computation
// engine callbacks.
type Orchestrator struct {
	stg       *storage.Storage
	engine    mpc.Engine
	settler   ledger.Settler
	authority common.Address
	escrow    common.Address
	fee       uint64

	// mu serializes every state mutation, including callback application.
	mu sync.Mutex

	// waiters routes Verify/Decrypt results back to the caller blocked on
	// them.
	waitersMu sync.Mutex
	waiters   map[uuid.UUID]chan mpc.Result
}

// New creates an orchestrator. The engine may be nil at construction time
// and wired later with SetEngine, since the engine itself needs the
// orchestrator's callback.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Settler == nil {
		return nil, fmt.Errorf("settler cannot be nil")
	}
	return &Orchestrator{
		stg:       cfg.Storage,
		engine:    cfg.Engine,
		settler:   cfg.Settler,
		authority: cfg.Authority,
		escrow:    cfg.EscrowAccount,
		fee:       cfg.ProposalFee,
		waiters:   make(map[uuid.UUID]chan mpc.Result),
	}, nil
}

// SetEngine wires the computation engine.
func (o *Orchestrator) SetEngine(engine mpc.Engine) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.engine = engine
}

// Authority returns the configured authority address.
func (o *Orchestrator) Authority() common.Address {
	return o.authority
}

// OpenRound opens the genesis round: round 0, phase Open, counters zeroed,
// with an Init computation issued to obtain the encrypted zero tally.
// Subsequent rounds are opened by Archive, so calling OpenRound after
// genesis fails with ErrInvalidPhase.
func (o *Orchestrator) OpenRound(ctx context.Context) (*types.Round, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.stg.CurrentRound(); err == nil {
		return nil, fmt.Errorf("%w: genesis round already opened", ErrInvalidPhase)
	}
	round := &types.Round{
		ID:       0,
		Phase:    types.PhaseOpen,
		OpenedAt: time.Now(),
	}
	record, err := o.settler.CreateRecord(ledger.RecordEscrow, escrowRecordSize)
	if err != nil {
		return nil, fmt.Errorf("create escrow record: %w", err)
	}
	if err := o.stg.OpenRound(round, record); err != nil {
		return nil, fmt.Errorf("open genesis round: %w", err)
	}
	if err := o.issueInit(ctx, round.ID); err != nil {
		return nil, err
	}
	log.Infow("genesis round opened", "round", round.ID)
	return round, nil
}

// CurrentRound returns the most recently opened round.
func (o *Orchestrator) CurrentRound() (*types.Round, error) {
	id, err := o.stg.CurrentRound()
	if err != nil {
		return nil, err
	}
	return o.stg.Round(id)
}

// Round returns a round by identifier.
func (o *Orchestrator) Round(id uint64) (*types.Round, error) {
	return o.stg.Round(id)
}

// Proposals returns the proposals of a round.
func (o *Orchestrator) Proposals(roundID uint64) ([]*types.Proposal, error) {
	return o.stg.ListProposals(roundID)
}

// Proposal returns one proposal of a round.
func (o *Orchestrator) Proposal(roundID uint64, id uint8) (*types.Proposal, error) {
	return o.stg.Proposal(roundID, id)
}

// History returns the archived outcome of a round.
func (o *Orchestrator) History(roundID uint64) (*types.RoundHistory, error) {
	return o.stg.History(roundID)
}

// ListHistory returns every archived round in ascending round order.
func (o *Orchestrator) ListHistory() ([]*types.RoundHistory, error) {
	return o.stg.ListHistory()
}

// Escrow returns the escrow account of a round.
func (o *Orchestrator) Escrow(roundID uint64) (*types.EscrowAccount, error) {
	return o.stg.Escrow(roundID)
}

// issueInit submits an Init computation for a freshly opened round and
// occupies its pending slot. Votes are rejected as busy until the callback
// installs the encrypted zero tally.
func (o *Orchestrator) issueInit(ctx context.Context, roundID uint64) error {
	nonce, err := types.NonceFromBytes(util.RandomBytes(types.NonceSize))
	if err != nil {
		return err
	}
	req := mpc.Request{
		Kind:    mpc.KindInit,
		Args:    []mpc.Argument{mpc.PlaintextNonce(nonce)},
		Targets: []types.HexBytes{types.HexBytes("tally")},
	}
	return o.submitPending(ctx, req, &storage.PendingComputation{
		Kind:    mpc.KindInit,
		RoundID: roundID,
	})
}

// submitPending submits a tally-mutating request and records it in the
// round's pending slot. The orchestrator mutex must be held: callbacks also
// take it, so the slot is always recorded before a result can be applied.
func (o *Orchestrator) submitPending(ctx context.Context, req mpc.Request, pending *storage.PendingComputation) error {
	handle, err := o.engine.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit %s computation: %w", req.Kind, err)
	}
	pending.Handle = handle
	pending.IssuedAt = time.Now()
	pending.Targets = req.Targets
	if err := o.stg.SetPending(pending); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrTallyBusy
		}
		return err
	}
	log.Debugw("computation submitted",
		"kind", req.Kind.String(), "round", pending.RoundID, "handle", handle.String())
	return nil
}

// submitAndWait submits a non-mutating request (Verify, Decrypt) and blocks
// until its callback arrives or the context expires. The engine may never
// answer; the context bounds the wait.
func (o *Orchestrator) submitAndWait(ctx context.Context, req mpc.Request) (mpc.Result, error) {
	o.waitersMu.Lock()
	handle, err := o.engine.Submit(ctx, req)
	if err != nil {
		o.waitersMu.Unlock()
		return mpc.Result{}, fmt.Errorf("submit %s computation: %w", req.Kind, err)
	}
	ch := make(chan mpc.Result, 1)
	o.waiters[handle] = ch
	o.waitersMu.Unlock()

	defer func() {
		o.waitersMu.Lock()
		delete(o.waiters, handle)
		o.waitersMu.Unlock()
	}()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return mpc.Result{}, ctx.Err()
	}
}
