package storage

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// PendingComputation tracks one in-flight computation request from
// submission until its callback resolves it, an abort discards it or an
// operator abandons it. Tally-mutating kinds occupy the round's single
// pending slot.
type PendingComputation struct {
	Handle  uuid.UUID `json:"handle"  cbor:"0,keyasint"`
	Kind    mpc.Kind  `json:"kind"    cbor:"1,keyasint"`
	RoundID uint64    `json:"roundId" cbor:"2,keyasint"`
	// Actor is the voter whose ballot is being folded, or the authority
	// that requested a reveal.
	Actor    common.Address `json:"actor,omitempty" cbor:"3,keyasint,omitempty"`
	IssuedAt time.Time      `json:"issuedAt" cbor:"4,keyasint"`
	// Targets are the records the callback is allowed to mutate.
	Targets []types.HexBytes `json:"targets,omitempty" cbor:"5,keyasint,omitempty"`
}

// SetPending records an in-flight tally-mutating computation. It returns
// ErrAlreadyExists if the round's pending slot is already occupied, which
// enforces the single-flight contract.
func (s *Storage) SetPending(pending *PendingComputation) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	occupied, err := s.hasArtifact(slotPrefix, roundKey(pending.RoundID))
	if err != nil {
		return err
	}
	if occupied {
		return ErrAlreadyExists
	}

	val, err := encodeArtifact(pending)
	if err != nil {
		return err
	}
	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, pendingPrefix).Set(pending.Handle[:], val); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, slotPrefix).Set(roundKey(pending.RoundID), pending.Handle[:]); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// PendingByHandle retrieves an in-flight computation by its request handle.
func (s *Storage) PendingByHandle(handle uuid.UUID) (*PendingComputation, error) {
	pending := &PendingComputation{}
	if err := s.getArtifact(pendingPrefix, handle[:], pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// PendingByRound retrieves the computation occupying a round's pending slot,
// or ErrNotFound if the slot is free.
func (s *Storage) PendingByRound(roundID uint64) (*PendingComputation, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, slotPrefix)
	handleBytes, err := rTx.Get(roundKey(roundID))
	if err != nil {
		return nil, ErrNotFound
	}
	handle, err := uuid.FromBytes(handleBytes)
	if err != nil {
		return nil, err
	}
	return s.PendingByHandle(handle)
}

// ClearPending frees a round's pending slot and discards the computation
// record. It is idempotent: clearing an already resolved computation is not
// an error.
func (s *Storage) ClearPending(handle uuid.UUID) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pending, err := s.PendingByHandle(handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, pendingPrefix).Delete(handle[:]); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, slotPrefix).Delete(roundKey(pending.RoundID)); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}
