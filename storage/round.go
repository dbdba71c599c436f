package storage

import (
	"encoding/binary"
	"errors"

	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var currentRoundKey = []byte("current")

// CurrentRound returns the identifier of the most recently opened round.
// It returns ErrNotFound before the genesis round has been opened.
func (s *Storage) CurrentRound() (uint64, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, statsPrefix)
	data, err := rTx.Get(currentRoundKey)
	if err != nil {
		return 0, ErrNotFound
	}
	if len(data) != 8 {
		return 0, errors.New("malformed current round counter")
	}
	return binary.BigEndian.Uint64(data), nil
}

// OpenRound stores a fresh round record, a zeroed escrow account for it and
// advances the current round counter, all in a single transaction. The
// escrowRecord handle ties the account to its settlement ledger record.
func (s *Storage) OpenRound(round *types.Round, escrowRecord types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	roundVal, err := encodeArtifact(round)
	if err != nil {
		return err
	}
	escrowVal, err := encodeArtifact(&types.EscrowAccount{
		RoundID:      round.ID,
		Status:       types.EscrowActive,
		RecordHandle: escrowRecord,
	})
	if err != nil {
		return err
	}

	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, roundPrefix).Set(roundKey(round.ID), roundVal); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, escrowPrefix).Set(roundKey(round.ID), escrowVal); err != nil {
		tx.Discard()
		return err
	}
	counter := make([]byte, 8)
	binary.BigEndian.PutUint64(counter, round.ID)
	if err := prefixeddb.NewPrefixedWriteTx(tx, statsPrefix).Set(currentRoundKey, counter); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// Round retrieves a round record. It returns ErrNotFound if the round does
// not exist.
func (s *Storage) Round(id uint64) (*types.Round, error) {
	round := &types.Round{}
	if err := s.getArtifact(roundPrefix, roundKey(id), round); err != nil {
		return nil, err
	}
	return round, nil
}

// SetRound overwrites a round record.
func (s *Storage) SetRound(round *types.Round) error {
	return s.setArtifact(roundPrefix, roundKey(round.ID), round)
}
