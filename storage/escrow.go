package storage

import (
	"fmt"

	"github.com/sealedvote/sealedvote/types"
)

// Escrow retrieves the escrow account of a round. The account is created
// together with the round, so ErrNotFound means the round does not exist.
func (s *Storage) Escrow(roundID uint64) (*types.EscrowAccount, error) {
	escrow := &types.EscrowAccount{}
	if err := s.getArtifact(escrowPrefix, roundKey(roundID), escrow); err != nil {
		return nil, err
	}
	return escrow, nil
}

// CompleteEscrow transitions a round's escrow from Active to Completed.
// Distribution of the balance (Completed to Closed) belongs to the
// settlement ledger and never happens here.
func (s *Storage) CompleteEscrow(roundID uint64) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	escrow, err := s.Escrow(roundID)
	if err != nil {
		return err
	}
	if escrow.Status != types.EscrowActive {
		return fmt.Errorf("escrow for round %d is %s, not active", roundID, escrow.Status)
	}
	escrow.Status = types.EscrowCompleted
	return s.setArtifact(escrowPrefix, roundKey(roundID), escrow)
}
