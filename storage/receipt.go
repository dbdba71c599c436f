package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sealedvote/sealedvote/types"
)

// receiptKey is the round identifier followed by the voter address.
func receiptKey(roundID uint64, voter common.Address) []byte {
	return append(roundKey(roundID), voter.Bytes()...)
}

// CreateReceipt stores a vote receipt. It returns ErrAlreadyExists if the
// voter already holds a receipt for the round; receipts are immutable once
// written.
func (s *Storage) CreateReceipt(receipt *types.VoteReceipt) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := receiptKey(receipt.RoundID, receipt.Voter)
	exists, err := s.hasArtifact(receiptPrefix, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}
	return s.setArtifact(receiptPrefix, key, receipt)
}

// MarkReceiptFolded flags the voter's receipt as folded into the tally. The
// ballot content itself stays immutable; only the fold marker changes.
func (s *Storage) MarkReceiptFolded(roundID uint64, voter common.Address) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := receiptKey(roundID, voter)
	receipt := &types.VoteReceipt{}
	if err := s.getArtifact(receiptPrefix, key, receipt); err != nil {
		return err
	}
	receipt.Folded = true
	return s.setArtifact(receiptPrefix, key, receipt)
}

// Receipt retrieves the receipt of a voter for a round. It returns
// ErrNotFound if the voter did not cast a ballot in that round.
func (s *Storage) Receipt(roundID uint64, voter common.Address) (*types.VoteReceipt, error) {
	receipt := &types.VoteReceipt{}
	if err := s.getArtifact(receiptPrefix, receiptKey(roundID, voter), receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}
