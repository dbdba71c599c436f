package storage

import (
	"fmt"

	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// proposalKey is the round identifier followed by the proposal ordinal.
func proposalKey(roundID uint64, id uint8) []byte {
	return append(roundKey(roundID), id)
}

// AddProposal stores a proposal, the round record with its incremented
// proposal counter and the escrow account credited with the submission fee,
// all in a single transaction. Either all three records are written or none
// is.
func (s *Storage) AddProposal(round *types.Round, proposal *types.Proposal, fee uint64) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	escrow, err := s.Escrow(round.ID)
	if err != nil {
		return fmt.Errorf("load escrow: %w", err)
	}
	escrow.TotalCollected += fee
	escrow.CurrentBalance += fee

	proposalVal, err := encodeArtifact(proposal)
	if err != nil {
		return err
	}
	roundVal, err := encodeArtifact(round)
	if err != nil {
		return err
	}
	escrowVal, err := encodeArtifact(escrow)
	if err != nil {
		return err
	}

	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, proposalPrefix).Set(proposalKey(round.ID, proposal.ID), proposalVal); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, roundPrefix).Set(roundKey(round.ID), roundVal); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, escrowPrefix).Set(roundKey(round.ID), escrowVal); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// SetProposal overwrites a proposal record.
func (s *Storage) SetProposal(proposal *types.Proposal) error {
	return s.setArtifact(proposalPrefix, proposalKey(proposal.RoundID, proposal.ID), proposal)
}

// Proposal retrieves one proposal of a round. It returns ErrNotFound if the
// proposal does not exist.
func (s *Storage) Proposal(roundID uint64, id uint8) (*types.Proposal, error) {
	proposal := &types.Proposal{}
	if err := s.getArtifact(proposalPrefix, proposalKey(roundID, id), proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// ListProposals returns all proposals of a round ordered by their ordinal.
func (s *Storage) ListProposals(roundID uint64) ([]*types.Proposal, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, proposalPrefix)
	var proposals []*types.Proposal
	var iterErr error
	if err := rTx.Iterate(roundKey(roundID), func(_, v []byte) bool {
		proposal := &types.Proposal{}
		if err := decodeArtifact(v, proposal); err != nil {
			iterErr = err
			return false
		}
		proposals = append(proposals, proposal)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return proposals, nil
}
