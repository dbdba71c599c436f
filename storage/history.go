package storage

import (
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// AppendHistory writes the history entry of an archived round. The archive
// is append-only: a second write for the same round returns
// ErrAlreadyExists and the stored entry is never modified.
func (s *Storage) AppendHistory(entry *types.RoundHistory) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := roundKey(entry.RoundID)
	exists, err := s.hasArtifact(historyPrefix, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}
	return s.setArtifact(historyPrefix, key, entry)
}

// History retrieves the archived outcome of a round, or ErrNotFound if the
// round has not been archived.
func (s *Storage) History(roundID uint64) (*types.RoundHistory, error) {
	entry := &types.RoundHistory{}
	if err := s.getArtifact(historyPrefix, roundKey(roundID), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListHistory returns all archived rounds in ascending round order.
func (s *Storage) ListHistory() ([]*types.RoundHistory, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, historyPrefix)
	var entries []*types.RoundHistory
	var iterErr error
	if err := rTx.Iterate(nil, func(_, v []byte) bool {
		entry := &types.RoundHistory{}
		if err := decodeArtifact(v, entry); err != nil {
			iterErr = err
			return false
		}
		entries = append(entries, entry)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return entries, nil
}
