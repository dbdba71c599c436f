package storage

import (
	"errors"

	"github.com/sealedvote/sealedvote/types"
)

// The encrypted tally is a singleton: rounds are strictly sequential, so a
// single authoritative record tracks the current round's counters.
var tallyKey = []byte("current")

// Tally retrieves the current encrypted tally. It returns ErrNotFound
// between a round being archived and the next Init callback landing.
func (s *Storage) Tally() (*types.Tally, error) {
	tally := &types.Tally{}
	if err := s.getArtifact(tallyPrefix, tallyKey, tally); err != nil {
		return nil, err
	}
	return tally, nil
}

// ReplaceTally installs a new tally state wholesale. The only callers are
// the Init and Vote callback paths. A replacement for the same round must
// carry a nonce strictly different from the current one; reusing a nonce is
// a linkage vulnerability and is rejected with ErrNonceReuse.
func (s *Storage) ReplaceTally(tally *types.Tally) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	current, err := s.tallyUnlocked()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current != nil && current.RoundID == tally.RoundID && current.Nonce.Equal(tally.Nonce) {
		return ErrNonceReuse
	}
	return s.setArtifact(tallyPrefix, tallyKey, tally)
}

// ClearTally removes the tally record. Archive calls it after the history
// entry is written; the Init computation of the next round recreates it.
func (s *Storage) ClearTally() error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.deleteArtifact(tallyPrefix, tallyKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Storage) tallyUnlocked() (*types.Tally, error) {
	tally := &types.Tally{}
	if err := s.getArtifact(tallyPrefix, tallyKey, tally); err != nil {
		return nil, err
	}
	return tally, nil
}
