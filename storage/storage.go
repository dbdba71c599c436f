// Package storage persists every artifact of the voting protocol in a
// prefixed key-value store: rounds, proposals, vote receipts, the encrypted
// tally, escrow accounts, the round history and the pending-computation
// slots. The following prefixes are used:
//   - 'r/' for rounds
//   - 'p/' for proposals
//   - 'vr/' for vote receipts
//   - 't/' for the encrypted tally
//   - 'e/' for escrow accounts
//   - 'h/' for round history entries
//   - 'pc/' for pending computations (keyed by request handle)
//   - 'ps/' for per-round pending-computation slots
//   - 's/' for global counters
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
)

var (
	roundPrefix    = []byte("r/")
	proposalPrefix = []byte("p/")
	receiptPrefix  = []byte("vr/")
	tallyPrefix    = []byte("t/")
	escrowPrefix   = []byte("e/")
	historyPrefix  = []byte("h/")
	pendingPrefix  = []byte("pc/")
	slotPrefix     = []byte("ps/")
	statsPrefix    = []byte("s/")
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrAlreadyExists is returned when writing an artifact that must be
	// unique, such as a vote receipt or a history entry.
	ErrAlreadyExists = errors.New("artifact already exists")
	// ErrNonceReuse is returned when a tally replacement carries the same
	// nonce as the current tally state.
	ErrNonceReuse = errors.New("tally nonce reused")
)

// Storage wraps the key-value database with typed accessors for all the
// protocol artifacts.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}
