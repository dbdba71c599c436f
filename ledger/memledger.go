package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// MemLedger is an in-memory Settler for tests and local runs.
type MemLedger struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
	records  map[string]RecordKind
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances: make(map[common.Address]uint64),
		records:  make(map[string]RecordKind),
	}
}

// Fund credits an account. Test setup helper.
func (l *MemLedger) Fund(account common.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Balance returns the current balance of an account.
func (l *MemLedger) Balance(account common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer implements Settler.
func (l *MemLedger) Transfer(from, to common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("%w: account %s holds %d, needs %d",
			ErrInsufficientFunds, from, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// CreateRecord implements Settler.
func (l *MemLedger) CreateRecord(kind RecordKind, _ int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	handle := uuid.New()
	l.records[handle.String()] = kind
	return handle[:], nil
}
