// Package ledger defines the settlement ledger collaborator: fee transfers
// and durable record allocation. The actual ledger (account layout,
// persistence, payout) lives outside this system.
package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds is returned by Transfer when the source account
// cannot cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// RecordKind names the kind of durable record to allocate.
type RecordKind string

const (
	// RecordEscrow is a per-round fee escrow record.
	RecordEscrow RecordKind = "escrow"
)

// Settler is the settlement ledger interface consumed by the orchestrator.
type Settler interface {
	// Transfer moves amount from one account to another. It returns
	// ErrInsufficientFunds if the source balance is too low.
	Transfer(from, to common.Address, amount uint64) error
	// CreateRecord allocates a durable record of the given kind and size
	// and returns its handle.
	CreateRecord(kind RecordKind, size int) ([]byte, error)
}
