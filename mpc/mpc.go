// Package mpc defines the contract with the external confidential
// computation engine: named circuits invoked with typed arguments, answered
// later by exactly one callback per accepted request. The engine is an
// opaque collaborator; nothing in this package (or its callers) ever
// inspects ciphertext contents.
package mpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sealedvote/sealedvote/types"
)

// Kind names a circuit of the computation engine.
type Kind uint8

const (
	// KindInit produces the encrypted zero tally for a fresh round.
	KindInit Kind = iota
	// KindVote folds one encrypted ballot into the tally.
	KindVote
	// KindReveal declassifies the winning proposal and its vote count.
	KindReveal
	// KindDecrypt declassifies a single ballot. Audit only.
	KindDecrypt
	// KindVerify discloses one bit: whether a ballot matches a previously
	// revealed winner.
	KindVerify
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindVote:
		return "vote"
	case KindReveal:
		return "reveal"
	case KindDecrypt:
		return "decrypt"
	case KindVerify:
		return "verify"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Mutating reports whether the kind replaces or declassifies the
// authoritative tally. At most one mutating request may be in flight per
// round.
func (k Kind) Mutating() bool {
	return k == KindInit || k == KindVote || k == KindReveal
}

// TallyRef points the engine at the authoritative tally bytes: a storage
// location plus a fixed-length byte region, so the engine always recomputes
// against the latest state.
type TallyRef struct {
	Key    types.HexBytes `json:"key"`
	Offset int            `json:"offset"`
	Length int            `json:"length"`
}

// ArgKind discriminates the argument variants.
type ArgKind uint8

const (
	// ArgPlaintext is a public scalar.
	ArgPlaintext ArgKind = iota
	// ArgNonce is a public 128 bit nonce.
	ArgNonce
	// ArgEncrypted is an encrypted scalar with its key-ownership tag.
	ArgEncrypted
	// ArgTallyRef is a reference into the tally store.
	ArgTallyRef
)

// Argument is one ordered, typed circuit argument.
type Argument struct {
	Kind       ArgKind
	Plaintext  uint64
	Nonce      types.Nonce
	Ciphertext types.Ciphertext
	// PublicKey is the submitting voter's ephemeral public key; set only
	// for shared-context encrypted arguments.
	PublicKey types.HexBytes
	Owner     types.KeyOwner
	Ref       TallyRef
}

// Plaintext builds a public scalar argument.
func Plaintext(v uint64) Argument {
	return Argument{Kind: ArgPlaintext, Plaintext: v}
}

// PlaintextNonce builds a public nonce argument.
func PlaintextNonce(n types.Nonce) Argument {
	return Argument{Kind: ArgNonce, Nonce: n}
}

// SharedEncrypted builds an encrypted argument in the voter-shared context:
// the engine can operate on it using the voter's ephemeral public key, while
// the orchestrator holds no key material at all.
func SharedEncrypted(ct types.Ciphertext, publicKey types.HexBytes, nonce types.Nonce) Argument {
	return Argument{
		Kind:       ArgEncrypted,
		Ciphertext: ct,
		PublicKey:  publicKey,
		Nonce:      nonce,
		Owner:      types.KeyOwnerShared,
	}
}

// TallyReference builds an argument referencing the tally store.
func TallyReference(ref TallyRef) Argument {
	return Argument{Kind: ArgTallyRef, Ref: ref}
}

// Request is one circuit invocation: the circuit name, its ordered arguments
// and the records its callback is allowed to mutate.
type Request struct {
	Kind    Kind
	Args    []Argument
	Targets []types.HexBytes
}

// TallyOutput is the payload of a successful Init or Vote callback: a full
// replacement ciphertext array plus a fresh nonce.
type TallyOutput struct {
	Ciphertexts [types.MaxProposals]types.Ciphertext
	Nonce       types.Nonce
}

// WinnerOutput is the payload of a successful Reveal callback. Both values
// are deliberately declassified.
type WinnerOutput struct {
	ProposalID uint8
	VoteCount  uint64
}

// Output is the kind-dependent payload of a successful callback. Exactly one
// field is set.
type Output struct {
	Tally     *TallyOutput
	Winner    *WinnerOutput
	Plaintext *uint8
	Valid     *bool
}

// Result is the single callback delivered for an accepted request. Output
// is nil and Abort non-nil when the computation aborted; an abort must leave
// all authoritative state untouched.
type Result struct {
	Handle uuid.UUID
	Kind   Kind
	Output *Output
	Abort  error
}

// Aborted reports whether the computation was aborted.
func (r Result) Aborted() bool {
	return r.Abort != nil
}

// CallbackFunc receives computation results. Delivery is asynchronous and
// unordered relative to other pending requests; a request that never
// resolves is a first-class possibility the caller must tolerate.
type CallbackFunc func(Result)

// Engine is the gateway to the computation engine. Submit returns as soon as
// the request is accepted; the state change happens later, off the calling
// stack, when the callback is delivered, at most once per accepted request.
type Engine interface {
	Submit(ctx context.Context, req Request) (uuid.UUID, error)
}

// RefResolver resolves tally references to the raw authoritative bytes. The
// storage layer implements it.
type RefResolver interface {
	ResolveRef(ref TallyRef) ([]byte, error)
}
