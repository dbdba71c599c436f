package mpc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sealedvote/sealedvote/types"
)

// SimEngine simulates the confidential computation engine in-process: it
// executes the five circuits over plaintext values hidden behind a local
// secret, so the rest of the system can be exercised without a live MPC
// cluster. Callbacks are always delivered on a separate goroutine, like the
// real engine's.
type SimEngine struct {
	mu        sync.Mutex
	secret    [32]byte
	resolver  RefResolver
	callback  CallbackFunc
	delay     time.Duration
	abortNext map[Kind]bool
	dropNext  map[Kind]bool
	wg        sync.WaitGroup
}

// NewSimEngine creates a simulated engine reading tally references through
// the given resolver and delivering results to cb.
func NewSimEngine(resolver RefResolver, cb CallbackFunc) *SimEngine {
	e := &SimEngine{
		resolver:  resolver,
		callback:  cb,
		abortNext: make(map[Kind]bool),
		dropNext:  make(map[Kind]bool),
	}
	if _, err := rand.Read(e.secret[:]); err != nil {
		panic(err)
	}
	return e
}

// SetCallback replaces the callback sink. Used when the engine must be
// constructed before its consumer.
func (e *SimEngine) SetCallback(cb CallbackFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

// SetDelay makes every callback delivery wait d first.
func (e *SimEngine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// AbortNext makes the next request of the given kind resolve as aborted.
func (e *SimEngine) AbortNext(kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortNext[kind] = true
}

// DropNext makes the next request of the given kind never resolve.
func (e *SimEngine) DropNext(kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropNext[kind] = true
}

// Wait blocks until all accepted requests have been delivered or dropped.
func (e *SimEngine) Wait() {
	e.wg.Wait()
}

// Submit accepts a request, computes its result against a snapshot of the
// current tally state and schedules the callback.
func (e *SimEngine) Submit(_ context.Context, req Request) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handle := uuid.New()
	if e.dropNext[req.Kind] {
		delete(e.dropNext, req.Kind)
		return handle, nil
	}

	result := Result{Handle: handle, Kind: req.Kind}
	if e.abortNext[req.Kind] {
		delete(e.abortNext, req.Kind)
		result.Abort = errors.New("computation aborted by cluster")
	} else {
		output, err := e.compute(req)
		if err != nil {
			result.Abort = err
		} else {
			result.Output = output
		}
	}

	cb, delay := e.callback, e.delay
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		cb(result)
	}()
	return handle, nil
}

func (e *SimEngine) compute(req Request) (*Output, error) {
	switch req.Kind {
	case KindInit:
		nonce, err := singleNonceArg(req.Args)
		if err != nil {
			return nil, err
		}
		var counters [types.MaxProposals]uint64
		return &Output{Tally: e.encryptTally(counters, nonce)}, nil

	case KindVote:
		ballot, tallyNonce, ref, err := voteArgs(req.Args)
		if err != nil {
			return nil, err
		}
		choice, err := e.decryptChoice(ballot)
		if err != nil {
			return nil, err
		}
		counters, err := e.decryptTally(ref, tallyNonce)
		if err != nil {
			return nil, err
		}
		if int(choice) < types.MaxProposals {
			counters[choice]++
		}
		return &Output{Tally: e.encryptTally(counters, e.freshNonce(tallyNonce))}, nil

	case KindReveal:
		tallyNonce, ref, err := revealArgs(req.Args)
		if err != nil {
			return nil, err
		}
		counters, err := e.decryptTally(ref, tallyNonce)
		if err != nil {
			return nil, err
		}
		var winner uint8
		var max uint64
		for i, votes := range counters {
			if votes > max {
				max = votes
				winner = uint8(i)
			}
		}
		return &Output{Winner: &WinnerOutput{ProposalID: winner, VoteCount: max}}, nil

	case KindDecrypt:
		ballot, err := singleEncryptedArg(req.Args)
		if err != nil {
			return nil, err
		}
		choice, err := e.decryptChoice(ballot)
		if err != nil {
			return nil, err
		}
		return &Output{Plaintext: &choice}, nil

	case KindVerify:
		ballot, winningID, err := verifyArgs(req.Args)
		if err != nil {
			return nil, err
		}
		choice, err := e.decryptChoice(ballot)
		if err != nil {
			return nil, err
		}
		valid := choice == winningID
		return &Output{Valid: &valid}, nil

	default:
		return nil, fmt.Errorf("unknown circuit kind %d", req.Kind)
	}
}

// EncryptChoice produces a ballot ciphertext in the voter-shared context.
// It stands in for the client-side encryption a real voter performs against
// the cluster key; tests and the local demo client use it.
func (e *SimEngine) EncryptChoice(choice uint8, publicKey types.HexBytes, nonce types.Nonce) types.Ciphertext {
	var pt [types.CiphertextSize]byte
	pt[0] = choice
	return e.xorPad(pt, "ballot", publicKey, nonce.Bytes())
}

func (e *SimEngine) decryptChoice(ballot Argument) (uint8, error) {
	if ballot.Owner != types.KeyOwnerShared || len(ballot.PublicKey) == 0 {
		return 0, errors.New("ballot argument is not in the shared context")
	}
	pt := e.xorPad(ballot.Ciphertext, "ballot", ballot.PublicKey, ballot.Nonce.Bytes())
	return pt[0], nil
}

func (e *SimEngine) encryptTally(counters [types.MaxProposals]uint64, nonce types.Nonce) *TallyOutput {
	out := &TallyOutput{Nonce: nonce}
	for i, v := range counters {
		var pt [types.CiphertextSize]byte
		binary.BigEndian.PutUint64(pt[:8], v)
		out.Ciphertexts[i] = e.xorPad(pt, "tally", nonce.Bytes(), []byte{byte(i)})
	}
	return out
}

func (e *SimEngine) decryptTally(ref TallyRef, nonce types.Nonce) ([types.MaxProposals]uint64, error) {
	var counters [types.MaxProposals]uint64
	raw, err := e.resolver.ResolveRef(ref)
	if err != nil {
		return counters, fmt.Errorf("resolve tally reference: %w", err)
	}
	if len(raw) != types.MaxProposals*types.CiphertextSize {
		return counters, fmt.Errorf("unexpected tally length %d", len(raw))
	}
	for i := range counters {
		var ct types.Ciphertext
		copy(ct[:], raw[i*types.CiphertextSize:])
		pt := e.xorPad(ct, "tally", nonce.Bytes(), []byte{byte(i)})
		counters[i] = binary.BigEndian.Uint64(pt[:8])
	}
	return counters, nil
}

// xorPad is its own inverse: the same call encrypts and decrypts.
func (e *SimEngine) xorPad(data [types.CiphertextSize]byte, context string, parts ...[]byte) [types.CiphertextSize]byte {
	h := sha256.New()
	h.Write(e.secret[:])
	h.Write([]byte(context))
	for _, p := range parts {
		h.Write(p)
	}
	var pad [types.CiphertextSize]byte
	copy(pad[:], h.Sum(nil))
	var out [types.CiphertextSize]byte
	for i := range data {
		out[i] = data[i] ^ pad[i]
	}
	return out
}

// freshNonce samples a nonce guaranteed to differ from prev, so every tally
// replacement is re-randomized.
func (e *SimEngine) freshNonce(prev types.Nonce) types.Nonce {
	for {
		var n types.Nonce
		if _, err := rand.Read(n[:]); err != nil {
			panic(err)
		}
		if !n.Equal(prev) {
			return n
		}
	}
}

func singleNonceArg(args []Argument) (types.Nonce, error) {
	if len(args) != 1 || args[0].Kind != ArgNonce {
		return types.Nonce{}, errors.New("init expects a single nonce argument")
	}
	return args[0].Nonce, nil
}

func singleEncryptedArg(args []Argument) (Argument, error) {
	if len(args) != 1 || args[0].Kind != ArgEncrypted {
		return Argument{}, errors.New("decrypt expects a single encrypted argument")
	}
	return args[0], nil
}

func voteArgs(args []Argument) (Argument, types.Nonce, TallyRef, error) {
	if len(args) != 3 || args[0].Kind != ArgEncrypted || args[1].Kind != ArgNonce || args[2].Kind != ArgTallyRef {
		return Argument{}, types.Nonce{}, TallyRef{}, errors.New("vote expects encrypted ballot, tally nonce and tally reference")
	}
	return args[0], args[1].Nonce, args[2].Ref, nil
}

func revealArgs(args []Argument) (types.Nonce, TallyRef, error) {
	if len(args) != 2 || args[0].Kind != ArgNonce || args[1].Kind != ArgTallyRef {
		return types.Nonce{}, TallyRef{}, errors.New("reveal expects tally nonce and tally reference")
	}
	return args[0].Nonce, args[1].Ref, nil
}

func verifyArgs(args []Argument) (Argument, uint8, error) {
	if len(args) != 2 || args[0].Kind != ArgEncrypted || args[1].Kind != ArgPlaintext {
		return Argument{}, 0, errors.New("verify expects encrypted ballot and winning proposal id")
	}
	return args[0], uint8(args[1].Plaintext), nil
}
