package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Ciphertext is one opaque encrypted value produced by the confidential
// computation engine. It has no locally inspectable structure and must never
// be branched on.
type Ciphertext [CiphertextSize]byte

// Bytes returns the ciphertext as a byte slice.
func (c Ciphertext) Bytes() []byte {
	return c[:]
}

// String returns the hexadecimal representation of the ciphertext.
func (c Ciphertext) String() string {
	return hex.EncodeToString(c[:])
}

// CiphertextFromBytes builds a Ciphertext from a byte slice of exactly
// CiphertextSize bytes.
func CiphertextFromBytes(data []byte) (Ciphertext, error) {
	var c Ciphertext
	if len(data) != CiphertextSize {
		return c, fmt.Errorf("invalid ciphertext length: %d", len(data))
	}
	copy(c[:], data)
	return c, nil
}

// Nonce is the 128 bit re-randomization nonce attached to the encrypted
// tally. A fresh tally state must always carry a nonce strictly different
// from the previous one.
type Nonce [NonceSize]byte

// Bytes returns the nonce as a byte slice.
func (n Nonce) Bytes() []byte {
	return n[:]
}

// String returns the hexadecimal representation of the nonce.
func (n Nonce) String() string {
	return hex.EncodeToString(n[:])
}

// Equal reports whether two nonces hold the same value.
func (n Nonce) Equal(other Nonce) bool {
	return bytes.Equal(n[:], other[:])
}

// NonceFromBytes builds a Nonce from a byte slice of exactly NonceSize bytes.
func NonceFromBytes(data []byte) (Nonce, error) {
	var n Nonce
	if len(data) != NonceSize {
		return n, fmt.Errorf("invalid nonce length: %d", len(data))
	}
	copy(n[:], data)
	return n, nil
}

// Tally is the encrypted per-proposal vote counter vector plus its nonce.
// It is mutated only by successful Init or Vote computation callbacks, always
// by wholesale replacement.
type Tally struct {
	RoundID     uint64                   `json:"roundId"     cbor:"0,keyasint"`
	Ciphertexts [MaxProposals]Ciphertext `json:"ciphertexts" cbor:"1,keyasint"`
	Nonce       Nonce                    `json:"nonce"       cbor:"2,keyasint"`
}

// Raw returns the concatenation of all ciphertext slots, the byte region a
// tally reference points the engine at.
func (t *Tally) Raw() []byte {
	out := make([]byte, 0, MaxProposals*CiphertextSize)
	for i := range t.Ciphertexts {
		out = append(out, t.Ciphertexts[i][:]...)
	}
	return out
}

// KeyOwner tags who holds the decryption context of an encrypted value.
type KeyOwner uint8

const (
	// KeyOwnerEngine marks values re-encrypted under the computation
	// engine's own cluster key, such as the tally slots.
	KeyOwnerEngine KeyOwner = iota
	// KeyOwnerShared marks values encrypted under a key shared between a
	// voter and the engine; they carry the voter's ephemeral public key.
	KeyOwnerShared
)

func (o KeyOwner) String() string {
	switch o {
	case KeyOwnerEngine:
		return "engine"
	case KeyOwnerShared:
		return "shared"
	default:
		return fmt.Sprintf("unknown(%d)", o)
	}
}
