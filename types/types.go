package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// MaxProposals is the maximum number of proposals accepted per round.
	MaxProposals = 10
	// CiphertextSize is the fixed size in bytes of an opaque ciphertext slot.
	CiphertextSize = 32
	// NonceSize is the size in bytes of a tally re-randomization nonce.
	NonceSize = 16
	// MaxTitleLen is the maximum length of a proposal title.
	MaxTitleLen = 50
	// MaxDescriptionLen is the maximum length of a proposal description.
	MaxDescriptionLen = 200
	// MaxURLLen is the maximum length of a proposal URL.
	MaxURLLen = 200
)

// HexBytes is a []byte which encodes as hexadecimal in JSON.
type HexBytes []byte

// String returns the hexadecimal representation of the bytes.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalJSON encodes the bytes as a quoted hexadecimal string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON decodes a quoted hexadecimal string, with or without the
// leading "0x" prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	s := strings.TrimPrefix(string(data[1:len(data)-1]), "0x")
	dec, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = dec
	return nil
}
