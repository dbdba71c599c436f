package storage

import (
	"bytes"
	"fmt"

	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/types"
)

// TallyReference returns a reference to the full ciphertext region of the
// current tally, suitable as a computation request argument.
func (s *Storage) TallyReference() mpc.TallyRef {
	return mpc.TallyRef{
		Key:    tallyKey,
		Offset: 0,
		Length: types.MaxProposals * types.CiphertextSize,
	}
}

// ResolveRef implements mpc.RefResolver: it reads the referenced byte region
// of the authoritative tally so the engine always computes against the
// latest state.
func (s *Storage) ResolveRef(ref mpc.TallyRef) ([]byte, error) {
	if !bytes.Equal(ref.Key, tallyKey) {
		return nil, fmt.Errorf("unknown tally reference key %x", ref.Key)
	}
	tally, err := s.Tally()
	if err != nil {
		return nil, err
	}
	raw := tally.Raw()
	if ref.Offset < 0 || ref.Length < 0 || ref.Offset+ref.Length > len(raw) {
		return nil, fmt.Errorf("tally reference out of range: offset %d length %d", ref.Offset, ref.Length)
	}
	return raw[ref.Offset : ref.Offset+ref.Length], nil
}
