package nano

import (
	"encoding/hex"
	"fmt"
)

// HashLen is the size of a block hash in bytes.
const HashLen = 32

// BlockHash identifies a block in the ledger. Hashes are opaque to this
// layer; they are assigned when the block is validated and stored.
type BlockHash [HashLen]byte

// ZeroHash is the null hash, used to terminate account chains.
var ZeroHash = BlockHash{}

// HashFromHex parses a hex-encoded block hash.
func HashFromHex(s string) (BlockHash, error) {
	var hash BlockHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return hash, fmt.Errorf("could not decode hash hex: %w", err)
	}
	if len(raw) != HashLen {
		return hash, fmt.Errorf("invalid hash length (%d != %d)", len(raw), HashLen)
	}
	copy(hash[:], raw)
	return hash, nil
}

// IsZero returns true if the hash is the null hash.
func (h BlockHash) IsZero() bool {
	return h == ZeroHash
}

func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h BlockHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *BlockHash) UnmarshalText(text []byte) error {
	var err error
	*h, err = HashFromHex(string(text))
	return err
}
