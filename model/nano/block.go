package nano

// BlockType distinguishes the ledger operations an account chain can record.
type BlockType uint8

const (
	BlockTypeInvalid BlockType = iota
	// BlockTypeSend debits this account in favour of another.
	BlockTypeSend
	// BlockTypeReceive credits funds from another account's send block.
	BlockTypeReceive
	// BlockTypeOpen is the first block of an account chain; it receives the
	// funds that opened the account.
	BlockTypeOpen
	// BlockTypeChange updates the account's representative.
	BlockTypeChange
	// BlockTypeEpoch upgrades the account chain to a new epoch. Its link
	// field carries the epoch identifier, not a block reference.
	BlockTypeEpoch
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeSend:
		return "send"
	case BlockTypeReceive:
		return "receive"
	case BlockTypeOpen:
		return "open"
	case BlockTypeChange:
		return "change"
	case BlockTypeEpoch:
		return "epoch"
	default:
		return "invalid"
	}
}

// Block is one immutable entry of an account chain. The sideband fields
// (Height, Successor) are populated by the ledger when the block is stored,
// so that chains can be walked in both directions without re-deriving them.
type Block struct {
	Hash     BlockHash
	Type     BlockType
	Account  Account
	Previous BlockHash
	// Link references the send block being received (receive/open), or the
	// epoch identifier (epoch). Zero for send/change blocks.
	Link BlockHash
	// Height is the 1-based position of the block in its account chain.
	Height uint64
	// Successor is the next block of the account chain, zero at the head.
	Successor BlockHash
}

// Source returns the hash of the send block this block receives from, or the
// zero hash when the block creates no cross-account dependency. Epoch blocks
// carry an epoch identifier in their link, which is not a block reference.
func (b *Block) Source() BlockHash {
	switch b.Type {
	case BlockTypeReceive, BlockTypeOpen:
		return b.Link
	default:
		return ZeroHash
	}
}

// ConfirmationHeightInfo is the per-account cemented watermark: every block
// at or below Height is irreversibly confirmed, and Frontier is the block
// hash at exactly that height.
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier BlockHash
}
