package nano

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Account is the public key identifying one account chain.
type Account [32]byte

// ZeroAccount is the null account.
var ZeroAccount = Account{}

// AccountFromHex parses a hex-encoded account.
func AccountFromHex(s string) (Account, error) {
	var account Account
	raw, err := hex.DecodeString(s)
	if err != nil {
		return account, fmt.Errorf("could not decode account hex: %w", err)
	}
	if len(raw) != len(account) {
		return account, fmt.Errorf("invalid account length (%d != %d)", len(raw), len(account))
	}
	copy(account[:], raw)
	return account, nil
}

// IsZero returns true if the account is the null account.
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

func (a Account) String() string {
	return hex.EncodeToString(a[:])
}

func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	var err error
	*a, err = AccountFromHex(string(text))
	return err
}

// Order defines a stable byte-wise ordering over accounts, used for
// deterministic iteration in tooling.
func Order(a1 Account, a2 Account) int {
	return bytes.Compare(a1[:], a2[:])
}

// AccountInfo is the per-account chain record kept by the ledger store.
type AccountInfo struct {
	OpenBlock  BlockHash
	HeadBlock  BlockHash
	BlockCount uint64
}
