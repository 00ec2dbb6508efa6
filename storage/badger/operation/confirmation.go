package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/model/nano"
)

// UpsertConfirmationHeight writes the cemented watermark for an account.
// This is the only record the cementation engine ever mutates.
func UpsertConfirmationHeight(account nano.Account, info nano.ConfirmationHeightInfo) func(*badger.Txn) error {
	return upsert(makePrefix(codeConfirmationHeight, account), info)
}

// RetrieveConfirmationHeight retrieves the cemented watermark for an account.
func RetrieveConfirmationHeight(account nano.Account, info *nano.ConfirmationHeightInfo) func(*badger.Txn) error {
	return retrieve(makePrefix(codeConfirmationHeight, account), info)
}

// TraverseConfirmationHeights iterates all confirmation height records,
// invoking the handler with each account and its watermark.
func TraverseConfirmationHeights(handler func(account nano.Account, info nano.ConfirmationHeightInfo) error) func(*badger.Txn) error {
	prefix := makePrefix(codeConfirmationHeight)
	return traverse(prefix, func() (checkFunc, createFunc, handleFunc) {
		var account nano.Account
		check := func(key []byte) bool {
			if len(key) != len(prefix)+len(account) {
				return false
			}
			copy(account[:], key[len(prefix):])
			return true
		}
		var info nano.ConfirmationHeightInfo
		create := func() interface{} {
			return &info
		}
		handle := func() error {
			return handler(account, info)
		}
		return check, create, handle
	})
}
