package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/model/nano"
)

// InsertAccount inserts the chain record for an account.
func InsertAccount(account nano.Account, info *nano.AccountInfo) func(*badger.Txn) error {
	return insert(makePrefix(codeAccount, account), info)
}

// UpsertAccount writes the chain record for an account, overwriting any
// previous version.
func UpsertAccount(account nano.Account, info *nano.AccountInfo) func(*badger.Txn) error {
	return upsert(makePrefix(codeAccount, account), info)
}

// RetrieveAccount retrieves the chain record for an account.
func RetrieveAccount(account nano.Account, info *nano.AccountInfo) func(*badger.Txn) error {
	return retrieve(makePrefix(codeAccount, account), info)
}
