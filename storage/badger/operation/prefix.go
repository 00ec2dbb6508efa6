package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/ArTombado/rsnano-node/model/nano"
)

const (
	// codes for ledger entities
	codeBlock              = 1
	codeAccount            = 2
	codeConfirmationHeight = 3
	codePruned             = 4
)

func makePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, b(key)...)
	}
	return prefix
}

func b(v interface{}) []byte {
	switch i := v.(type) {
	case uint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, i)
		return b
	case nano.BlockHash:
		return i[:]
	case nano.Account:
		return i[:]
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
