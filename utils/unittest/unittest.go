package unittest

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	bstorage "github.com/ArTombado/rsnano-node/storage/badger"
)

// Logger returns a logger for tests. Set VERBOSE_LOGGING to see output.
func Logger() zerolog.Logger {
	writer := io.Discard
	if os.Getenv("VERBOSE_LOGGING") != "" {
		writer = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: writer}).With().Timestamp().Logger()
}

// RequireReturnsBefore requires that the given function returns before the
// duration expires.
func RequireReturnsBefore(t testing.TB, f func(), duration time.Duration, message string) {
	done := make(chan struct{})

	go func() {
		f()
		close(done)
	}()

	select {
	case <-time.After(duration):
		require.Fail(t, "function did not return on time: "+message)
	case <-done:
		return
	}
}

// RequireCloses requires that the given channel closes before the duration
// expires.
func RequireCloses(t testing.TB, ch <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
		require.Fail(t, "channel did not close on time: "+message)
	case <-ch:
		return
	}
}

func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "nano-testing-temp-")
	require.NoError(t, err)
	return dir
}

func RunWithTempDir(t testing.TB, f func(string)) {
	dbDir := TempDir(t)
	defer os.RemoveAll(dbDir)
	f(dbDir)
}

func BadgerDB(t testing.TB, dir string) *badger.DB {
	opts := badger.
		DefaultOptions(dir).
		WithKeepL0InMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	return db
}

func RunWithBadgerDB(t testing.TB, f func(*badger.DB)) {
	RunWithTempDir(t, func(dir string) {
		db := BadgerDB(t, dir)
		defer db.Close()
		f(db)
	})
}

// RunWithLedger runs the test function against a ledger on a fresh badger DB.
func RunWithLedger(t testing.TB, f func(*bstorage.Ledger)) {
	RunWithBadgerDB(t, func(db *badger.DB) {
		f(bstorage.NewLedger(db))
	})
}
