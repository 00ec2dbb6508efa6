// confheight is a small operator tool that dumps the cemented watermarks of a
// node's ledger: one line per account, with its confirmation height and
// cemented frontier.
package main

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/storage/badger/operation"
)

func main() {
	var datadir string

	cmd := &cobra.Command{
		Use:   "confheight",
		Short: "dump the cemented confirmation heights of a ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(datadir)
		},
	}
	cmd.Flags().StringVar(&datadir, "datadir", "", "directory of the badger ledger database")
	_ = cmd.MarkFlagRequired("datadir")

	if err := cmd.Execute(); err != nil {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("could not dump confirmation heights")
	}
}

func run(datadir string) error {
	opts := badger.
		DefaultOptions(datadir).
		WithReadOnly(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("could not open ledger database: %w", err)
	}
	defer db.Close()

	var accounts uint64
	var blocks uint64
	err = db.View(operation.TraverseConfirmationHeights(func(account nano.Account, info nano.ConfirmationHeightInfo) error {
		fmt.Printf("%s height=%d frontier=%s\n", account, info.Height, info.Frontier)
		accounts++
		blocks += info.Height
		return nil
	}))
	if err != nil {
		return fmt.Errorf("could not traverse confirmation heights: %w", err)
	}

	fmt.Printf("accounts=%d cemented_blocks=%d\n", accounts, blocks)
	return nil
}
