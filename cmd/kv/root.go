package kv

import (
	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/spf13/cobra"
)

var (
	backend *store.Backend

	// KeyValueCommands represents the record command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Read and write the records of a store",
		PersistentPreRunE:  openStore,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	// Add subcommands
	KeyValueCommands.AddCommand(listCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(dropCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// openStore initializes the backend of the configured store
func openStore(cmd *cobra.Command, _ []string) (err error) {
	backend, err = util.OpenBackend(cmd)
	return err
}

func closeStore(_ *cobra.Command, _ []string) error {
	return backend.Close()
}
