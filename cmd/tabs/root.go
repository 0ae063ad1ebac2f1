package tabs

import (
	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/ValentinKolb/syncstore/lib/tabstore"
	"github.com/spf13/cobra"
)

var (
	backend *store.Backend
	tracker *tabstore.Tracker

	// TabCommands represents the tab node command group
	TabCommands = &cobra.Command{
		Use:                "tabs",
		Short:              "Manage the tab nodes of a store",
		PersistentPreRunE:  setupTracker,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	// Add subcommands
	TabCommands.AddCommand(listCmd)
	TabCommands.AddCommand(openCmd)
	TabCommands.AddCommand(moveCmd)
	TabCommands.AddCommand(closeCmd)
	TabCommands.AddCommand(compactCmd)
}

// setupTracker opens the configured store and loads its tab nodes
func setupTracker(cmd *cobra.Command, _ []string) error {
	var err error
	if backend, err = util.OpenBackend(cmd); err != nil {
		return err
	}
	if tracker, err = util.GetTracker(backend); err != nil {
		_ = backend.Close()
		return err
	}
	return nil
}

func closeStore(_ *cobra.Command, _ []string) error {
	return backend.Close()
}
