package schema

import (
	"fmt"

	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/spf13/cobra"
)

var (
	// SchemaCommands represents the schema command group
	SchemaCommands = &cobra.Command{
		Use:   "schema",
		Short: "Inspect the schema version of a store",
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Prints the stored and the supported schema version",
		Long: util.WrapString(`Opens the store, which migrates it to the supported version if needed,
and prints the stored schema version afterwards.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := util.OpenBackend(cmd)
			if err != nil {
				return err
			}
			defer backend.Close()

			version, err := backend.StoreVersion()
			if err != nil {
				return err
			}
			fmt.Printf("stored=%d, supported=%d\n", version, store.LatestSchemaVersion)
			return nil
		},
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Opens the store and reports the outcome",
		Long: util.WrapString(`Opens the store and prints how the initialization went, including
a corruption recovery and the return code of a failure. Exits with an error if the store
cannot be used.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, path, err := util.NewBackend(cmd)
			if err != nil {
				return err
			}

			initErr := backend.Init(path)
			fmt.Printf("path=%s\n", path)
			fmt.Printf("outcome=%s\n", backend.Outcome())
			fmt.Printf("recovery=%s\n", backend.Recovery())
			if initErr != nil {
				fmt.Printf("code=%s\n", store.CodeOf(initErr))
				return initErr
			}
			defer backend.Close()

			version, err := backend.StoreVersion()
			if err != nil {
				return err
			}
			fmt.Printf("version=%d\n", version)
			return nil
		},
	}
)

func init() {
	// Add subcommands
	SchemaCommands.AddCommand(versionCmd)
	SchemaCommands.AddCommand(checkCmd)
}
