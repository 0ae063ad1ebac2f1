package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/syncstore/cmd/kv"
	"github.com/ValentinKolb/syncstore/cmd/schema"
	"github.com/ValentinKolb/syncstore/cmd/stats"
	"github.com/ValentinKolb/syncstore/cmd/tabs"
	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "syncstore",
		Short: "durable record store for sync data",
		Long: fmt.Sprintf(`syncstore (v%s)

A durable, prefix-namespaced record store with schema versioning
and corruption recovery, plus the tab node bookkeeping of synced sessions.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of syncstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("syncstore v%s (schema v%d)\n", Version, store.LatestSchemaVersion)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(tabs.TabCommands)
	RootCmd.AddCommand(schema.SchemaCommands)
	RootCmd.AddCommand(stats.StatsCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
