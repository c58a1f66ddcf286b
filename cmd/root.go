package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/scallionDB/cmd/serve"
	"github.com/ValentinKolb/scallionDB/cmd/tree"
	"github.com/ValentinKolb/scallionDB/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "scallion",
		Short: "in-memory tree database",
		Long: fmt.Sprintf(`scallionDB (v%s)

An in-memory database for JSON trees. A single broker serializes
conflicting operations per tree, a pool of workers executes them and
trees are persisted to disk after a configurable number of writes.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of scallionDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scallionDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(tree.TreeCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
