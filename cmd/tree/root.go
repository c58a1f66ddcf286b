package tree

import (
	"github.com/ValentinKolb/scallionDB/cmd/util"
	"github.com/ValentinKolb/scallionDB/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// TreeCommands represents the tree command group
	TreeCommands = &cobra.Command{
		Use:               "tree",
		Short:             "Perform tree operations against a scallionDB server",
		PersistentPreRunE: setupTreeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the tree command
	util.SetupRPCClientFlags(TreeCommands)

	// Add subcommands
	TreeCommands.AddCommand(getCmd)
	TreeCommands.AddCommand(attrsCmd)
	TreeCommands.AddCommand(putCmd)
	TreeCommands.AddCommand(putAttrsCmd)
	TreeCommands.AddCommand(delCmd)
	TreeCommands.AddCommand(delAttrsCmd)
	TreeCommands.AddCommand(loadCmd)
	TreeCommands.AddCommand(saveCmd)
	TreeCommands.AddCommand(showCmd)
	TreeCommands.AddCommand(perfTestCmd)
}

// setupTreeClient initializes the RPC client
func setupTreeClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	t, err := util.GetClientTransport(config.Transport)
	if err != nil {
		return err
	}

	rpcClient, err = client.New(*config, t)
	return err
}
