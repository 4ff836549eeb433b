package main

import (
	"github.com/spf13/cobra"

	"github.com/OCAP2/dockyard/internal/config"
)

type rootOptions struct {
	configDir string
	serverURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dockyard",
		Short: "Modular space station docking simulator",
		Long: `Dockyard grows a modular space station: launched modules find a free
docking slot around the active hub, fly a closed-loop approach and join
the station's connectivity graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(opts.configDir)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configDir, "config-dir", "c", ".", "directory holding "+config.FileName+" and .env")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "dockyard API URL (default server.url)")

	root.AddCommand(
		newServeCmd(),
		newSimulateCmd(),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	root.AddCommand(newControlCmds(opts)...)
	return root
}

// apiURL returns the --server flag or the configured server URL.
func (o *rootOptions) apiURL() string {
	if o.serverURL != "" {
		return o.serverURL
	}
	return config.GetServerConfig().URL
}
