package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/camml/pkg/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API",
		Long: `Serve runs the HTTP API until interrupted. Searches run in the background;
clients poll /v1/searches/{id} and fetch stored runs from /v1/runs.

The cache and run store come from the [cache] and [store] tables of the
config file, so a Redis cache and a MongoDB store can be shared by several
servers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			c.Logger.Info("starting server",
				"cache", cfg.Cache.Backend,
				"store", cfg.Store.Backend)
			return api.New(runner, c.Logger).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}
