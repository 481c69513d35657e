package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		cfg   server.Config
		flags runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout engine over HTTP until interrupted.

  GET  /healthz
  POST /v1/layout       lay out a YAML or JSON plan
  POST /v1/check        grade scenes for overflow
  POST /v1/transition   plan continuity effects between two scenes
  GET  /v1/runs         recent runs (?limit=N)
  GET  /v1/runs/{id}    one recorded run

Requests carrying X-Client-ID get their own cache namespace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(flags)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}

			srv := server.New(runner, opts, cfg, c.Logger)
			printInfo("Listening on %s", StyleHighlight.Render("http://"+cfg.Addr))
			if cfg.Token == "" {
				printDetail("no --token set; the API is unauthenticated")
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&cfg.Token, "token", "", "bearer token required on /v1 routes")
	cmd.Flags().Int64Var(&cfg.MaxBody, "max-body", server.DefaultMaxBody, "maximum request body in bytes")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&flags.noStore, "no-history", false, "do not record runs")
	return cmd
}
