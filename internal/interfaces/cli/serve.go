package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pagesmith.dev/engine/internal/application/ports"
)

// newServeCommand creates the serve command
func (a *App) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine to page contexts",
		Long: `Serve the engine over HTTP until interrupted.

  POST /v1/messages   one request per call, answered with a response
  GET  /v1/events     websocket stream of reload notifications
  GET  /metrics       Prometheus metrics (when enabled)
  GET  /healthz       liveness and store summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			if err := c.HealthCheck(ctx); err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, a.styles.title.Render("Pagesmith engine listening on "+a.config.ListenAddr))
			if err := c.HTTPServer().Serve(ctx, a.config.ListenAddr); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			c.Gateway.Log(ports.LogLevelInfo, "server stopped", nil)
			return nil
		},
	}
}
