package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/gatherlens/gatherlens/pkg/api"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the capture analysis HTTP API",
		Description: `Starts the HTTP API exposing parse, query and analysis operations.

The server listens on GLENS_PORT (default 8080) and serves the v1 REST
surface under /v1/captures, plus /health, /ready and Prometheus metrics
on /metrics. It shuts down gracefully on SIGINT and SIGTERM.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return api.Serve()
		},
	}
}
