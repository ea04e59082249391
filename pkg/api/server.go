package api

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/gatherlens/gatherlens/pkg/config"
	"github.com/gatherlens/gatherlens/pkg/logging"
	"github.com/gatherlens/gatherlens/pkg/server"
	"github.com/gatherlens/gatherlens/pkg/service"
	"github.com/gatherlens/gatherlens/pkg/store"
)

const (
	name           = "gatherlens-api"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/gatherlens/gatherlens/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve starts the API server and blocks until shutdown.
// It configures logging, wires the capture service into the routes, and
// handles graceful shutdown. Returns an error if the server fails to start
// or encounters a fatal error.
func Serve() error {
	ctx := context.Background()

	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg := config.DefaultConfig()
	st, err := store.Open(filepath.Join(cfg.StorageDir, "captures"))
	if err != nil {
		slog.Error("failed to open capture store", "error", err)
		return err
	}
	svc := service.New(cfg, st)

	// Create and run server
	s := server.New(
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(routes(svc)),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}
