package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/gatherlens/gatherlens/pkg/config"
	"github.com/gatherlens/gatherlens/pkg/logging"
	"github.com/gatherlens/gatherlens/pkg/serializer"
	"github.com/gatherlens/gatherlens/pkg/service"
	"github.com/gatherlens/gatherlens/pkg/store"
)

const appName = "glens"

var (
	// overridden during build with ldflags to reflect actual version info
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Run executes the CLI with the given arguments.
func Run(ctx context.Context, args []string) error {
	root := &cli.Command{
		Name:                  appName,
		Usage:                 "Parse and analyze cluster diagnostic captures",
		Version:               fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				logging.SetDefaultStructuredLoggerWithLevel(appName, version, "debug")
			} else {
				logging.SetDefaultStructuredLogger(appName, version)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			parseCmd(),
			getCmd(),
			analyzeCmd(),
			capturesCmd(),
			serveCmd(),
		},
	}

	return root.Run(ctx, args)
}

// newService builds the local pipeline service used by all non-serve
// commands.
func newService() (*service.Service, error) {
	cfg := config.DefaultConfig()
	st, err := store.Open(filepath.Join(cfg.StorageDir, "captures"))
	if err != nil {
		return nil, fmt.Errorf("failed to open capture store: %w", err)
	}
	return service.New(cfg, st), nil
}

// outputFlags are shared by every command that writes results.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   "",
			Usage:   "Output file path (default: stdout)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"t"},
			Value:   string(serializer.FormatJSON),
			Usage:   "Output format (json, yaml, table)",
		},
	}
}

// parseOutputFormat extracts and validates the output format from CLI flags.
// Returns the validated format or an error if the format is unknown.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q, valid formats are: %v",
			outFormat, serializer.SupportedFormats())
	}
	return outFormat, nil
}

// writeResult serializes v according to the command's output flags.
func writeResult(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	w, err := serializer.NewFileWriterOrStdout(format, cmd.String("output"))
	if err != nil {
		return err
	}
	if closer, ok := w.(serializer.Closer); ok {
		defer closer.Close()
	}
	return w.Serialize(ctx, v)
}
