package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/gatherlens/gatherlens/pkg/capture"
	"github.com/gatherlens/gatherlens/pkg/uri"
)

func parseCmd() *cli.Command {
	return &cli.Command{
		Name:                  "parse",
		EnableShellCompletion: true,
		Usage:                 "Parse a diagnostic capture into a queryable index",
		ArgsUsage:             "<source>",
		Description: `Ingests one capture and makes it available for queries and analysis.

The source may be:

  - a directory containing an extracted capture
  - a .tar or .tar.gz capture archive
  - a file:// URI pointing at either of the above
  - an oci:// reference to a capture pushed as an OCI artifact

Archives are extracted into a sandbox with traversal, symlink and size
guards; captures from untrusted sources are safe to parse. The printed id
addresses the capture in the other commands and in capture:// URIs.

# Examples

Parse a local archive:
  glens parse ./must-gather.tar.gz

Parse an already extracted directory:
  glens parse ./must-gather.local.123456

Pull and parse from a registry:
  glens parse oci://ghcr.io/org/captures:case-1234`,
		Flags: outputFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			source := cmd.Args().First()
			if source == "" {
				return fmt.Errorf("a capture source argument is required")
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			c, err := svc.ParseCapture(ctx, source)
			if err != nil {
				slog.Error("capture parse failed", "source", source, "error", err)
				return err
			}

			return writeResult(ctx, cmd, parseResult(c))
		},
	}
}

// parseView is the CLI representation of a freshly parsed capture.
type parseView struct {
	ID          string              `json:"id" yaml:"id"`
	URI         string              `json:"uri" yaml:"uri"`
	Source      string              `json:"source" yaml:"source"`
	ClusterInfo capture.ClusterInfo `json:"clusterInfo" yaml:"clusterInfo"`
	Summary     capture.Summary     `json:"summary" yaml:"summary"`
	Warnings    []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func parseResult(c *capture.Capture) parseView {
	return parseView{
		ID:          c.ID,
		URI:         uri.Ref{CaptureID: c.ID}.String(),
		Source:      c.Source,
		ClusterInfo: c.ClusterInfo,
		Summary:     c.Summarize(),
		Warnings:    c.Warnings,
	}
}
