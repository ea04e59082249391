package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

func capturesCmd() *cli.Command {
	return &cli.Command{
		Name:                  "captures",
		EnableShellCompletion: true,
		Usage:                 "List and evict stored captures",
		Description: `Lists the captures currently held in local storage, newest first.

Each entry shows the capture id, its original source and a resource
summary. Use the evict subcommand to remove a capture and reclaim its
extraction sandbox.

# Examples

List as a table:
  glens captures --format table

Remove one capture:
  glens captures evict <id>`,
		Flags: outputFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			captures := svc.ListCaptures()
			views := make([]captureListView, 0, len(captures))
			for _, c := range captures {
				views = append(views, captureListView{
					ID:          c.ID,
					Source:      c.Source,
					ExtractedAt: c.ExtractedAt.String(),
					Resources:   c.Summarize().ResourceCount,
				})
			}
			return writeResult(ctx, cmd, views)
		},
		Commands: []*cli.Command{
			evictCmd(),
		},
	}
}

type captureListView struct {
	ID          string `json:"id" yaml:"id"`
	Source      string `json:"source" yaml:"source"`
	ExtractedAt string `json:"extractedAt" yaml:"extractedAt"`
	Resources   int    `json:"resources" yaml:"resources"`
}

func evictCmd() *cli.Command {
	return &cli.Command{
		Name:      "evict",
		Usage:     "Remove a stored capture and its extraction sandbox",
		ArgsUsage: "<capture-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("a capture id argument is required")
			}

			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.EvictCapture(id); err != nil {
				return err
			}
			slog.Info("capture evicted", "id", id)
			return nil
		},
	}
}
