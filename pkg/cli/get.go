package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gatherlens/gatherlens/pkg/uri"
)

func getCmd() *cli.Command {
	return &cli.Command{
		Name:                  "get",
		EnableShellCompletion: true,
		Usage:                 "Query indexed resources from a parsed capture",
		ArgsUsage:             "capture://<id>[/<resource-type>[/<namespace>]]",
		Description: `Queries the resource index of a parsed capture by capture URI.

Resource types are matched case-insensitively and accept plural forms,
so "pods", "Pod" and "pod" are equivalent. An unknown type fails with
the closest indexed type as a suggestion.

# Examples

All pods in one namespace:
  glens get capture://<id>/pods/kube-system

One named resource:
  glens get capture://<id>/nodes --name worker-0

Everything in the capture, as a table:
  glens get capture://<id> --format table`,
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "Select a single resource by name",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw := cmd.Args().First()
			if raw == "" {
				return fmt.Errorf("a capture:// URI argument is required")
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			if name := cmd.String("name"); name != "" {
				ref, err := uri.Parse(raw)
				if err != nil {
					return err
				}
				rec, err := svc.GetResource(ref.CaptureID, ref.ResourceType, ref.Namespace, name)
				if err != nil {
					return err
				}
				return writeResult(ctx, cmd, rec)
			}

			recs, err := svc.ResolveURI(raw)
			if err != nil {
				return err
			}
			return writeResult(ctx, cmd, recs)
		},
	}
}
