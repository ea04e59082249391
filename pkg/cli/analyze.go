package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gatherlens/gatherlens/pkg/service"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:                  "analyze",
		EnableShellCompletion: true,
		Usage:                 "Run health analysis against a parsed capture",
		ArgsUsage:             "<capture-id>",
		Description: `Evaluates the indexed state of a capture and reports findings.

Categories:

  cluster   Cluster operator and machine config pool health
  nodes     Node readiness, resource pressure and heartbeat staleness
  pods      Crash loops, restart flapping and scheduling failures
  all       Every enabled category (default)

Findings carry a severity (critical, warning, info), the subject
resource and supporting evidence such as events, restart counts or
container images. Analysis is read-only and never mutates the capture.

# Examples

Full report:
  glens analyze <id>

Cluster health only, actionable findings only:
  glens analyze <id> --category cluster --actionable-only

Pod health for one namespace, with log references:
  glens analyze <id> --category pods --namespace openshift-etcd --include-logs`,
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "category",
				Value: "all",
				Usage: "Analysis category (cluster, nodes, pods, all)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "Restrict pod analysis to one namespace",
			},
			&cli.StringFlag{
				Name:  "node",
				Usage: "Restrict node analysis to one node",
			},
			&cli.BoolFlag{
				Name:  "include-logs",
				Usage: "Attach container log references to pod findings",
			},
			&cli.BoolFlag{
				Name:  "actionable-only",
				Usage: "Drop informational findings from cluster analysis",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("a capture id argument is required")
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			var rep *service.AnalysisReport
			switch category := cmd.String("category"); category {
			case "cluster":
				rep, err = svc.AnalyzeClusterHealth(ctx, id, cmd.Bool("actionable-only"))
			case "nodes":
				rep, err = svc.AnalyzeNodes(ctx, id, cmd.String("node"))
			case "pods":
				rep, err = svc.AnalyzePods(ctx, id, cmd.String("namespace"), cmd.Bool("include-logs"))
			case "all":
				rep, err = svc.AnalyzeAll(ctx, id)
			default:
				return fmt.Errorf("unknown analysis category %q, valid categories are: cluster, nodes, pods, all", category)
			}
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, rep)
		},
	}
}
