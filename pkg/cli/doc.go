// Package cli implements the command-line interface for the gatherlens
// capture analysis tool.
//
// # Overview
//
// The glens CLI parses must-gather diagnostic captures into a queryable
// resource index and runs offline health analysis against it. It is
// designed for SREs and support engineers triaging cluster problems from
// captured state, without access to the live cluster.
//
// # Commands
//
// parse - Ingest a capture (Step 1):
//
//	glens parse ./must-gather.tar.gz
//	glens parse ./must-gather-dir --format yaml
//	glens parse oci://ghcr.io/org/captures:case-1234
//
// Extracts the archive into a sandbox, indexes every resource manifest,
// correlates events to the objects they involve and persists the result.
// Prints the capture id used by the other commands.
//
// get - Query indexed resources (Step 2):
//
//	glens get capture://<id>/pods/kube-system
//	glens get capture://<id>/nodes --format table
//	glens get capture://<id>/pods/kube-system --name etcd-0
//
// analyze - Run health analysis (Step 3):
//
//	glens analyze <id>
//	glens analyze <id> --category cluster
//	glens analyze <id> --category pods --namespace kube-system --include-logs
//
// captures - List and evict stored captures:
//
//	glens captures
//	glens captures evict <id>
//
// serve - Run the HTTP API:
//
//	glens serve
//
// # Global Flags
//
//	--output, -o   Output file path (default: stdout)
//	--format, -t   Output format: yaml, json, table (default: json)
//	--debug        Enable debug logging
//
// # Environment Variables
//
//	GLENS_STORAGE_DIR         Capture storage directory
//	GLENS_MAX_CAPTURE_MB      Extraction size limit
//	GLENS_OPERATION_TIMEOUT   Per-operation timeout (e.g. 5m)
//	GLENS_LOG_LEVEL           Logging verbosity (debug, info, warn, error)
//
// # Architecture
//
// The CLI uses the urfave/cli/v3 framework and delegates to specialized
// packages:
//   - pkg/service - Pipeline orchestration
//   - pkg/extract - Sandboxed archive extraction
//   - pkg/index - Resource indexing
//   - pkg/analyze - Health analyzers
//   - pkg/serializer - Output formatting
//   - pkg/logging - Structured logging
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/gatherlens/gatherlens/pkg/cli.version=1.0.0'"
package cli
