// Package index walks an extracted capture tree and builds the resource
// index. The directory layout is schema-tolerant: conventional must-gather
// locations are recognized by path pattern, and anything else is parsed
// best-effort by content sniffing. One bad file never aborts the build;
// failures are collected as data.
package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gatherlens/gatherlens/pkg/capture"
	glenserrors "github.com/gatherlens/gatherlens/pkg/errors"
	"github.com/gatherlens/gatherlens/pkg/manifest"
)

const (
	// sniffBytes is how much of an unrecognized file is inspected to decide
	// whether it looks like a structured manifest.
	sniffBytes = 512

	// defaultMaxManifestBytes bounds what is materialized into memory.
	// Anything larger is treated as a bulk file and skipped with a warning.
	defaultMaxManifestBytes = 16 << 20
)

// Indexer builds the resource index for one extracted capture.
type Indexer struct {
	// Workers bounds concurrent file parsing. Zero means a small default.
	Workers int

	// MaxManifestBytes is the largest file fully parsed into memory.
	MaxManifestBytes int64
}

// Result holds everything the indexer discovered. The service layer folds
// it into a Capture.
type Result struct {
	Index       *capture.Index
	Events      []capture.EventRecord
	Logs        []capture.LogRef
	Failures    []capture.ParseFailure
	Warnings    []string
	ClusterInfo capture.ClusterInfo
}

// fileResult is the parse output of one manifest file. Per-file results
// are folded into the index in sorted path order, so duplicate keys
// resolve the same way no matter how workers interleave.
type fileResult struct {
	rel      string
	records  []*capture.ResourceRecord
	events   []capture.EventRecord
	failures []capture.ParseFailure
}

// Build walks root and parses every manifest file into the index.
// Files are parsed across a bounded worker pool; cancellation is honored
// between file boundaries.
func (ix *Indexer) Build(ctx context.Context, root string) (*Result, error) {
	workers := ix.Workers
	if workers <= 0 {
		workers = 4
	}
	maxManifest := ix.MaxManifestBytes
	if maxManifest <= 0 {
		maxManifest = defaultMaxManifestBytes
	}

	captureRoot := findCaptureRoot(root)

	res := &Result{Index: capture.NewIndex()}
	var (
		mu     sync.Mutex
		parsed []fileResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := filepath.WalkDir(captureRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			mu.Lock()
			res.Failures = append(res.Failures, capture.ParseFailure{
				SourcePath: relPath(captureRoot, path),
				Error:      err.Error(),
			})
			mu.Unlock()
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := gctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel := relPath(captureRoot, path)

		if logRef, ok := classifyLog(rel, info.Size()); ok {
			mu.Lock()
			res.Logs = append(res.Logs, logRef)
			mu.Unlock()
			return nil
		}

		if info.Size() > maxManifest {
			mu.Lock()
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("skipped %q: %d bytes exceeds manifest limit", rel, info.Size()))
			mu.Unlock()
			return nil
		}

		if !looksLikeManifest(path, rel) {
			return nil
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := ix.parseFile(path, rel)
			mu.Lock()
			parsed = append(parsed, fr)
			mu.Unlock()
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, glenserrors.Wrap(glenserrors.ErrCodeTimeout, "indexing interrupted", err)
	}
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, glenserrors.Wrap(glenserrors.ErrCodeTimeout, "indexing interrupted", walkErr)
		}
		return nil, fmt.Errorf("failed to walk capture tree: %w", walkErr)
	}

	// Fold per-file results into the index in sorted path order. Duplicate
	// (kind, namespace, name) keys resolve last-write-wins over that order,
	// so re-parsing the same capture always keeps the same manifest.
	sort.Slice(parsed, func(a, b int) bool { return parsed[a].rel < parsed[b].rel })
	for _, fr := range parsed {
		res.Events = append(res.Events, fr.events...)
		res.Failures = append(res.Failures, fr.failures...)
		for _, rec := range fr.records {
			if res.Index.Put(rec) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("duplicate resource %s: kept manifest from %q", rec.Key, rec.SourcePath))
			}
		}
	}

	// Sort the collected slices so results are deterministic regardless of
	// walk and worker completion order.
	sort.Slice(res.Logs, func(a, b int) bool { return res.Logs[a].Path < res.Logs[b].Path })
	sort.Slice(res.Failures, func(a, b int) bool { return res.Failures[a].SourcePath < res.Failures[b].SourcePath })
	sort.Strings(res.Warnings)
	sort.Slice(res.Events, func(a, b int) bool {
		ea, eb := res.Events[a], res.Events[b]
		if !ea.LastTimestamp.Equal(eb.LastTimestamp) {
			return ea.LastTimestamp.Before(eb.LastTimestamp)
		}
		return ea.Name < eb.Name
	})

	res.ClusterInfo = extractClusterInfo(res.Index)

	slog.Debug("index build complete",
		slog.Int("resources", res.Index.Len()),
		slog.Int("events", len(res.Events)),
		slog.Int("logs", len(res.Logs)),
		slog.Int("failures", len(res.Failures)),
	)
	return res, nil
}

// parseFile decodes one manifest file into a standalone result. Failures
// are recorded, never propagated.
func (ix *Indexer) parseFile(path, rel string) fileResult {
	fr := fileResult{rel: rel}

	f, err := os.Open(path)
	if err != nil {
		fr.failures = append(fr.failures, capture.ParseFailure{SourcePath: rel, Error: err.Error()})
		return fr
	}
	defer f.Close()

	docs, decodeErr := manifest.DecodeAll(f)
	if decodeErr != nil {
		fr.failures = append(fr.failures, capture.ParseFailure{SourcePath: rel, Error: decodeErr.Error()})
	}

	pathNS := namespaceFromPath(rel)
	for _, doc := range docs {
		kind := doc.Kind()
		name := doc.Name()
		if kind == "" || name == "" {
			// Not a resource manifest; plain config files parse as YAML too.
			continue
		}

		if kind == capture.KindEvent {
			fr.events = append(fr.events, eventFromDocument(doc, pathNS))
			continue
		}

		namespace := doc.Namespace()
		if namespace == "" {
			namespace = pathNS
		}

		fr.records = append(fr.records, &capture.ResourceRecord{
			Key:        capture.ResourceKey{Kind: kind, Namespace: namespace, Name: name},
			Object:     doc,
			SourcePath: rel,
			Status:     capture.ParseStatusOK,
		})
	}
	return fr
}

// eventFromDocument converts an Event manifest into a flat record.
func eventFromDocument(doc manifest.Document, pathNS string) capture.EventRecord {
	namespace := doc.Namespace()
	if namespace == "" {
		namespace = pathNS
	}

	evType, _ := doc.String("type")
	if evType == "" {
		evType = "Normal"
	}
	reason, _ := doc.String("reason")
	message, _ := doc.String("message")
	source, _ := doc.String("source", "component")

	involvedKind, _ := doc.String("involvedObject", "kind")
	involvedNS, _ := doc.String("involvedObject", "namespace")
	involvedName, _ := doc.String("involvedObject", "name")

	count, _ := doc.Int("count")
	if count == 0 {
		count = 1
	}

	return capture.EventRecord{
		Namespace:      namespace,
		Name:           doc.Name(),
		Type:           evType,
		Reason:         reason,
		Message:        message,
		Source:         source,
		InvolvedObject: capture.ResourceKey{Kind: involvedKind, Namespace: involvedNS, Name: involvedName},
		FirstTimestamp: parseTimestamp(doc, "firstTimestamp"),
		LastTimestamp:  parseTimestamp(doc, "lastTimestamp"),
		Count:          int32(count),
	}
}

func parseTimestamp(doc manifest.Document, field string) time.Time {
	s, ok := doc.String(field)
	if !ok || s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// extractClusterInfo pulls cluster identity out of the ClusterVersion and
// Infrastructure manifests when present.
func extractClusterInfo(idx *capture.Index) capture.ClusterInfo {
	var info capture.ClusterInfo

	for _, rec := range idx.List(capture.KindClusterVersion, "") {
		if rec.Object == nil {
			continue
		}
		if id, ok := rec.Object.String("spec", "clusterID"); ok {
			info.ClusterID = id
		}
		if history, ok := rec.Object.Slice("status", "history"); ok && len(history) > 0 {
			if entry, ok := history[0].(map[string]interface{}); ok {
				if v, ok := manifest.Document(entry).String("version"); ok {
					info.Version = v
				}
			}
		}
		break
	}

	for _, rec := range idx.List(capture.KindInfrastructure, "") {
		if rec.Object == nil {
			continue
		}
		if platform, ok := rec.Object.String("status", "platform"); ok {
			info.Platform = platform
		}
		if region, ok := rec.Object.String("status", "platformStatus", "aws", "region"); ok {
			info.Region = region
		}
		break
	}

	return info
}

// findCaptureRoot locates the must-gather root: the directory holding
// cluster-scoped-resources/ or namespaces/. Archives usually wrap the tree
// in one image-named directory.
func findCaptureRoot(root string) string {
	if hasCaptureLayout(root) {
		return root
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return root
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(root, e.Name())
		if hasCaptureLayout(child) {
			return child
		}
	}
	return root
}

func hasCaptureLayout(dir string) bool {
	for _, marker := range []string{"cluster-scoped-resources", "namespaces"} {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// classifyLog recognizes pod log files from the conventional layout
// namespaces/<ns>/pods/<pod>/<container>/<container>/logs/<name>.log.
// Log files are indexed by reference only.
func classifyLog(rel string, size int64) (capture.LogRef, bool) {
	slash := filepath.ToSlash(rel)
	if !strings.HasSuffix(slash, ".log") {
		return capture.LogRef{}, false
	}

	parts := strings.Split(slash, "/")
	ref := capture.LogRef{
		Path:      rel,
		SizeBytes: size,
		Previous:  strings.HasPrefix(parts[len(parts)-1], "previous"),
	}
	for i, part := range parts {
		switch part {
		case "namespaces":
			if i+1 < len(parts) {
				ref.Namespace = parts[i+1]
			}
		case "pods":
			if i+1 < len(parts) {
				ref.Pod = parts[i+1]
			}
			if i+2 < len(parts) {
				ref.Container = parts[i+2]
			}
		}
	}
	return ref, true
}

// looksLikeManifest decides whether a file should be handed to the YAML
// parser. Conventional extensions always qualify; anything else gets a
// content sniff so unconventional dumps still index best-effort.
func looksLikeManifest(path, rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".yaml", ".yml", ".json":
		return true
	case ".log", ".txt", ".html", ".gz", ".tar":
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, err := f.Read(buf)
	if n == 0 || (err != nil && err != io.EOF) {
		return false
	}
	head := buf[:n]
	return bytes.Contains(head, []byte("apiVersion:")) ||
		bytes.Contains(head, []byte("kind:")) ||
		bytes.HasPrefix(bytes.TrimSpace(head), []byte("{"))
}

func namespaceFromPath(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		if part == "namespaces" && i+1 < len(parts)-1 {
			return parts[i+1]
		}
	}
	return ""
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
