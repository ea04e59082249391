// Package service orchestrates the capture pipeline: fetch, extract,
// index, correlate, persist, analyze. It owns the concurrency limits that
// protect the process from oversized or concurrent workloads.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gatherlens/gatherlens/pkg/analyze"
	"github.com/gatherlens/gatherlens/pkg/capture"
	"github.com/gatherlens/gatherlens/pkg/config"
	"github.com/gatherlens/gatherlens/pkg/correlate"
	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
	"github.com/gatherlens/gatherlens/pkg/extract"
	"github.com/gatherlens/gatherlens/pkg/fetch"
	"github.com/gatherlens/gatherlens/pkg/header"
	"github.com/gatherlens/gatherlens/pkg/index"
	"github.com/gatherlens/gatherlens/pkg/store"
	"github.com/gatherlens/gatherlens/pkg/uri"
)

// Service is the façade over the capture pipeline. It is safe for
// concurrent use; captures are immutable once stored.
type Service struct {
	cfg     *config.Config
	store   *store.Store
	fetcher *fetch.Fetcher
	factory analyze.Factory

	// sem bounds concurrent heavyweight operations. Acquisition never
	// blocks; a full semaphore is reported as backpressure.
	sem chan struct{}
}

// Option customizes a Service.
type Option func(*Service)

// WithFactory overrides the analyzer factory, used in tests.
func WithFactory(f analyze.Factory) Option {
	return func(s *Service) { s.factory = f }
}

// WithFetcher overrides the source fetcher, used in tests.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// New creates a Service backed by st.
func New(cfg *config.Config, st *store.Store, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		store:   st,
		fetcher: &fetch.Fetcher{WorkDir: cfg.StorageDir},
		factory: analyze.NewDefaultFactory(cfg),
		sem:     make(chan struct{}, cfg.MaxConcurrentOps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire claims a semaphore slot without blocking.
func (s *Service) acquire() (func(), error) {
	select {
	case s.sem <- struct{}{}:
		inflightOps.Inc()
		return func() {
			<-s.sem
			inflightOps.Dec()
		}, nil
	default:
		return nil, glerrors.Newf(glerrors.ErrCodeBackpressure,
			"too many concurrent operations (limit %d), retry later", cap(s.sem))
	}
}

// ParseCapture ingests one capture source end to end and returns the
// stored capture. Cancellation or failure at any stage leaves no partial
// capture behind.
func (s *Service) ParseCapture(ctx context.Context, source string) (*capture.Capture, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	start := time.Now()
	id := uuid.NewString()
	log := slog.With(slog.String("capture", id), slog.String("source", source))
	log.Info("parsing capture")

	c, err := s.runPipeline(ctx, id, source)
	parseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		capturesTotal.WithLabelValues("error").Inc()
		log.Error("capture parse failed", "error", err)
		return nil, err
	}

	capturesTotal.WithLabelValues("ok").Inc()
	log.Info("capture parsed",
		slog.Int("resources", c.Index.Len()),
		slog.Int("events", len(c.Events)),
		slog.Int("failures", len(c.Failures)),
		slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return c, nil
}

func (s *Service) runPipeline(ctx context.Context, id, source string) (*capture.Capture, error) {
	local, cleanup, err := s.fetcher.Resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	workDir := filepath.Join(s.cfg.StorageDir, "extracted")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}

	extractor := &extract.Extractor{Limits: extract.Limits{
		MaxTotalBytes: s.cfg.MaxCaptureBytes,
		MaxEntryBytes: s.cfg.MaxEntryBytes,
		MaxEntries:    s.cfg.MaxEntries,
	}}
	extracted, err := extractor.Extract(ctx, local, workDir)
	if err != nil {
		return nil, err
	}

	discard := func() {
		if extracted.Sandbox {
			if rmErr := os.RemoveAll(extracted.Root); rmErr != nil {
				slog.Warn("failed to remove sandbox", "root", extracted.Root, "error", rmErr)
			}
		}
	}

	indexer := &index.Indexer{Workers: s.cfg.ParseWorkers}
	built, err := indexer.Build(ctx, extracted.Root)
	if err != nil {
		discard()
		return nil, err
	}

	corr := correlate.Correlate(built.Index, built.Events)

	c := &capture.Capture{
		ID:          id,
		Source:      source,
		ExtractedAt: time.Now().UTC(),
		SizeBytes:   extracted.BytesWritten,
		ClusterInfo: built.ClusterInfo,
		Root:        extracted.Root,
		Sandbox:     extracted.Sandbox,

		Index:    built.Index,
		Events:   built.Events,
		Logs:     built.Logs,
		Failures: built.Failures,
		Warnings: append(extracted.Warnings, built.Warnings...),

		EventsByObject: corr.ByObject,
		OrphanEvents:   corr.Orphans,
	}

	if err := s.store.Put(c); err != nil {
		discard()
		return nil, err
	}
	return c, nil
}

// GetCapture returns a stored capture by id.
func (s *Service) GetCapture(id string) (*capture.Capture, error) {
	return s.store.Get(id)
}

// ListCaptures returns all stored captures, most recent first.
func (s *Service) ListCaptures() []*capture.Capture {
	return s.store.List()
}

// EvictCapture removes a capture and its extracted files.
func (s *Service) EvictCapture(id string) error {
	return s.store.Evict(id)
}

// GetResources returns the indexed resources of one type, optionally
// scoped to a namespace. Unknown types fail with a spelling suggestion
// when one is close enough.
func (s *Service) GetResources(captureID, resourceType, namespace string) ([]*capture.ResourceRecord, error) {
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	kind, err := resolveKind(resourceType, c.Index.Kinds())
	if err != nil {
		return nil, err
	}
	return c.Index.List(kind, namespace), nil
}

// GetResource returns one named resource from a capture.
func (s *Service) GetResource(captureID, resourceType, namespace, name string) (*capture.ResourceRecord, error) {
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	kind, err := resolveKind(resourceType, c.Index.Kinds())
	if err != nil {
		return nil, err
	}

	key := capture.ResourceKey{Kind: kind, Namespace: namespace, Name: name}
	rec, ok := c.Index.Get(key.Kind, key.Namespace, key.Name)
	if !ok {
		return nil, glerrors.Newf(glerrors.ErrCodeNotFound, "resource %q not found", key.String())
	}
	return rec, nil
}

// ResolveURI resolves a capture:// reference to the records it addresses.
func (s *Service) ResolveURI(raw string) ([]*capture.ResourceRecord, error) {
	ref, err := uri.Parse(raw)
	if err != nil {
		return nil, err
	}

	if ref.ResourceType == "" {
		c, err := s.store.Get(ref.CaptureID)
		if err != nil {
			return nil, err
		}
		return c.Index.All(), nil
	}
	return s.GetResources(ref.CaptureID, ref.ResourceType, ref.Namespace)
}

// AnalysisReport is the result of one analysis operation.
type AnalysisReport struct {
	header.Header `yaml:",inline"`

	CaptureID   string            `json:"captureId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Findings    []analyze.Finding `json:"findings"`
	Summary     analyze.Summary   `json:"summary"`
}

// AnalyzeClusterHealth evaluates cluster operators and machine config
// pools. With actionableOnly set, informational findings are dropped.
func (s *Service) AnalyzeClusterHealth(ctx context.Context, captureID string, actionableOnly bool) (*AnalysisReport, error) {
	if !s.cfg.EnableClusterAnalysis {
		return nil, glerrors.New(glerrors.ErrCodeAnalysisDisabled, "cluster analysis is disabled")
	}
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	findings, err := s.factory.CreateClusterAnalyzer().Analyze(ctx, c)
	if err != nil {
		return nil, err
	}

	// Summary counts always cover the full finding set; filtering only
	// trims the returned list.
	rep := report(captureID, findings)
	if actionableOnly {
		rep.Findings = analyze.FilterActionable(rep.Findings)
	}
	return rep, nil
}

// AnalyzeNodes evaluates node health, optionally for a single node.
func (s *Service) AnalyzeNodes(ctx context.Context, captureID, nodeName string) (*AnalysisReport, error) {
	if !s.cfg.EnableNodeAnalysis {
		return nil, glerrors.New(glerrors.ErrCodeAnalysisDisabled, "node analysis is disabled")
	}
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	findings, err := s.factory.CreateNodeAnalyzer(nodeName).Analyze(ctx, c)
	if err != nil {
		return nil, err
	}
	return report(captureID, findings), nil
}

// AnalyzePods evaluates pod health, optionally scoped to a namespace.
func (s *Service) AnalyzePods(ctx context.Context, captureID, namespace string, includeLogs bool) (*AnalysisReport, error) {
	if !s.cfg.EnablePodAnalysis {
		return nil, glerrors.New(glerrors.ErrCodeAnalysisDisabled, "pod analysis is disabled")
	}
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	findings, err := s.factory.CreatePodAnalyzer(namespace, includeLogs).Analyze(ctx, c)
	if err != nil {
		return nil, err
	}
	return report(captureID, findings), nil
}

// AnalyzeAll runs every enabled analyzer concurrently and merges their
// findings into one report. At least one analyzer must be enabled.
func (s *Service) AnalyzeAll(ctx context.Context, captureID string) (*AnalysisReport, error) {
	c, err := s.store.Get(captureID)
	if err != nil {
		return nil, err
	}

	var analyzers []analyze.Analyzer
	if s.cfg.EnableClusterAnalysis {
		analyzers = append(analyzers, s.factory.CreateClusterAnalyzer())
	}
	if s.cfg.EnableNodeAnalysis {
		analyzers = append(analyzers, s.factory.CreateNodeAnalyzer(""))
	}
	if s.cfg.EnablePodAnalysis {
		analyzers = append(analyzers, s.factory.CreatePodAnalyzer("", false))
	}
	if len(analyzers) == 0 {
		return nil, glerrors.New(glerrors.ErrCodeAnalysisDisabled, "all analyzers are disabled")
	}

	results := make([][]analyze.Finding, len(analyzers))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range analyzers {
		g.Go(func() error {
			findings, err := a.Analyze(gctx, c)
			if err != nil {
				return err
			}
			results[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []analyze.Finding
	for _, r := range results {
		findings = append(findings, r...)
	}
	return report(captureID, findings), nil
}

// report assembles findings into a stable, severity-ordered report.
func report(captureID string, findings []analyze.Finding) *AnalysisReport {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		return a.Subject.String() < b.Subject.String()
	})
	r := &AnalysisReport{
		CaptureID:   captureID,
		GeneratedAt: time.Now().UTC(),
		Findings:    findings,
		Summary:     analyze.Summarize(findings),
	}
	r.Header.Set("AnalysisReport")
	return r
}

func severityRank(s analyze.Severity) int {
	switch s {
	case analyze.SeverityCritical:
		return 0
	case analyze.SeverityWarning:
		return 1
	default:
		return 2
	}
}
