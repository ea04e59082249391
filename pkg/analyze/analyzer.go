package analyze

import (
	"context"

	"github.com/gatherlens/gatherlens/pkg/capture"
	"github.com/gatherlens/gatherlens/pkg/config"
)

// Analyzer applies one family of health rules to a completed capture.
// Implementations must treat the capture as read-only and support
// context-based cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, c *capture.Capture) ([]Finding, error)
}

// Factory creates analyzers with their thresholds bound from config.
// This interface enables dependency injection for testing.
type Factory interface {
	CreateClusterAnalyzer() Analyzer
	CreateNodeAnalyzer(nodeName string) Analyzer
	CreatePodAnalyzer(namespace string, includeLogs bool) Analyzer
}

// DefaultFactory creates analyzers with thresholds from the process config.
type DefaultFactory struct {
	Config *config.Config
}

// NewDefaultFactory creates a factory bound to cfg.
func NewDefaultFactory(cfg *config.Config) *DefaultFactory {
	return &DefaultFactory{Config: cfg}
}

// CreateClusterAnalyzer creates the cluster-operator and machine-config-pool
// analyzer.
func (f *DefaultFactory) CreateClusterAnalyzer() Analyzer {
	return &ClusterAnalyzer{}
}

// CreateNodeAnalyzer creates a node analyzer, optionally restricted to one
// named node.
func (f *DefaultFactory) CreateNodeAnalyzer(nodeName string) Analyzer {
	return &NodeAnalyzer{
		NodeName:  nodeName,
		Staleness: f.Config.StalenessThreshold,
	}
}

// CreatePodAnalyzer creates a pod analyzer, optionally restricted to one
// namespace.
func (f *DefaultFactory) CreatePodAnalyzer(namespace string, includeLogs bool) Analyzer {
	return &PodAnalyzer{
		Namespace:        namespace,
		IncludeLogs:      includeLogs,
		RestartThreshold: f.Config.RestartThreshold,
		PendingAge:       f.Config.PendingAge,
	}
}
