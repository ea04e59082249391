// Package capture defines the data model for one parsed must-gather
// capture: the resource index, event records and log references that the
// analyzers consume. A Capture is immutable once the indexer finishes.
package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/gatherlens/gatherlens/pkg/manifest"
)

// ParseStatus records whether a manifest document parsed cleanly.
type ParseStatus string

const (
	ParseStatusOK     ParseStatus = "ok"
	ParseStatusFailed ParseStatus = "failed"
)

// Well-known kinds recognized by the indexer and analyzers.
const (
	KindNode              = "Node"
	KindPod               = "Pod"
	KindEvent             = "Event"
	KindClusterOperator   = "ClusterOperator"
	KindMachineConfigPool = "MachineConfigPool"
	KindClusterVersion    = "ClusterVersion"
	KindInfrastructure    = "Infrastructure"
)

// ResourceKey uniquely identifies a resource within a capture.
// Namespace is empty for cluster-scoped kinds.
type ResourceKey struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// String renders the key as kind/namespace/name (kind/name when
// cluster-scoped).
func (k ResourceKey) String() string {
	if k.Namespace == "" {
		return fmt.Sprintf("%s/%s", strings.ToLower(k.Kind), k.Name)
	}
	return fmt.Sprintf("%s/%s/%s", strings.ToLower(k.Kind), k.Namespace, k.Name)
}

// ResourceRecord is one parsed manifest plus its provenance.
type ResourceRecord struct {
	Key        ResourceKey       `json:"key"`
	Object     manifest.Document `json:"object,omitempty"`
	SourcePath string            `json:"sourcePath"`
	Status     ParseStatus       `json:"status"`
	ParseError string            `json:"parseError,omitempty"`
}

// ParseFailure records a document that could not be parsed, preserving
// enough context to act on without re-running the capture.
type ParseFailure struct {
	SourcePath string `json:"sourcePath"`
	Error      string `json:"error"`
}

// EventRecord is one cluster event with its involved-object reference.
type EventRecord struct {
	Namespace      string      `json:"namespace,omitempty"`
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	Reason         string      `json:"reason,omitempty"`
	Message        string      `json:"message,omitempty"`
	Source         string      `json:"source,omitempty"`
	InvolvedObject ResourceKey `json:"involvedObject"`
	FirstTimestamp time.Time   `json:"firstTimestamp,omitzero"`
	LastTimestamp  time.Time   `json:"lastTimestamp,omitzero"`
	Count          int32       `json:"count"`
}

// LogRef points at a container log file inside the extracted capture.
// Log content is never loaded into the index, only referenced.
type LogRef struct {
	Namespace string `json:"namespace"`
	Pod       string `json:"pod"`
	Container string `json:"container"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	Previous  bool   `json:"previous,omitempty"`
}

// ClusterInfo is the basic cluster identity extracted from the
// ClusterVersion and Infrastructure manifests.
type ClusterInfo struct {
	Version   string `json:"version,omitempty"`
	ClusterID string `json:"clusterId,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Region    string `json:"region,omitempty"`
}

// Capture is the root of one parsed must-gather instance. It exclusively
// owns its records; nothing is shared across captures.
type Capture struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	ExtractedAt time.Time   `json:"extractedAt"`
	SizeBytes   int64       `json:"sizeBytes"`
	ClusterInfo ClusterInfo `json:"clusterInfo"`

	// Root is the extracted capture directory on disk. Sandbox marks roots
	// owned by this process, which are removed on eviction.
	Root    string `json:"root,omitempty"`
	Sandbox bool   `json:"sandbox,omitempty"`

	Index    *Index         `json:"index"`
	Events   []EventRecord  `json:"events,omitempty"`
	Logs     []LogRef       `json:"logs,omitempty"`
	Failures []ParseFailure `json:"failures,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`

	// Correlation output, populated once after indexing.
	EventsByObject map[string][]EventRecord `json:"eventsByObject,omitempty"`
	OrphanEvents   []EventRecord            `json:"orphanEvents,omitempty"`
}

// EventsFor returns the correlated events for a resource, most recent
// first. Nil when the object has none.
func (c *Capture) EventsFor(key ResourceKey) []EventRecord {
	if c.EventsByObject == nil {
		return nil
	}
	return c.EventsByObject[key.String()]
}

// Summary aggregates capture-level counts.
type Summary struct {
	ResourceCount  int            `json:"resourceCount"`
	EventCount     int            `json:"eventCount"`
	OrphanEvents   int            `json:"orphanEvents"`
	LogCount       int            `json:"logCount"`
	FailureCount   int            `json:"failureCount"`
	WarningCount   int            `json:"warningCount"`
	NamespaceCount int            `json:"namespaceCount"`
	Kinds          map[string]int `json:"kinds,omitempty"`
}

// Summarize computes the capture summary. It is a pure derivation and is
// recomputed on demand rather than persisted.
func (c *Capture) Summarize() Summary {
	s := Summary{
		EventCount:   len(c.Events),
		OrphanEvents: len(c.OrphanEvents),
		LogCount:     len(c.Logs),
		FailureCount: len(c.Failures),
		WarningCount: len(c.Warnings),
		Kinds:        map[string]int{},
	}
	if c.Index == nil {
		return s
	}

	namespaces := map[string]struct{}{}
	for _, rec := range c.Index.All() {
		s.ResourceCount++
		s.Kinds[rec.Key.Kind]++
		if rec.Key.Namespace != "" {
			namespaces[rec.Key.Namespace] = struct{}{}
		}
	}
	s.NamespaceCount = len(namespaces)
	return s
}
