// Package analyze applies domain health rules to a built capture index and
// produces severity-tagged findings. Analyzers only read the index and the
// correlated events; they never mutate the capture and may run concurrently
// with each other.
package analyze

import (
	"github.com/gatherlens/gatherlens/pkg/capture"
)

// Severity classifies how urgent a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Category identifies which analyzer produced a finding.
type Category string

const (
	CategoryClusterHealth Category = "cluster-health"
	CategoryNode          Category = "node"
	CategoryPod           Category = "pod"
)

// Evidence is one piece of supporting data attached to a finding: a
// correlated event, a restart count, a log location.
type Evidence struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Source string `json:"source,omitempty"`
}

// Evidence types.
const (
	EvidenceEvent     = "event"
	EvidenceCondition = "condition"
	EvidenceRestarts  = "restarts"
	EvidenceLog       = "log"
	EvidenceImage     = "image"
	EvidenceCapacity  = "capacity"
	EvidenceNodeInfo  = "node-info"
)

// Finding is one analyzer observation about a resource. Findings are never
// mutated after creation; a capture owns its findings as a regenerable view.
type Finding struct {
	Severity Severity            `json:"severity"`
	Category Category            `json:"category"`
	Subject  capture.ResourceKey `json:"subject"`
	Message  string              `json:"message"`
	Evidence []Evidence          `json:"evidence,omitempty"`
}

// Summary aggregates finding counts per severity and category. It is a
// pure derivation over a finding set, recomputed on demand.
type Summary struct {
	Total         int              `json:"total"`
	BySeverity    map[Severity]int `json:"bySeverity"`
	ByCategory    map[Category]int `json:"byCategory"`
	OverallHealth string           `json:"overallHealth"`
}

// Summarize computes the summary over the full finding set.
func Summarize(findings []Finding) Summary {
	s := Summary{
		Total:      len(findings),
		BySeverity: map[Severity]int{},
		ByCategory: map[Category]int{},
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByCategory[f.Category]++
	}
	switch {
	case s.BySeverity[SeverityCritical] > 0:
		s.OverallHealth = "critical"
	case s.BySeverity[SeverityWarning] > 0:
		s.OverallHealth = "warning"
	default:
		s.OverallHealth = "healthy"
	}
	return s
}

// FilterActionable drops info-level findings, keeping critical and warning.
// Summary counts are always computed over the full set, so callers filter
// after summarizing.
func FilterActionable(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityCritical || f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}

// eventEvidence converts correlated warning events into finding evidence.
func eventEvidence(events []capture.EventRecord) []Evidence {
	var out []Evidence
	for _, ev := range events {
		out = append(out, Evidence{
			Type:   EvidenceEvent,
			Detail: ev.Reason + ": " + ev.Message,
			Source: ev.Name,
		})
	}
	return out
}
