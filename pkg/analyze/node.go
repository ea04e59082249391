package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/gatherlens/gatherlens/pkg/capture"
)

// pressureConditions are the node conditions whose healthy polarity is
// False. Ready is handled separately since its healthy polarity is True.
var pressureConditions = map[corev1.NodeConditionType]struct{}{
	corev1.NodeMemoryPressure:     {},
	corev1.NodeDiskPressure:       {},
	corev1.NodePIDPressure:        {},
	corev1.NodeNetworkUnavailable: {},
}

// NodeAnalyzer evaluates node conditions, heartbeats and capacity fields.
type NodeAnalyzer struct {
	// NodeName restricts analysis to a single node without changing the
	// underlying computation.
	NodeName string

	// Staleness is the maximum heartbeat age before a node's status is
	// considered stale. Zero disables the check.
	Staleness time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// Analyze produces findings for unhealthy node conditions, stale status and
// suspicious capacity reporting.
func (a *NodeAnalyzer) Analyze(ctx context.Context, c *capture.Capture) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		analyzerDuration.WithLabelValues("node").Observe(time.Since(start).Seconds())
	}()

	reference := c.ExtractedAt
	if reference.IsZero() {
		if a.now != nil {
			reference = a.now()
		} else {
			reference = time.Now()
		}
	}

	var findings []Finding
	for _, rec := range c.Index.List(capture.KindNode, "") {
		if a.NodeName != "" && rec.Key.Name != a.NodeName {
			continue
		}
		if rec.Object == nil || rec.Status != capture.ParseStatusOK {
			continue
		}

		var node corev1.Node
		if err := rec.Object.Decode(&node); err != nil {
			// Malformed but present fields degrade to a skipped finding.
			slog.Warn("skipping malformed node manifest",
				"node", rec.Key.Name, "source", rec.SourcePath, "error", err)
			continue
		}

		findings = append(findings, a.analyzeNode(c, rec.Key, &node, reference)...)
	}

	recordFindings(findings)
	slog.Debug("node analysis complete", slog.Int("findings", len(findings)))
	return findings, nil
}

func (a *NodeAnalyzer) analyzeNode(c *capture.Capture, key capture.ResourceKey, node *corev1.Node, reference time.Time) []Finding {
	var findings []Finding
	evidence := warningEvidence(c, key)
	if info := identityEvidence(node); info != nil {
		evidence = append(evidence, *info)
	}

	var lastHeartbeat time.Time
	for _, cond := range node.Status.Conditions {
		if hb := cond.LastHeartbeatTime.Time; hb.After(lastHeartbeat) {
			lastHeartbeat = hb
		}

		switch {
		case cond.Type == corev1.NodeReady && cond.Status != corev1.ConditionTrue:
			findings = append(findings, Finding{
				Severity: SeverityCritical,
				Category: CategoryNode,
				Subject:  key,
				Message:  fmt.Sprintf("node %q is not ready: %s", key.Name, conditionDetail(cond)),
				Evidence: append(conditionEvidence(cond), evidence...),
			})

		case isPressureCondition(cond.Type) && cond.Status == corev1.ConditionTrue:
			f := Finding{
				Severity: SeverityWarning,
				Category: CategoryNode,
				Subject:  key,
				Message:  fmt.Sprintf("node %q reports %s: %s", key.Name, cond.Type, conditionDetail(cond)),
				Evidence: conditionEvidence(cond),
			}
			if cap := capacityEvidence(node, cond.Type); cap != nil {
				f.Evidence = append(f.Evidence, *cap)
			}
			findings = append(findings, f)
		}
	}

	// A stale node status is reported independently of the last-known
	// conditions, which may be arbitrarily out of date.
	if a.Staleness > 0 && !lastHeartbeat.IsZero() && reference.Sub(lastHeartbeat) > a.Staleness {
		findings = append(findings, Finding{
			Severity: SeverityCritical,
			Category: CategoryNode,
			Subject:  key,
			Message: fmt.Sprintf("node %q status is stale: last heartbeat %s before capture",
				key.Name, reference.Sub(lastHeartbeat).Round(time.Second)),
		})
	}

	return findings
}

// roleLabelPrefix marks the node-role labels whose suffix names the role.
const roleLabelPrefix = "node-role.kubernetes.io/"

// identityEvidence summarizes who the node is: its roles, kubelet version
// and OS image. Attached to findings so triage does not require a second
// lookup against the capture.
func identityEvidence(node *corev1.Node) *Evidence {
	var roles []string
	for label := range node.Labels {
		if role, ok := strings.CutPrefix(label, roleLabelPrefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)

	info := node.Status.NodeInfo
	if len(roles) == 0 && info.KubeletVersion == "" && info.OSImage == "" {
		return nil
	}

	parts := make([]string, 0, 3)
	if len(roles) > 0 {
		parts = append(parts, "roles="+strings.Join(roles, ","))
	}
	if info.KubeletVersion != "" {
		parts = append(parts, "kubelet="+info.KubeletVersion)
	}
	if info.OSImage != "" {
		parts = append(parts, "os="+info.OSImage)
	}
	return &Evidence{
		Type:   EvidenceNodeInfo,
		Detail: strings.Join(parts, " "),
	}
}

func isPressureCondition(t corev1.NodeConditionType) bool {
	_, ok := pressureConditions[t]
	return ok
}

func conditionDetail(cond corev1.NodeCondition) string {
	if cond.Message != "" {
		return cond.Message
	}
	if cond.Reason != "" {
		return cond.Reason
	}
	return string(cond.Status)
}

func conditionEvidence(cond corev1.NodeCondition) []Evidence {
	return []Evidence{{
		Type:   EvidenceCondition,
		Detail: fmt.Sprintf("%s=%s (%s)", cond.Type, cond.Status, cond.Reason),
	}}
}

// capacityEvidence attaches the relevant capacity/allocatable quantities
// for a pressure condition so the finding is actionable on its own.
func capacityEvidence(node *corev1.Node, t corev1.NodeConditionType) *Evidence {
	var res corev1.ResourceName
	switch t {
	case corev1.NodeMemoryPressure:
		res = corev1.ResourceMemory
	case corev1.NodeDiskPressure:
		res = corev1.ResourceEphemeralStorage
	case corev1.NodePIDPressure:
		res = corev1.ResourcePods
	default:
		return nil
	}

	cap, capOK := node.Status.Capacity[res]
	alloc, allocOK := node.Status.Allocatable[res]
	if !capOK && !allocOK {
		return nil
	}
	return &Evidence{
		Type:   EvidenceCapacity,
		Detail: fmt.Sprintf("%s capacity=%s allocatable=%s", res, cap.String(), alloc.String()),
	}
}
