package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherlens/gatherlens/pkg/capture"
	"github.com/gatherlens/gatherlens/pkg/manifest"
)

// ClusterAnalyzer evaluates cluster-operator and machine-config-pool
// manifests against availability and degradation rules.
type ClusterAnalyzer struct{}

// Analyze produces findings for degraded or unavailable operators and for
// degraded or updating machine config pools. Warning events correlated to
// the same object are attached as evidence.
func (a *ClusterAnalyzer) Analyze(ctx context.Context, c *capture.Capture) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		analyzerDuration.WithLabelValues("cluster").Observe(time.Since(start).Seconds())
	}()

	var findings []Finding
	findings = append(findings, a.analyzeOperators(c)...)
	findings = append(findings, a.analyzePools(c)...)

	recordFindings(findings)
	slog.Debug("cluster health analysis complete", slog.Int("findings", len(findings)))
	return findings, nil
}

func (a *ClusterAnalyzer) analyzeOperators(c *capture.Capture) []Finding {
	var findings []Finding

	for _, rec := range c.Index.List(capture.KindClusterOperator, "") {
		if rec.Object == nil || rec.Status != capture.ParseStatusOK {
			continue
		}

		degraded := operatorCondition(rec.Object, "Degraded")
		available := operatorCondition(rec.Object, "Available")
		progressing := operatorCondition(rec.Object, "Progressing")
		evidence := warningEvidence(c, rec.Key)

		switch {
		case degraded:
			findings = append(findings, Finding{
				Severity: SeverityCritical,
				Category: CategoryClusterHealth,
				Subject:  rec.Key,
				Message:  fmt.Sprintf("cluster operator %q is degraded", rec.Key.Name),
				Evidence: evidence,
			})
		case !available:
			findings = append(findings, Finding{
				Severity: SeverityCritical,
				Category: CategoryClusterHealth,
				Subject:  rec.Key,
				Message:  fmt.Sprintf("cluster operator %q is not available", rec.Key.Name),
				Evidence: evidence,
			})
		}

		// An operator mid-rollout is not itself an error.
		if progressing && !degraded {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Category: CategoryClusterHealth,
				Subject:  rec.Key,
				Message:  fmt.Sprintf("cluster operator %q is progressing", rec.Key.Name),
				Evidence: evidence,
			})
		}
	}
	return findings
}

func (a *ClusterAnalyzer) analyzePools(c *capture.Capture) []Finding {
	var findings []Finding

	for _, rec := range c.Index.List(capture.KindMachineConfigPool, "") {
		if rec.Object == nil || rec.Status != capture.ParseStatusOK {
			continue
		}

		machineCount, _ := rec.Object.Int("status", "machineCount")
		updatedCount, _ := rec.Object.Int("status", "updatedMachineCount")
		degradedCount, _ := rec.Object.Int("status", "degradedMachineCount")
		evidence := warningEvidence(c, rec.Key)

		if degradedCount > 0 {
			findings = append(findings, Finding{
				Severity: SeverityCritical,
				Category: CategoryClusterHealth,
				Subject:  rec.Key,
				Message: fmt.Sprintf("machine config pool %q has %d degraded machines",
					rec.Key.Name, degradedCount),
				Evidence: evidence,
			})
			continue
		}

		if updatedCount != machineCount {
			findings = append(findings, Finding{
				Severity: SeverityInfo,
				Category: CategoryClusterHealth,
				Subject:  rec.Key,
				Message: fmt.Sprintf("machine config pool %q is updating (%d/%d machines updated)",
					rec.Key.Name, updatedCount, machineCount),
				Evidence: evidence,
			})
		}
	}
	return findings
}

// operatorCondition reads a status condition by type from a loosely typed
// manifest. Missing conditions read as false.
func operatorCondition(doc manifest.Document, condType string) bool {
	conditions, ok := doc.Slice("status", "conditions")
	if !ok {
		return false
	}
	for _, raw := range conditions {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cond := manifest.Document(m)
		if t, _ := cond.String("type"); t != condType {
			continue
		}
		status, _ := cond.String("status")
		return status == "True"
	}
	return false
}

func warningEvidence(c *capture.Capture, key capture.ResourceKey) []Evidence {
	var warnings []capture.EventRecord
	for _, ev := range c.EventsFor(key) {
		if ev.Type == "Warning" {
			warnings = append(warnings, ev)
		}
	}
	return eventEvidence(warnings)
}
