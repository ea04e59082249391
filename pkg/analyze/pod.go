package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/distribution/reference"
	corev1 "k8s.io/api/core/v1"

	"github.com/gatherlens/gatherlens/pkg/capture"
)

// failureWaitingReasons are container waiting reasons that indicate the
// pod cannot make progress on its own.
var failureWaitingReasons = map[string]struct{}{
	"CrashLoopBackOff":           {},
	"ImagePullBackOff":           {},
	"ErrImagePull":               {},
	"InvalidImageName":           {},
	"CreateContainerConfigError": {},
	"CreateContainerError":       {},
	"RunContainerError":          {},
}

// PodAnalyzer evaluates pod phase, container statuses and correlated
// scheduling events.
type PodAnalyzer struct {
	// Namespace restricts the evaluated set without changing rule logic.
	Namespace string

	// IncludeLogs attaches referenced log locations (never content) to
	// finding evidence.
	IncludeLogs bool

	// RestartThreshold is the container restart count above which a
	// running pod is flagged as flapping.
	RestartThreshold int

	// PendingAge is how long a pod may sit Pending before an
	// unschedulable event makes it a finding.
	PendingAge time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// Analyze produces findings for failed, flapping and unschedulable pods.
func (a *PodAnalyzer) Analyze(ctx context.Context, c *capture.Capture) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		analyzerDuration.WithLabelValues("pod").Observe(time.Since(start).Seconds())
	}()

	refTime := c.ExtractedAt
	if refTime.IsZero() {
		if a.now != nil {
			refTime = a.now()
		} else {
			refTime = time.Now()
		}
	}

	var findings []Finding
	for _, rec := range c.Index.List(capture.KindPod, a.Namespace) {
		if rec.Object == nil || rec.Status != capture.ParseStatusOK {
			continue
		}

		var pod corev1.Pod
		if err := rec.Object.Decode(&pod); err != nil {
			slog.Warn("skipping malformed pod manifest",
				"pod", rec.Key.String(), "source", rec.SourcePath, "error", err)
			continue
		}

		if f := a.analyzePod(c, rec.Key, &pod, refTime); f != nil {
			findings = append(findings, *f)
		}
	}

	recordFindings(findings)
	slog.Debug("pod analysis complete",
		slog.String("namespace", a.Namespace),
		slog.Int("findings", len(findings)),
	)
	return findings, nil
}

// analyzePod applies the failure rules in priority order and returns at
// most one finding per pod: hard failure beats flapping beats scheduling.
func (a *PodAnalyzer) analyzePod(c *capture.Capture, key capture.ResourceKey, pod *corev1.Pod, ref time.Time) *Finding {
	totalRestarts := 0
	var failureDetail string
	var failureEvidence []Evidence

	for _, cs := range pod.Status.ContainerStatuses {
		totalRestarts += int(cs.RestartCount)

		if cs.State.Waiting == nil {
			continue
		}
		if _, failed := failureWaitingReasons[cs.State.Waiting.Reason]; !failed {
			continue
		}
		if failureDetail == "" {
			failureDetail = fmt.Sprintf("container %q is waiting: %s", cs.Name, cs.State.Waiting.Reason)
		}
		failureEvidence = append(failureEvidence, Evidence{
			Type:   EvidenceCondition,
			Detail: fmt.Sprintf("container %q waiting reason %s: %s", cs.Name, cs.State.Waiting.Reason, cs.State.Waiting.Message),
		})
		failureEvidence = append(failureEvidence, imageEvidence(cs.Image)...)
	}

	if pod.Status.Phase == corev1.PodFailed && failureDetail == "" {
		failureDetail = fmt.Sprintf("pod phase is %s: %s", pod.Status.Phase, pod.Status.Reason)
	}

	if failureDetail != "" {
		f := &Finding{
			Severity: SeverityCritical,
			Category: CategoryPod,
			Subject:  key,
			Message:  fmt.Sprintf("pod %q failed: %s", key.Name, failureDetail),
			Evidence: failureEvidence,
		}
		if totalRestarts > 0 {
			f.Evidence = append(f.Evidence, restartEvidence(totalRestarts))
		}
		f.Evidence = append(f.Evidence, warningEvidence(c, key)...)
		a.attachLogs(c, key, f)
		return f
	}

	if a.RestartThreshold > 0 && totalRestarts > a.RestartThreshold {
		f := &Finding{
			Severity: SeverityWarning,
			Category: CategoryPod,
			Subject:  key,
			Message: fmt.Sprintf("pod %q is flapping: %d container restarts exceed threshold %d",
				key.Name, totalRestarts, a.RestartThreshold),
			Evidence: []Evidence{restartEvidence(totalRestarts)},
		}
		a.attachLogs(c, key, f)
		return f
	}

	if pod.Status.Phase == corev1.PodPending && a.PendingAge > 0 {
		age := ref.Sub(pod.CreationTimestamp.Time)
		if pod.CreationTimestamp.IsZero() || age <= a.PendingAge {
			return nil
		}
		scheduling := schedulingEvents(c, key)
		if len(scheduling) == 0 {
			// Pending without unschedulable evidence is likely just queued.
			return nil
		}
		f := &Finding{
			Severity: SeverityWarning,
			Category: CategoryPod,
			Subject:  key,
			Message: fmt.Sprintf("pod %q has been pending for %s and cannot be scheduled",
				key.Name, age.Round(time.Second)),
			Evidence: eventEvidence(scheduling),
		}
		a.attachLogs(c, key, f)
		return f
	}

	return nil
}

func (a *PodAnalyzer) attachLogs(c *capture.Capture, key capture.ResourceKey, f *Finding) {
	if !a.IncludeLogs {
		return
	}
	for _, ref := range c.Logs {
		if ref.Namespace != key.Namespace || ref.Pod != key.Name {
			continue
		}
		f.Evidence = append(f.Evidence, Evidence{
			Type:   EvidenceLog,
			Detail: fmt.Sprintf("container %q log (%d bytes)", ref.Container, ref.SizeBytes),
			Source: ref.Path,
		})
	}
}

func restartEvidence(restarts int) Evidence {
	return Evidence{
		Type:   EvidenceRestarts,
		Detail: fmt.Sprintf("%d total container restarts", restarts),
	}
}

// imageEvidence normalizes the container image reference so findings show
// the canonical repository name.
func imageEvidence(image string) []Evidence {
	if image == "" {
		return nil
	}
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return []Evidence{{Type: EvidenceImage, Detail: image}}
	}
	return []Evidence{{Type: EvidenceImage, Detail: named.String()}}
}

// schedulingEvents returns the correlated warning events that indicate the
// pod could not be placed.
func schedulingEvents(c *capture.Capture, key capture.ResourceKey) []capture.EventRecord {
	var out []capture.EventRecord
	for _, ev := range c.EventsFor(key) {
		if ev.Type != "Warning" {
			continue
		}
		if ev.Reason == "FailedScheduling" || ev.Reason == "NotTriggerScaleUp" {
			out = append(out, ev)
		}
	}
	return out
}
