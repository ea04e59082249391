package correlate

import (
	"testing"
	"time"

	"github.com/gatherlens/gatherlens/pkg/capture"
)

func podKey(ns, name string) capture.ResourceKey {
	return capture.ResourceKey{Kind: capture.KindPod, Namespace: ns, Name: name}
}

func indexWith(keys ...capture.ResourceKey) *capture.Index {
	idx := capture.NewIndex()
	for _, key := range keys {
		idx.Put(&capture.ResourceRecord{Key: key, Status: capture.ParseStatusOK})
	}
	return idx
}

func TestCorrelateMatchesAndOrphans(t *testing.T) {
	idx := indexWith(podKey("default", "web"))

	events := []capture.EventRecord{
		{Name: "web.1", Type: "Warning", InvolvedObject: podKey("default", "web")},
		{Name: "gone.1", Type: "Normal", InvolvedObject: podKey("default", "deleted-pod")},
	}

	res := Correlate(idx, events)

	matched := res.ByObject[podKey("default", "web").String()]
	if len(matched) != 1 || matched[0].Name != "web.1" {
		t.Fatalf("unexpected correlation: %v", matched)
	}
	if len(res.Orphans) != 1 || res.Orphans[0].Name != "gone.1" {
		t.Fatalf("unexpected orphans: %v", res.Orphans)
	}
}

func TestCorrelateNoEventDropped(t *testing.T) {
	idx := indexWith(podKey("a", "x"), podKey("b", "y"))

	events := []capture.EventRecord{
		{Name: "e1", InvolvedObject: podKey("a", "x")},
		{Name: "e2", InvolvedObject: podKey("b", "y")},
		{Name: "e3", InvolvedObject: podKey("c", "z")},
		{Name: "e4", InvolvedObject: capture.ResourceKey{}},
	}

	res := Correlate(idx, events)

	total := len(res.Orphans)
	for _, evs := range res.ByObject {
		total += len(evs)
	}
	if total != len(events) {
		t.Fatalf("expected all %d events accounted for, got %d", len(events), total)
	}
}

func TestCorrelateOrdering(t *testing.T) {
	idx := indexWith(podKey("default", "web"))
	key := podKey("default", "web")

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	events := []capture.EventRecord{
		{Name: "older", InvolvedObject: key, LastTimestamp: base.Add(-time.Hour), Count: 50},
		{Name: "newest", InvolvedObject: key, LastTimestamp: base, Count: 1},
		{Name: "tie-low-count", InvolvedObject: key, LastTimestamp: base.Add(-time.Hour), Count: 2},
	}

	res := Correlate(idx, events)
	got := res.ByObject[key.String()]
	if got[0].Name != "newest" {
		t.Fatalf("expected newest first, got %s", got[0].Name)
	}
	if got[1].Name != "older" || got[2].Name != "tie-low-count" {
		t.Fatalf("expected count to break timestamp ties, got %s then %s", got[1].Name, got[2].Name)
	}
}

func TestWarningsFor(t *testing.T) {
	idx := indexWith(podKey("default", "web"))
	key := podKey("default", "web")

	res := Correlate(idx, []capture.EventRecord{
		{Name: "w1", Type: "Warning", InvolvedObject: key},
		{Name: "n1", Type: "Normal", InvolvedObject: key},
	})

	warnings := res.WarningsFor(key)
	if len(warnings) != 1 || warnings[0].Name != "w1" {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}
