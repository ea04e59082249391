// Package correlate links event records to the resources they reference.
// Events reference their involved object by (kind, namespace, name); the
// correlator resolves those references against the index and keeps
// unresolved events as orphans rather than dropping them, since captures
// legitimately contain events for already-deleted objects.
package correlate

import (
	"log/slog"
	"sort"

	"github.com/gatherlens/gatherlens/pkg/capture"
)

// Result maps resource keys (in ResourceKey.String() form) to their
// correlated events, plus the events that matched nothing.
type Result struct {
	ByObject map[string][]capture.EventRecord
	Orphans  []capture.EventRecord
}

// Correlate attaches each event to its indexed involved object. Per-object
// sequences are ordered most-recent-first by last-seen timestamp, with
// higher counts breaking ties, so the most active issues surface first.
func Correlate(idx *capture.Index, events []capture.EventRecord) *Result {
	res := &Result{ByObject: map[string][]capture.EventRecord{}}

	for _, ev := range events {
		key := ev.InvolvedObject
		if key.Kind == "" || key.Name == "" || !idx.Has(key) {
			res.Orphans = append(res.Orphans, ev)
			continue
		}
		res.ByObject[key.String()] = append(res.ByObject[key.String()], ev)
	}

	for key := range res.ByObject {
		sortEvents(res.ByObject[key])
	}
	sortEvents(res.Orphans)

	slog.Debug("event correlation complete",
		slog.Int("events", len(events)),
		slog.Int("objects", len(res.ByObject)),
		slog.Int("orphans", len(res.Orphans)),
	)
	return res
}

// WarningsFor returns only the Warning-type events correlated to key.
func (r *Result) WarningsFor(key capture.ResourceKey) []capture.EventRecord {
	var out []capture.EventRecord
	for _, ev := range r.ByObject[key.String()] {
		if ev.Type == "Warning" {
			out = append(out, ev)
		}
	}
	return out
}

func sortEvents(events []capture.EventRecord) {
	sort.SliceStable(events, func(a, b int) bool {
		ea, eb := events[a], events[b]
		if !ea.LastTimestamp.Equal(eb.LastTimestamp) {
			return ea.LastTimestamp.After(eb.LastTimestamp)
		}
		if ea.Count != eb.Count {
			return ea.Count > eb.Count
		}
		return ea.Name < eb.Name
	})
}
