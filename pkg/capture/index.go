package capture

import (
	"encoding/json"
	"sort"
	"sync"
)

// Index is the resource index for one capture, keyed by
// (kind, namespace, name). It is written by the indexer while the capture
// is being built and is read-only afterwards, so analyzers may share it
// across goroutines freely.
type Index struct {
	mu      sync.RWMutex
	records map[ResourceKey]*ResourceRecord
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{records: map[ResourceKey]*ResourceRecord{}}
}

// Put inserts a record. Duplicate keys are resolved last-write-wins;
// the return value reports whether an existing record was replaced so the
// caller can record a warning.
func (i *Index) Put(rec *ResourceRecord) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, replaced := i.records[rec.Key]
	i.records[rec.Key] = rec
	return replaced
}

// Get returns the record for (kind, namespace, name).
func (i *Index) Get(kind, namespace, name string) (*ResourceRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	rec, ok := i.records[ResourceKey{Kind: kind, Namespace: namespace, Name: name}]
	return rec, ok
}

// Has reports whether the key is present.
func (i *Index) Has(key ResourceKey) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.records[key]
	return ok
}

// List returns all records of the given kind, optionally restricted to one
// namespace. Results are sorted by key so output is deterministic
// regardless of file discovery order.
func (i *Index) List(kind, namespace string) []*ResourceRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []*ResourceRecord
	for key, rec := range i.records {
		if key.Kind != kind {
			continue
		}
		if namespace != "" && key.Namespace != namespace {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

// All returns every record, sorted by key.
func (i *Index) All() []*ResourceRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]*ResourceRecord, 0, len(i.records))
	for _, rec := range i.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

// Kinds returns the distinct kinds present, sorted.
func (i *Index) Kinds() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := map[string]struct{}{}
	for key := range i.records {
		seen[key.Kind] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for kind := range seen {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Namespaces returns the distinct namespaces present, sorted.
func (i *Index) Namespaces() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := map[string]struct{}{}
	for key := range i.records {
		if key.Namespace != "" {
			seen[key.Namespace] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of indexed records.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

func sortRecords(recs []*ResourceRecord) {
	sort.Slice(recs, func(a, b int) bool {
		ka, kb := recs[a].Key, recs[b].Key
		if ka.Kind != kb.Kind {
			return ka.Kind < kb.Kind
		}
		if ka.Namespace != kb.Namespace {
			return ka.Namespace < kb.Namespace
		}
		return ka.Name < kb.Name
	})
}

// indexJSON is the persisted form of an Index.
type indexJSON struct {
	Records []*ResourceRecord `json:"records"`
}

// MarshalJSON serializes the index as a sorted record list.
func (i *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(indexJSON{Records: i.All()})
}

// UnmarshalJSON rebuilds the index from a persisted record list.
func (i *Index) UnmarshalJSON(data []byte) error {
	var raw indexJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.records = make(map[ResourceKey]*ResourceRecord, len(raw.Records))
	for _, rec := range raw.Records {
		i.records[rec.Key] = rec
	}
	return nil
}
