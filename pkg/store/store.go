// Package store persists parsed captures as JSON blobs on disk and keeps
// an in-memory cache in front of them. Captures written here survive
// process restarts; sandbox directories do not, so reloaded captures may
// reference extraction roots that no longer exist.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gatherlens/gatherlens/pkg/capture"
	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	dir      string
	captures map[string]*capture.Capture
}

// Open creates the storage directory if needed and loads every persisted
// capture into memory. Unreadable blobs are skipped with a warning so one
// corrupt file cannot take the whole store down.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	s := &Store{dir: dir, captures: map[string]*capture.Capture{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading storage directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		c, err := readCapture(path)
		if err != nil {
			slog.Warn("skipping unreadable capture blob", "path", path, "error", err)
			continue
		}
		s.captures[c.ID] = c
	}

	slog.Info("capture store opened", slog.String("dir", dir), slog.Int("captures", len(s.captures)))
	return s, nil
}

// Put persists the capture and makes it visible to readers. The blob is
// written to a temporary file and renamed so readers never observe a
// partial capture.
func (s *Store) Put(c *capture.Capture) error {
	if err := validateID(c.ID); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding capture %q: %w", c.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "capture-*.tmp")
	if err != nil {
		return fmt.Errorf("staging capture %q: %w", c.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing capture %q: %w", c.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing capture %q: %w", c.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.blobPath(c.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persisting capture %q: %w", c.ID, err)
	}

	s.mu.Lock()
	s.captures[c.ID] = c
	s.mu.Unlock()

	slog.Debug("capture persisted", slog.String("id", c.ID), slog.Int("bytes", len(data)))
	return nil
}

// Get returns the capture with the given id.
func (s *Store) Get(id string) (*capture.Capture, error) {
	s.mu.RLock()
	c, ok := s.captures[id]
	s.mu.RUnlock()
	if !ok {
		return nil, glerrors.Newf(glerrors.ErrCodeNotFound, "capture %q not found", id)
	}
	return c, nil
}

// List returns all captures, most recently extracted first.
func (s *Store) List() []*capture.Capture {
	s.mu.RLock()
	out := make([]*capture.Capture, 0, len(s.captures))
	for _, c := range s.captures {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExtractedAt.Equal(out[j].ExtractedAt) {
			return out[i].ExtractedAt.After(out[j].ExtractedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Evict removes the capture from memory and disk, and deletes its sandbox
// directory when this process owns it.
func (s *Store) Evict(id string) error {
	s.mu.Lock()
	c, ok := s.captures[id]
	delete(s.captures, id)
	s.mu.Unlock()

	if !ok {
		return glerrors.Newf(glerrors.ErrCodeNotFound, "capture %q not found", id)
	}

	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing capture %q: %w", id, err)
	}
	if c.Sandbox && c.Root != "" {
		if err := os.RemoveAll(c.Root); err != nil {
			slog.Warn("failed to remove capture sandbox", "id", id, "root", c.Root, "error", err)
		}
	}

	slog.Info("capture evicted", slog.String("id", id))
	return nil
}

// Len reports the number of stored captures.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.captures)
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func readCapture(path string) (*capture.Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c capture.Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, fmt.Errorf("capture blob has no id")
	}
	return &c, nil
}

// validateID rejects ids that could escape the storage directory when used
// as a file name.
func validateID(id string) error {
	if id == "" {
		return glerrors.New(glerrors.ErrCodeInvalidRequest, "capture id is empty")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return glerrors.Newf(glerrors.ErrCodeInvalidRequest, "capture id %q contains invalid characters", id)
		}
	}
	return nil
}
