package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mwidera/plenum/internal/services"
)

// storeSchemaVersion is written with every save so future readers can detect
// incompatible layouts. Unknown extra fields in records are ignored on load,
// which keeps older binaries forward-readable against newer stores.
const storeSchemaVersion = 1

type storeDocument struct {
	SchemaVersion int               `json:"schema_version"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Records       map[string]Record `json:"records"`
}

// Store is the durable identifier -> Record mapping. Every mutation is
// persisted with a full-replace atomic write before the caller proceeds, so a
// crash never loses more than the in-flight stage of one item. All writes are
// serialized through one mutex; snapshot reads copy the map.
type Store struct {
	path string

	mu      sync.RWMutex
	records map[string]Record
	loaded  bool
}

// NewStore builds a store over the given file path. Call Load before use.
func NewStore(path string) *Store {
	return &Store{path: path, records: make(map[string]Record)}
}

// Path returns the persisted store location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted store. A missing file is a fresh install and loads
// an empty store; an unreadable or unparsable file fails with ErrStoreCorrupt
// so completed work is never silently forgotten and reprocessed.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.records = make(map[string]Record)
			s.loaded = true
			return nil
		}
		return services.Wrap(services.ErrStoreCorrupt, "progress", "load", fmt.Sprintf("read %s", s.path), err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return services.Wrap(services.ErrStoreCorrupt, "progress", "load", fmt.Sprintf("parse %s", s.path), err)
	}
	if doc.SchemaVersion > storeSchemaVersion {
		return services.Wrap(services.ErrStoreCorrupt, "progress", "load",
			fmt.Sprintf("schema version %d is newer than supported %d", doc.SchemaVersion, storeSchemaVersion), nil)
	}

	records := make(map[string]Record, len(doc.Records))
	for id, rec := range doc.Records {
		if rec.Identifier == "" {
			rec.Identifier = id
		}
		if err := rec.Validate(); err != nil {
			return services.Wrap(services.ErrStoreCorrupt, "progress", "load", "invalid record", err)
		}
		records[rec.Identifier] = rec
	}
	s.records = records
	s.loaded = true
	return nil
}

// Save persists the full store atomically: write to a temp file in the same
// directory, fsync, then rename over the previous file.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := storeDocument{
		SchemaVersion: storeSchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Records:       s.records,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure progress directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Best-effort removal when the rename never happened.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write progress store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync progress store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("promote progress store: %w", err)
	}
	return nil
}

// Get returns the stored record for an identifier, or a default Pending
// record when the identifier is unknown. The default is not persisted.
func (s *Store) Get(identifier string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[identifier]; ok {
		return rec
	}
	return NewRecord(identifier)
}

// Upsert stores the record and immediately persists the whole store.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Identifier] = rec
	return s.saveLocked(ctx)
}

// EnsurePending creates Pending records for any identifiers the store has not
// seen before, persisting once if anything was added. Known identifiers are
// left untouched.
func (s *Store) EnsurePending(ctx context.Context, identifiers []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		if _, ok := s.records[id]; ok {
			continue
		}
		s.records[id] = NewRecord(id)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.saveLocked(ctx)
}

// Snapshot returns a copy of the record map for read-only use by the
// selection resolver and status rendering.
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// Len returns the number of known records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountByStatus aggregates record counts per status.
func (s *Store) CountByStatus() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(allStatuses))
	for _, rec := range s.records {
		counts[rec.Status]++
	}
	return counts
}

// FailedRecords returns Failed records ordered by most recent attempt first.
func (s *Store) FailedRecords() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var failed []Record
	for _, rec := range s.records {
		if rec.Status == StatusFailed {
			failed = append(failed, rec)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if failed[i].LastAttempt != nil {
			ti = *failed[i].LastAttempt
		}
		if failed[j].LastAttempt != nil {
			tj = *failed[j].LastAttempt
		}
		if ti.Equal(tj) {
			return failed[i].Identifier < failed[j].Identifier
		}
		return ti.After(tj)
	})
	return failed
}
