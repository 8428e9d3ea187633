package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediaconv/internal/domain/job"

	"github.com/google/uuid"
)

// Store owns the authoritative job records. Every mutation is written
// through to one JSON snapshot file per job so that status queries and
// downloads survive a process restart.
type Store struct {
	dir    string
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]job.Job
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string, logger *log.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
		jobs:   make(map[string]job.Job),
	}
}

// Load creates the snapshot directory and rehydrates all persisted jobs.
// Individually corrupt snapshot files are skipped and logged, never fatal.
func (s *Store) Load() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Printf("snapshot: skipping unreadable %s: %v", entry.Name(), err)
			continue
		}
		var j job.Job
		if err := json.Unmarshal(data, &j); err != nil || j.ID == "" {
			s.logger.Printf("snapshot: skipping corrupt %s", entry.Name())
			continue
		}
		s.jobs[j.ID] = j
	}
	return nil
}

// Create allocates a fresh id, writes the initial queued record and
// persists it. Fields other than source, input, target, options and title
// on the seed are ignored.
func (s *Store) Create(seed job.Job) (job.Job, error) {
	now := time.Now().UTC()
	j := job.Job{
		ID:        uuid.New().String(),
		Status:    job.StatusQueued,
		Source:    seed.Source,
		InputPath: seed.InputPath,
		Target:    seed.Target,
		Options:   seed.Options,
		Title:     seed.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(j); err != nil {
		return job.Job{}, fmt.Errorf("snapshot: persist %s: %w", j.ID, err)
	}
	s.jobs[j.ID] = j
	return j, nil
}

// Get returns a copy of the current record. A job missing from memory is
// looked up on disk so previously created jobs remain pollable after a
// restart.
func (s *Store) Get(id string) (job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

// Update merges the patch into an existing record, refreshes updatedAt and
// persists the snapshot. Unknown ids are a silent no-op: late progress
// callbacks can race process shutdown or the retention sweep. A terminal
// record is never changed, and progress never decreases. A failed snapshot
// write degrades to memory-only and is logged, never surfaced to the
// caller.
func (s *Store) Update(id string, patch job.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.lookup(id)
	if !ok || j.Status.Terminal() {
		return
	}

	if patch.Status != nil {
		j.Status = *patch.Status
	}
	if patch.Progress != nil && *patch.Progress >= j.Progress {
		j.Progress = *patch.Progress
	}
	if patch.InputPath != nil {
		j.InputPath = *patch.InputPath
	}
	if patch.OutputPath != nil {
		j.OutputPath = *patch.OutputPath
	}
	if patch.Title != nil {
		j.Title = *patch.Title
	}
	if patch.Error != nil {
		j.Error = *patch.Error
	}
	j.UpdatedAt = time.Now().UTC()

	s.jobs[id] = j
	if err := s.persist(j); err != nil {
		s.logger.Printf("snapshot: persist %s failed, record is memory-only: %v", id, err)
	}
}

// Remove deletes the in-memory record and its snapshot file.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	if path, ok := s.snapshotPath(id); ok {
		_ = os.Remove(path)
	}
}

// ListAll returns copies of every resident record, used by the retention
// sweeper and diagnostics.
func (s *Store) ListAll() []job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// lookup must be called with the mutex held.
func (s *Store) lookup(id string) (job.Job, bool) {
	if j, ok := s.jobs[id]; ok {
		return j, true
	}

	path, ok := s.snapshotPath(id)
	if !ok {
		return job.Job{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return job.Job{}, false
	}
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil || j.ID != id {
		return job.Job{}, false
	}
	s.jobs[id] = j
	return j, true
}

func (s *Store) snapshotPath(id string) (string, bool) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", false
	}
	return filepath.Join(s.dir, id+".json"), true
}

// persist writes the snapshot through a temp file and rename so a reader
// or a crash never observes a half-written record.
func (s *Store) persist(j job.Job) error {
	path, ok := s.snapshotPath(j.ID)
	if !ok {
		return fmt.Errorf("invalid job id %q", j.ID)
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
