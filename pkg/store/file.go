package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 10 * time.Millisecond

// FileStore keeps each run as a JSON file in a directory.
// A mutex serializes access inside the process and a lock file next to the
// runs serializes access across processes.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	lock    *flock.Flock
}

// NewFileStore creates a file-backed store.
// If baseDir is empty, defaults to ~/.config/sceneguard/runs/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "sceneguard", "runs")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		lock:    flock.New(filepath.Join(baseDir, ".lock")),
	}, nil
}

// Path returns the directory holding the run files.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = s.lock.TryLockContext(ctx, lockRetry)
	} else {
		ok, err = s.lock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire run lock: %w", ctx.Err())
	}
	defer s.lock.Unlock()
	return fn()
}

// Save writes run to disk, replacing any run with the same ID.
func (s *FileStore) Save(ctx context.Context, run *Run) error {
	if err := prepare(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(ctx, true, func() error {
		tmp, err := os.CreateTemp(s.baseDir, ".run-*")
		if err != nil {
			return fmt.Errorf("create run file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("write run file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("write run file: %w", err)
		}
		if err := os.Rename(tmp.Name(), s.runPath(run.ID)); err != nil {
			return fmt.Errorf("write run file: %w", err)
		}
		return nil
	})
}

// Get loads a run by ID.
func (s *FileStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run *Run
	err := s.withLock(ctx, false, func() error {
		var err error
		run, err = s.read(s.runPath(id))
		if os.IsNotExist(err) {
			return notFound(id)
		}
		return err
	})
	return run, err
}

// List returns the newest runs first, without their result payload.
func (s *FileStore) List(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*Run
	err := s.withLock(ctx, false, func() error {
		entries, err := os.ReadDir(s.baseDir)
		if err != nil {
			return fmt.Errorf("read run dir: %w", err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
				continue
			}
			run, err := s.read(filepath.Join(s.baseDir, name))
			if err != nil {
				// Unreadable files are skipped; one bad run should not hide the rest.
				continue
			}
			run.Result = nil
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Delete removes a run.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(ctx, true, func() error {
		err := os.Remove(s.runPath(id))
		if os.IsNotExist(err) {
			return notFound(id)
		}
		if err != nil {
			return fmt.Errorf("delete run file: %w", err)
		}
		return nil
	})
}

// Close releases nothing; runs live on disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", filepath.Base(path), err)
	}
	return &run, nil
}

func sortNewestFirst(runs []*Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

var _ Store = (*FileStore)(nil)
