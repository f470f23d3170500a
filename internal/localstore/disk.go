package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/stamp"
)

const (
	lockFileName   = ".planner.lock"
	lockRetryDelay = 25 * time.Millisecond
	lockTimeout    = 5 * time.Second

	// DefaultMaxBytes mirrors the usual per-origin browser storage limit.
	DefaultMaxBytes = 5 * 1024 * 1024
)

var _ Store = (*DiskStore)(nil)

// DiskStore keeps one JSON file per collection in dir. Writes are atomic
// (temp file + rename) and serialized across processes with a file lock.
type DiskStore struct {
	dir      string
	maxBytes int64
	clock    *stamp.Clock

	mu   sync.RWMutex
	lock *flock.Flock
}

func NewDiskStore(dir string, clock *stamp.Clock, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &DiskStore{
		dir:      dir,
		maxBytes: maxBytes,
		clock:    clock,
		lock:     flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(key plan.Key) string {
	return filepath.Join(s.dir, string(key)+".json")
}

func (s *DiskStore) Load(key plan.Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(key)
}

func (s *DiskStore) read(key plan.Key) (*Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		log.Warnf("local store: %s is not valid json: %s", key, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return rec, nil
}

func (s *DiskStore) Save(key plan.Key, data any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return 0, err
	}
	defer unlock()

	// another process sharing dir may have stamped this key already
	if prev, err := s.read(key); err == nil && prev != nil {
		s.clock.Observe(prev.LastModified)
	}

	lastModified := s.clock.Next()
	if err := s.write(key, data, lastModified); err != nil {
		return 0, err
	}
	return lastModified, nil
}

func (s *DiskStore) SaveStamped(key plan.Key, data any, lastModified int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	s.clock.Observe(lastModified)
	return s.write(key, data, lastModified)
}

func (s *DiskStore) lockFile() (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire lock: %w", ErrLocalWrite, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: data dir locked by another process", ErrLocalWrite)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			log.Errorf("local store: release lock: %s", err)
		}
	}, nil
}

func (s *DiskStore) write(key plan.Key, data any, lastModified int64) error {
	out, err := encode(key, data, lastModified)
	if err != nil {
		return err
	}

	used, err := s.usedBytes(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	if used+int64(len(out)) > s.maxBytes {
		return fmt.Errorf("%w: %w: %s needs %d bytes, %d of %d in use",
			ErrLocalWrite, ErrQuotaExceeded, key, len(out), used, s.maxBytes)
	}

	tmp, err := os.CreateTemp(s.dir, string(key)+".*.tmp")
	if err != nil {
		return wrapWriteErr(key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return wrapWriteErr(key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return wrapWriteErr(key, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapWriteErr(key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return wrapWriteErr(key, err)
	}
	return nil
}

// usedBytes sums the size of every stored collection except key.
func (s *DiskStore) usedBytes(except plan.Key) (int64, error) {
	var used int64
	for _, k := range plan.Keys {
		if k == except {
			continue
		}
		info, err := os.Stat(s.path(k))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
		used += info.Size()
	}
	return used, nil
}

func wrapWriteErr(key plan.Key, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %w: %s: %w", ErrLocalWrite, ErrQuotaExceeded, key, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrLocalWrite, key, err)
}
