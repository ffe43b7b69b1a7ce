package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// snapshotVersion is bumped whenever the persisted layout changes shape.
const snapshotVersion = 1

// ErrSnapshotVersion is returned by Load for files written by an
// incompatible release.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"savedAt"`
	Data    json.RawMessage `json:"data"`
}

// JSONStore keeps one versioned snapshot document on disk. Saves go through a
// synced temp file renamed over the target, so readers never see a partial
// snapshot.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
	now      func() time.Time
}

// NewJSONStore creates dataDir if needed and returns a store for
// dataDir/filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &JSONStore{
		filePath: filepath.Join(dataDir, filename),
		now:      time.Now,
	}, nil
}

// Load decodes the snapshot payload into data. A missing file leaves data
// untouched.
func (s *JSONStore) Load(data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, env.Version)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, data)
}

// Save replaces the snapshot with data.
func (s *JSONStore) Save(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := json.MarshalIndent(envelope{
		Version: snapshotVersion,
		SavedAt: s.now().UTC(),
		Data:    payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := s.filePath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := file.Write(out); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, s.filePath)
}

func (s *JSONStore) Path() string {
	return s.filePath
}
