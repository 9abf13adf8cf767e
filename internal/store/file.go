package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// envelope is the on-disk representation of one slot.
type envelope struct {
	Version uint64 `json:"version"`
	Value   string `json:"value"`
}

// FileStore persists each slot as a JSON file under a data directory.
// Writes go through a temp file and rename so a reader never observes a
// partial value. A process-wide mutex serializes in-process access; there
// is no cross-process locking, which is why callers use the versioned
// read-modify-write cycle.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	// Keys are fixed internal names; replace separators defensively so a
	// key can never escape the data directory.
	key = strings.NewReplacer("/", "_", string(filepath.Separator), "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStore) read(key string) (envelope, bool, error) {
	raw, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return envelope{}, false, nil
	}
	if err != nil {
		return envelope{}, false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// An unreadable slot file degrades to an absent slot at version 0
		// so readers see the empty collection and the next write repairs
		// the file.
		slog.Warn("Discarding unparsable slot file", "key", key, "err", err, "bytes", len(raw))
		return envelope{}, false, nil
	}
	return env, true, nil
}

func (f *FileStore) write(key string, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode slot %q: %w", key, err)
	}
	dst := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace slot %q: %w", key, err)
	}
	return nil
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok, err := f.read(key)
	if err != nil || !ok {
		return "", false, err
	}
	return env.Value, true, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, _, err := f.read(key)
	if err != nil {
		return err
	}
	return f.write(key, envelope{Version: env.Version + 1, Value: value})
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove slot %q: %w", key, err)
	}
	return nil
}

func (f *FileStore) GetVersioned(key string) (string, uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok, err := f.read(key)
	if err != nil || !ok {
		return "", 0, false, err
	}
	return env.Value, env.Version, true, nil
}

func (f *FileStore) SetVersioned(key, value string, version uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok, err := f.read(key)
	if err != nil {
		return err
	}
	current := env.Version
	if !ok {
		current = 0
	}
	if current != version {
		return ErrVersionConflict
	}
	return f.write(key, envelope{Version: version + 1, Value: value})
}
