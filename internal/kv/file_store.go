package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore is a JSON-file-backed KV. The whole keyspace lives in one
// file and is rewritten atomically on every mutation (write to a temp
// file in the same directory, then os.Rename). LocalStore only ever
// holds a handful of keys with O(10^3) items behind them, so a
// whole-file rewrite stays cheap.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFileStore opens (or creates) a FileStore backed by path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path) // #nosec G304 -- path is caller-controlled configuration
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("kv: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		return nil, fmt.Errorf("kv: parse %s: %w", path, err)
	}
	return fs, nil
}

// Path returns the backing file's path, for callers that want to watch
// it for external writes.
func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.data[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (fs *FileStore) Set(key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.data[key] = json.RawMessage(value)
	return fs.flushLocked()
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.data[key]; !ok {
		return nil // deleting a missing key is idempotent
	}
	delete(fs.data, key)
	return fs.flushLocked()
}

func (fs *FileStore) Keys() ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, 0, len(fs.data))
	for k := range fs.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// flushLocked atomically rewrites the backing file. Caller must hold fs.mu.
func (fs *FileStore) flushLocked() error {
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kv: create dir %s: %w", dir, err)
	}

	encoded, err := json.Marshal(fs.data)
	if err != nil {
		return fmt.Errorf("kv: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("kv: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(encoded); err != nil {
		return fmt.Errorf("kv: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		return fmt.Errorf("kv: replace %s: %w", fs.path, err)
	}
	return nil
}
