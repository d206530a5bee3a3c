package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrQuotaExceeded is reported by a Backend when a write would exceed its
// capacity. The Store reacts by evicting the oldest entry and retrying.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is the raw key-value device underneath a Store. Implementations
// must be safe for concurrent use.
type Backend interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

// MemoryBackend is a size-bounded in-memory backend, mainly for tests and
// short-lived processes. MaxBytes <= 0 means unbounded.
type MemoryBackend struct {
	mu       sync.Mutex
	maxBytes int
	items    map[string]string
}

// NewMemoryBackend creates a backend capped at maxBytes of stored values.
func NewMemoryBackend(maxBytes int) *MemoryBackend {
	return &MemoryBackend{
		maxBytes: maxBytes,
		items:    make(map[string]string),
	}
}

func (m *MemoryBackend) Read(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryBackend) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 {
		total := len(key) + len(value)
		for k, v := range m.items {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > m.maxBytes {
			return ErrQuotaExceeded
		}
	}
	m.items[key] = value
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys, nil
}

const fileExt = ".tskv"

// FileBackend persists one file per key under a directory. Keys are
// base64url-encoded into filenames so arbitrary strings stay safe on disk.
type FileBackend struct {
	mu  sync.Mutex
	dir string
}

// NewFileBackend creates (if needed) dir and returns a backend over it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	return filepath.Join(f.dir, name+fileExt)
}

func (f *FileBackend) Read(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FileBackend) Write(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.WriteFile(f.path(key), []byte(value), 0o600); err != nil {
		// Treat a full filesystem like a quota error so the store's
		// eviction retry kicks in.
		if strings.Contains(err.Error(), "no space left") {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue // not one of ours
		}
		keys = append(keys, string(raw))
	}
	return keys, nil
}
