// Package storage persists JSON values in a key-value backend with optional
// AES-GCM encryption, optional deflate compression, and a SHA-256 integrity
// hash over the final payload. Reads never fail loudly: any corruption,
// tampering, or decode problem degrades to a miss. Writes retry a bounded
// number of times, evicting the oldest entry when the backend reports a
// quota error.
package storage

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
)

const writeAttempts = 3

// defaultSalt is used when the caller does not supply one. It only needs to
// be stable per deployment; the passphrase carries the secrecy.
var defaultSalt = []byte("taskstream-storage-v1")

// envelope is the wrapper written to the backend:
// {data, hash, meta:{encrypted, compressed, timestamp}}.
type envelope struct {
	Data string `json:"data"`
	Hash string `json:"hash"`
	Meta meta   `json:"meta"`
}

type meta struct {
	Encrypted  bool  `json:"encrypted"`
	Compressed bool  `json:"compressed"`
	Timestamp  int64 `json:"timestamp"` // unix ms, used for oldest-first eviction
}

// Options selects the transformations applied on Set.
type Options struct {
	Encrypt  bool
	Compress bool
}

// Store wraps a Backend with the encrypt/compress/checksum pipeline.
type Store struct {
	backend Backend
	salt    []byte
	key     []byte
	logger  *slog.Logger
	nowMs   func() int64
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSalt overrides the key-derivation salt.
func WithSalt(salt []byte) StoreOption {
	return func(s *Store) {
		if len(salt) > 0 {
			s.salt = salt
		}
	}
}

// NewStore builds a store over backend. The passphrase is stretched into an
// AES-256 key; it may be empty if encryption is never requested.
func NewStore(backend Backend, passphrase string, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		salt:    defaultSalt,
		logger:  slog.Default(),
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if passphrase != "" {
		s.key = deriveKey(passphrase, s.salt)
	}
	return s
}

// Set serializes value and writes it under key. The pipeline is
// json -> (compress -> base64) -> (encrypt) -> hash -> envelope.
// Quota errors trigger oldest-first eviction with up to 3 attempts total.
func (s *Store) Set(key string, value any, opts Options) error {
	if key == "" {
		return fmt.Errorf("storage: key must not be empty")
	}
	if opts.Encrypt && s.key == nil {
		return fmt.Errorf("storage: encryption requested but store has no passphrase")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal value: %w", err)
	}
	payload := string(raw)

	if opts.Compress {
		payload, err = compressString(payload)
		if err != nil {
			return err
		}
	}
	if opts.Encrypt {
		payload, err = encryptString(s.key, payload)
		if err != nil {
			return err
		}
	}

	env := envelope{
		Data: payload,
		Hash: checksum(payload),
		Meta: meta{
			Encrypted:  opts.Encrypt,
			Compressed: opts.Compress,
			Timestamp:  s.nowMs(),
		},
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("storage: marshal envelope: %w", err)
	}

	for attempt := 1; attempt <= writeAttempts; attempt++ {
		err = s.backend.Write(key, string(blob))
		if err == nil {
			return nil
		}
		if err != ErrQuotaExceeded {
			return err
		}
		s.logger.Warn("storage quota exceeded, evicting oldest entry",
			"key", key, "attempt", attempt)
		if !s.evictOldest(key) {
			break
		}
	}
	return fmt.Errorf("storage: write %q failed after %d attempts: %w", key, writeAttempts, err)
}

// Get reads key into v. The returned bool reports whether a trustworthy
// value was found: missing keys, hash mismatches, decryption failures, and
// malformed payloads all come back as (false, nil) — logged, never thrown.
// decrypt must match the Encrypt flag used on Set.
func (s *Store) Get(key string, v any, decrypt bool) (bool, error) {
	blob, ok, err := s.backend.Read(key)
	if err != nil {
		s.logger.Warn("storage read failed", "key", key, "err", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		s.logger.Warn("storage envelope malformed", "key", key, "err", err)
		return false, nil
	}

	// Integrity check before trusting anything else in the envelope.
	if checksum(env.Data) != env.Hash {
		s.logger.Warn("storage integrity check failed", "key", key)
		return false, nil
	}

	payload := env.Data
	if env.Meta.Encrypted {
		if !decrypt || s.key == nil {
			s.logger.Warn("storage value is encrypted but decryption unavailable", "key", key)
			return false, nil
		}
		payload, err = decryptString(s.key, payload)
		if err != nil {
			s.logger.Warn("storage decrypt failed", "key", key, "err", err)
			return false, nil
		}
	}
	if env.Meta.Compressed {
		payload, err = decompressString(payload)
		if err != nil {
			s.logger.Warn("storage decompress failed", "key", key, "err", err)
			return false, nil
		}
	}

	if err := json.Unmarshal([]byte(payload), v); err != nil {
		s.logger.Warn("storage value unmarshal failed", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

// Remove overwrites the stored blob with same-length garbage before deleting
// it, reducing the chance the old value survives in backing media.
func (s *Store) Remove(key string) error {
	blob, ok, err := s.backend.Read(key)
	if err == nil && ok {
		garbage := make([]byte, len(blob))
		if _, rerr := rand.Read(garbage); rerr == nil {
			_ = s.backend.Write(key, base64.StdEncoding.EncodeToString(garbage)[:len(blob)])
		}
	}
	return s.backend.Delete(key)
}

// Clear wipes every key, then restores the preserved ones from a snapshot
// taken before the wipe.
func (s *Store) Clear(preserve ...string) error {
	preserved := make(map[string]string, len(preserve))
	for _, key := range preserve {
		if blob, ok, err := s.backend.Read(key); err == nil && ok {
			preserved[key] = blob
		}
	}

	keys, err := s.backend.Keys()
	if err != nil {
		return fmt.Errorf("storage: clear: %w", err)
	}
	for _, key := range keys {
		if err := s.Remove(key); err != nil {
			return fmt.Errorf("storage: clear %q: %w", key, err)
		}
	}

	for key, blob := range preserved {
		if err := s.backend.Write(key, blob); err != nil {
			return fmt.Errorf("storage: restore %q: %w", key, err)
		}
	}
	return nil
}

// evictOldest deletes the entry with the smallest envelope timestamp,
// skipping the key currently being written. Returns false when there was
// nothing to evict.
func (s *Store) evictOldest(exclude string) bool {
	keys, err := s.backend.Keys()
	if err != nil {
		return false
	}

	oldestKey := ""
	oldestTs := int64(0)
	for _, key := range keys {
		if key == exclude {
			continue
		}
		blob, ok, err := s.backend.Read(key)
		if err != nil || !ok {
			continue
		}
		var env envelope
		ts := int64(0)
		if json.Unmarshal([]byte(blob), &env) == nil {
			ts = env.Meta.Timestamp
		}
		if oldestKey == "" || ts < oldestTs {
			oldestKey = key
			oldestTs = ts
		}
	}
	if oldestKey == "" {
		return false
	}
	_ = s.backend.Delete(oldestKey)
	return true
}

// compressString deflates then base64-encodes.
func compressString(in string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", fmt.Errorf("storage: init compressor: %w", err)
	}
	if _, err := w.Write([]byte(in)); err != nil {
		return "", fmt.Errorf("storage: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompressString reverses compressString.
func decompressString(in string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return "", fmt.Errorf("storage: decode compressed data: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("storage: decompress: %w", err)
	}
	return string(out), nil
}
