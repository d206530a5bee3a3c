package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newTestStore() *Store {
	return NewStore(NewMemoryBackend(0), "test-passphrase")
}

func TestStoreRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"plain", Options{}},
		{"encrypted", Options{Encrypt: true}},
		{"compressed", Options{Compress: true}},
		{"encrypted and compressed", Options{Encrypt: true, Compress: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			in := profile{Name: "Ada", Email: "ada@taskstream.test"}
			require.NoError(t, s.Set("profile", in, tt.opts))

			var out profile
			ok, err := s.Get("profile", &out, tt.opts.Encrypt)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, in, out)
		})
	}
}

func TestStoreGetMissingKey(t *testing.T) {
	s := newTestStore()
	var out profile
	ok, err := s.Get("nope", &out, false)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	s := newTestStore()
	assert.Error(t, s.Set("", "v", Options{}))
}

func TestStoreEncryptionRequiresPassphrase(t *testing.T) {
	s := NewStore(NewMemoryBackend(0), "")
	err := s.Set("k", "v", Options{Encrypt: true})
	assert.Error(t, err)
}

func TestStoreTamperedPayloadReadsAsMiss(t *testing.T) {
	backend := NewMemoryBackend(0)
	s := NewStore(backend, "pass")
	require.NoError(t, s.Set("k", "value", Options{}))

	blob, ok, err := backend.Read("k")
	require.NoError(t, err)
	require.True(t, ok)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(blob), &env))
	env.Data = `"tampered"` // hash no longer matches
	mangled, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, backend.Write("k", string(mangled)))

	var out string
	got, err := s.Get("k", &out, false)
	assert.NoError(t, err, "integrity failures degrade to a miss, never an error")
	assert.False(t, got)
}

func TestStoreMalformedEnvelopeReadsAsMiss(t *testing.T) {
	backend := NewMemoryBackend(0)
	s := NewStore(backend, "pass")
	require.NoError(t, backend.Write("k", "definitely not json"))

	var out string
	ok, err := s.Get("k", &out, false)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEncryptedValueWithoutDecryptIsMiss(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("secret", "v", Options{Encrypt: true}))

	var out string
	ok, err := s.Get("secret", &out, false)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreWrongPassphraseIsMiss(t *testing.T) {
	backend := NewMemoryBackend(0)
	require.NoError(t, NewStore(backend, "right").Set("secret", "v", Options{Encrypt: true}))

	var out string
	ok, err := NewStore(backend, "wrong").Get("secret", &out, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreQuotaEvictsOldest(t *testing.T) {
	// Cap sized so a single envelope fits but two do not.
	backend := NewMemoryBackend(300)
	s := NewStore(backend, "pass")

	ts := int64(1000)
	s.nowMs = func() int64 { ts++; return ts }

	require.NoError(t, s.Set("first", "hello", Options{}))
	require.NoError(t, s.Set("second", "world", Options{}))

	var out string
	ok, _ := s.Get("first", &out, false)
	assert.False(t, ok, "oldest entry should have been evicted")

	ok, _ = s.Get("second", &out, false)
	require.True(t, ok)
	assert.Equal(t, "world", out)
}

func TestStoreRemove(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("k", "v", Options{}))
	require.NoError(t, s.Remove("k"))

	var out string
	ok, _ := s.Get("k", &out, false)
	assert.False(t, ok)

	// Removing a missing key is not an error.
	assert.NoError(t, s.Remove("k"))
}

func TestStoreClearPreservesNamedKeys(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("keep", "a", Options{}))
	require.NoError(t, s.Set("drop1", "b", Options{}))
	require.NoError(t, s.Set("drop2", "c", Options{}))

	require.NoError(t, s.Clear("keep"))

	var out string
	ok, _ := s.Get("keep", &out, false)
	require.True(t, ok)
	assert.Equal(t, "a", out)

	ok, _ = s.Get("drop1", &out, false)
	assert.False(t, ok)
	ok, _ = s.Get("drop2", &out, false)
	assert.False(t, ok)
}

func TestStoreCustomSaltChangesKey(t *testing.T) {
	backend := NewMemoryBackend(0)
	require.NoError(t,
		NewStore(backend, "pass", WithSalt([]byte("salt-a"))).Set("k", "v", Options{Encrypt: true}))

	var out string
	ok, _ := NewStore(backend, "pass", WithSalt([]byte("salt-b"))).Get("k", &out, true)
	assert.False(t, ok)

	ok, _ = NewStore(backend, "pass", WithSalt([]byte("salt-a"))).Get("k", &out, true)
	require.True(t, ok)
	assert.Equal(t, "v", out)
}
