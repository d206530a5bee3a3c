package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := deriveKey("passphrase", []byte("salt"))
	require.Len(t, key, keyLen)

	sealed, err := encryptString(key, "top secret")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "top secret")

	plain, err := decryptString(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "top secret", plain)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	key := deriveKey("passphrase", []byte("salt"))

	a, err := encryptString(key, "same input")
	require.NoError(t, err)
	b, err := encryptString(key, "same input")
	require.NoError(t, err)

	// Random nonces mean identical plaintexts never collide on the wire.
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key := deriveKey("passphrase", []byte("salt"))

	_, err := decryptString(key, "!!not base64!!")
	assert.Error(t, err)

	_, err = decryptString(key, "AAAA") // too short for a nonce
	assert.Error(t, err)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a := deriveKey("p", []byte("s"))
	b := deriveKey("p", []byte("s"))
	c := deriveKey("p", []byte("other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestChecksumStable(t *testing.T) {
	assert.Equal(t, checksum("abc"), checksum("abc"))
	assert.NotEqual(t, checksum("abc"), checksum("abd"))
	assert.Len(t, checksum(""), 64)
}

func TestCompressRoundTrip(t *testing.T) {
	in := `{"payload":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`

	packed, err := compressString(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in))

	out, err := decompressString(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
