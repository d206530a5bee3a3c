package auth

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

func signedToken(t *testing.T, claims *Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return tok
}

func liveClaims() *Claims {
	now := time.Now()
	return &Claims{
		Subject:     "user-1",
		ExpiresAt:   now.Add(time.Hour).Unix(),
		IssuedAt:    now.Add(-time.Minute).Unix(),
		Role:        "member",
		Permissions: []string{"tasks:read"},
		Version:     2,
	}
}

func testKeyFunc(token *jwt.Token) (interface{}, error) {
	return testKey, nil
}

func TestDecodeToken(t *testing.T) {
	tok := signedToken(t, liveClaims())

	claims, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "member", claims.Role)
	assert.Equal(t, []string{"tasks:read"}, claims.Permissions)
	assert.Equal(t, 2, claims.Version)
}

func TestDecodeTokenRejectsMalformed(t *testing.T) {
	_, err := DecodeToken("not-a-token")
	assert.Error(t, err)

	_, err = DecodeToken("a.b")
	assert.Error(t, err)

	_, err = DecodeToken("??.??.??")
	assert.Error(t, err)
}

func TestDecodeTokenRejectsDisallowedAlgorithm(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(
		fmt.Sprintf(`{"sub":"user-1","exp":%d,"iat":%d}`,
			time.Now().Add(time.Hour).Unix(), time.Now().Unix())))

	_, err := DecodeToken(header + "." + payload + ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestDecodeTokenRequiresSubject(t *testing.T) {
	claims := liveClaims()
	claims.Subject = ""
	_, err := DecodeToken(signedToken(t, claims))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub")
}

func TestValidateToken(t *testing.T) {
	tok := signedToken(t, liveClaims())

	claims, err := ValidateToken(tok, testKeyFunc)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	claims := liveClaims()
	claims.ExpiresAt = time.Now().Add(-time.Hour).Unix()

	_, err := ValidateToken(signedToken(t, claims), testKeyFunc)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	tok := signedToken(t, liveClaims())

	_, err := ValidateToken(tok, func(token *jwt.Token) (interface{}, error) {
		return []byte("some-other-key"), nil
	})
	assert.Error(t, err)
}

func TestClaimsValid(t *testing.T) {
	assert.NoError(t, liveClaims().Valid())

	missing := &Claims{Subject: "u"}
	assert.Error(t, missing.Valid())

	future := liveClaims()
	future.IssuedAt = time.Now().Add(time.Hour).Unix()
	assert.ErrorIs(t, future.Valid(), jwt.ErrTokenUsedBeforeIssued)
}

func TestIsExpiredAndExpiresIn(t *testing.T) {
	assert.True(t, IsExpired(nil))
	assert.True(t, IsExpired(&Claims{}))

	expired := liveClaims()
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	assert.True(t, IsExpired(expired))
	assert.Equal(t, time.Duration(0), ExpiresIn(expired))

	live := liveClaims()
	assert.False(t, IsExpired(live))
	assert.Greater(t, ExpiresIn(live), 55*time.Minute)
}

func TestHasPermission(t *testing.T) {
	assert.False(t, HasPermission(nil, "tasks:read"))

	member := liveClaims()
	assert.True(t, HasPermission(member, "tasks:read"))
	assert.False(t, HasPermission(member, "tasks:delete"))

	admin := liveClaims()
	admin.Role = "admin"
	admin.Permissions = nil
	assert.True(t, HasPermission(admin, "anything"))

	wildcard := liveClaims()
	wildcard.Permissions = []string{"*"}
	assert.True(t, HasPermission(wildcard, "tasks:delete"))
}
