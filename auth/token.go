// Package auth holds the client-side token helpers: decoding and validating
// TaskStream JWTs, permission checks, and OAuth provider configuration.
// Decoding is non-authoritative; the server remains the source of truth for
// authorization decisions.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// allowedAlgorithms restricts which signing algorithms a token header may
// declare. Anything else (notably "none") is rejected outright.
var allowedAlgorithms = []string{"RS256", "HS256"}

// Claims is the payload TaskStream access tokens carry.
type Claims struct {
	Subject     string   `json:"sub"`
	ExpiresAt   int64    `json:"exp"`
	IssuedAt    int64    `json:"iat"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Version     int      `json:"ver,omitempty"`
}

// Valid implements jwt.Claims: the token must carry exp/iat, not be expired,
// and not be issued in the future.
func (c *Claims) Valid() error {
	now := time.Now().Unix()
	if c.ExpiresAt == 0 || c.IssuedAt == 0 {
		return fmt.Errorf("token missing exp or iat claim")
	}
	if now >= c.ExpiresAt {
		return jwt.ErrTokenExpired
	}
	if c.IssuedAt > now {
		return jwt.ErrTokenUsedBeforeIssued
	}
	return nil
}

// DecodeToken splits and base64url-decodes a JWT without verifying its
// signature. The header's alg must still be one of the allowed algorithms so
// an obviously forged token fails early even client-side.
func DecodeToken(token string) (*Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode token header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("parse token header: %w", err)
	}
	if !algAllowed(header.Alg) {
		return nil, fmt.Errorf("token algorithm %q not allowed", header.Alg)
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}
	return &claims, nil
}

// ValidateToken parses and verifies a token, restricted to RS256/HS256.
// keyFunc supplies the verification key, typically the server's public key
// fetched at startup.
func ValidateToken(token string, keyFunc jwt.Keyfunc) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods(allowedAlgorithms))
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("validate token: token is not valid")
	}
	return claims, nil
}

// IsExpired reports whether the claims' exp is in the past. Claims without
// exp count as expired.
func IsExpired(c *Claims) bool {
	if c == nil || c.ExpiresAt == 0 {
		return true
	}
	return time.Now().Unix() >= c.ExpiresAt
}

// ExpiresIn returns the remaining lifetime, 0 if already expired.
func ExpiresIn(c *Claims) time.Duration {
	if IsExpired(c) {
		return 0
	}
	return time.Until(time.Unix(c.ExpiresAt, 0))
}

// HasPermission checks a permission against the claims. The admin role and a
// "*" grant match everything.
func HasPermission(c *Claims, permission string) bool {
	if c == nil {
		return false
	}
	if c.Role == "admin" {
		return true
	}
	for _, p := range c.Permissions {
		if p == "*" || p == permission {
			return true
		}
	}
	return false
}

func algAllowed(alg string) bool {
	for _, a := range allowedAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}
