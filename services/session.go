package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	taskstream "github.com/taskstream-ai/taskstream-go"
	"github.com/taskstream-ai/taskstream-go/storage"
)

const (
	accessTokenKey  = "session.accessToken"
	refreshTokenKey = "session.refreshToken"
)

// SessionService drives the auth lifecycle against /api/v1/auth/* and keeps
// the token pair encrypted in client-side storage.
type SessionService struct {
	client *taskstream.Client
	store  *storage.Store
	logger *slog.Logger

	mu     sync.Mutex
	tokens TokenPair
}

// NewSessionService builds a session service. store may be nil, in which
// case tokens live only in memory.
func NewSessionService(client *taskstream.Client, store *storage.Store, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionService{client: client, store: store, logger: logger}
	s.restore()
	return s
}

// Login authenticates with credentials and persists the returned token pair.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("login: email and password are required")
	}

	data, err := s.client.Post(ctx, "/auth/login", &taskstream.RequestOptions{
		Body: map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("login: decode: %w", err)
	}
	if err := checkTokenShape(pair); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.setTokens(pair)
	return &pair, nil
}

// Refresh trades the refresh token for a new pair.
func (s *SessionService) Refresh(ctx context.Context) (*TokenPair, error) {
	s.mu.Lock()
	refresh := s.tokens.RefreshToken
	s.mu.Unlock()
	if refresh == "" {
		return nil, fmt.Errorf("refresh: no refresh token held")
	}

	data, err := s.client.Post(ctx, "/auth/refresh", &taskstream.RequestOptions{
		Body: map[string]string{"refreshToken": refresh},
	})
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("refresh: decode: %w", err)
	}
	if err := checkTokenShape(pair); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.setTokens(pair)
	return &pair, nil
}

// Logout invalidates the session server-side and wipes local tokens. The
// local wipe happens even when the server call fails, so a broken network
// never pins a session on the client.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	access := s.tokens.AccessToken
	s.mu.Unlock()

	var callErr error
	if access != "" {
		_, callErr = s.client.Post(ctx, "/auth/logout", &taskstream.RequestOptions{Token: access})
	}

	s.setTokens(TokenPair{})
	if s.store != nil {
		if err := s.store.Remove(accessTokenKey); err != nil {
			s.logger.Warn("failed to remove stored access token", "err", err)
		}
		if err := s.store.Remove(refreshTokenKey); err != nil {
			s.logger.Warn("failed to remove stored refresh token", "err", err)
		}
	}

	if callErr != nil {
		return fmt.Errorf("logout: %w", callErr)
	}
	return nil
}

// AccessToken returns the current access token, empty when logged out.
func (s *SessionService) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.AccessToken
}

func (s *SessionService) setTokens(pair TokenPair) {
	s.mu.Lock()
	s.tokens = pair
	s.mu.Unlock()

	if s.store == nil || pair.AccessToken == "" {
		return
	}
	if err := s.store.Set(accessTokenKey, pair.AccessToken, storage.Options{Encrypt: true}); err != nil {
		s.logger.Warn("failed to persist access token", "err", err)
	}
	if err := s.store.Set(refreshTokenKey, pair.RefreshToken, storage.Options{Encrypt: true}); err != nil {
		s.logger.Warn("failed to persist refresh token", "err", err)
	}
}

// restore loads a previously persisted session, if any.
func (s *SessionService) restore() {
	if s.store == nil {
		return
	}
	var access, refresh string
	if ok, _ := s.store.Get(accessTokenKey, &access, true); !ok {
		return
	}
	if ok, _ := s.store.Get(refreshTokenKey, &refresh, true); !ok {
		return
	}
	s.mu.Lock()
	s.tokens = TokenPair{AccessToken: access, RefreshToken: refresh}
	s.mu.Unlock()
}

// checkTokenShape rejects responses whose tokens do not look like JWTs.
func checkTokenShape(pair TokenPair) error {
	if !strings.HasPrefix(pair.AccessToken, "ey") {
		return fmt.Errorf("access token is not a JWT")
	}
	if !strings.HasPrefix(pair.RefreshToken, "ey") {
		return fmt.Errorf("refresh token is not a JWT")
	}
	return nil
}
