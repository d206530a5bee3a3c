package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	taskstream "github.com/taskstream-ai/taskstream-go"
)

const analyticsCacheTTL = time.Minute

// AnalyticsService assembles project dashboards from the analytics
// endpoints. Performance and resource metrics are required; predictions are
// best-effort and a failed fetch degrades to a nil field instead of failing
// the whole dashboard.
type AnalyticsService struct {
	client *taskstream.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedDashboard
	ttl   time.Duration
}

type cachedDashboard struct {
	dash      *Dashboard
	expiresAt time.Time
}

// NewAnalyticsService builds an analytics service over the given client.
func NewAnalyticsService(client *taskstream.Client, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		client: client,
		logger: logger,
		cache:  make(map[string]cachedDashboard),
		ttl:    analyticsCacheTTL,
	}
}

// Dashboard fetches the three analytics views for a project concurrently and
// caches the assembled result for a short TTL.
func (s *AnalyticsService) Dashboard(ctx context.Context, projectID string) (*Dashboard, error) {
	if projectID == "" {
		return nil, fmt.Errorf("dashboard: projectId is required")
	}

	s.mu.Lock()
	if c, ok := s.cache[projectID]; ok && time.Now().Before(c.expiresAt) {
		s.mu.Unlock()
		return c.dash, nil
	}
	s.mu.Unlock()

	dash := &Dashboard{ProjectID: projectID, FetchedAt: time.Now().UTC()}
	params := map[string]string{"projectId": projectID}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := s.client.Get(gctx, "/analytics/performance", &taskstream.RequestOptions{Params: params})
		if err != nil {
			return fmt.Errorf("fetch performance metrics: %w", err)
		}
		var m PerformanceMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode performance metrics: %w", err)
		}
		dash.Performance = &m
		return nil
	})

	g.Go(func() error {
		data, err := s.client.Get(gctx, "/analytics/resources", &taskstream.RequestOptions{Params: params})
		if err != nil {
			return fmt.Errorf("fetch resource metrics: %w", err)
		}
		var m ResourceMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode resource metrics: %w", err)
		}
		dash.Resources = &m
		return nil
	})

	// Predictions come from the ML service and are allowed to fail.
	g.Go(func() error {
		data, err := s.client.Get(gctx, "/analytics/predictions", &taskstream.RequestOptions{Params: params})
		if err != nil {
			s.logger.Warn("predictions unavailable, continuing without them",
				"projectId", projectID, "err", err)
			return nil
		}
		var p Predictions
		if err := json.Unmarshal(data, &p); err != nil {
			s.logger.Warn("predictions payload malformed, continuing without them",
				"projectId", projectID, "err", err)
			return nil
		}
		dash.Predictions = &p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[projectID] = cachedDashboard{dash: dash, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return dash, nil
}

// Invalidate drops the cached dashboard for a project, forcing the next
// Dashboard call to refetch.
func (s *AnalyticsService) Invalidate(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, projectID)
}
