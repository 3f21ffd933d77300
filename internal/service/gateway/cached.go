package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/pkg/cache"
	"StockTime/pkg/logger"
)

// CachedGateway serves repeated identical queries from a cache for a short TTL.
// A zero TTL disables caching for that operation. Only successful responses are cached.
type CachedGateway struct {
	next        drepo.PredictionGateway
	cache       cache.Service
	predictTTL  time.Duration
	trackingTTL time.Duration
	log         *logger.Logger
}

// NewCachedGateway wraps next with c. A nil cache passes every call through.
func NewCachedGateway(next drepo.PredictionGateway, c cache.Service, predictTTL, trackingTTL time.Duration, l *logger.Logger) *CachedGateway {
	if c == nil {
		predictTTL, trackingTTL = 0, 0
	}
	return &CachedGateway{next: next, cache: c, predictTTL: predictTTL, trackingTTL: trackingTTL, log: l}
}

func (g *CachedGateway) FetchPrediction(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
	if g.predictTTL <= 0 {
		return g.next.FetchPrediction(ctx, q)
	}
	key := cache.GenerateKeyWithParams("predict", q.Ticker, q.MarketType, q.Timeframe)
	var res models.PredictionResult
	if g.lookup(ctx, key, &res) {
		return &res, nil
	}
	out, err := g.next.FetchPrediction(ctx, q)
	if err != nil {
		return nil, err
	}
	g.store(ctx, key, out, g.predictTTL)
	return out, nil
}

func (g *CachedGateway) FetchTracking(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
	if g.trackingTTL <= 0 {
		return g.next.FetchTracking(ctx, q)
	}
	key := cache.GenerateKeyWithParams("track", q.Ticker, q.MarketType, q.Timeframe, q.Days)
	var res models.TrackingResult
	if g.lookup(ctx, key, &res) {
		return &res, nil
	}
	out, err := g.next.FetchTracking(ctx, q)
	if err != nil {
		return nil, err
	}
	g.store(ctx, key, out, g.trackingTTL)
	return out, nil
}

// InvalidateTracking drops every cached tracking response for ticker.
func (g *CachedGateway) InvalidateTracking(ctx context.Context, ticker string) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKeyWithParams("track", ticker)+":"))
}

func (g *CachedGateway) lookup(ctx context.Context, key string, dest interface{}) bool {
	var raw string
	if err := g.cache.Get(ctx, key, &raw); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && g.log != nil {
			g.log.Warn("gateway cache get failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		_ = g.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (g *CachedGateway) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, string(b), ttl); err != nil && g.log != nil {
		g.log.Warn("gateway cache set failed", logger.String("key", key), logger.Error(err))
	}
}

var _ drepo.PredictionGateway = (*CachedGateway)(nil)
