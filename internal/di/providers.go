package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"StockTime/internal/domain/repository"
	"StockTime/internal/handler/api"
	"StockTime/internal/handler/ws"
	mid "StockTime/internal/middleware"
	internalrepo "StockTime/internal/repository"
	"StockTime/internal/render"
	"StockTime/internal/service/gateway"
	"StockTime/internal/service/ratelimit"
	"StockTime/internal/usecase"
	"StockTime/pkg/cache"
	"StockTime/pkg/config"
	xhttp "StockTime/pkg/http"
	pkgkafka "StockTime/pkg/kafka"
	applogger "StockTime/pkg/logger"
	"StockTime/pkg/metrics"
	"StockTime/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector and /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache builds the gateway response cache. A nil service disables caching.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	c := cfg.Cache
	redisOpts := []cache.RedisOption{
		cache.WithRedisAddr(c.RedisAddr),
		cache.WithRedisPassword(c.RedisPass),
		cache.WithRedisDB(c.RedisDB),
		cache.WithRedisPool(c.PoolSize, c.MinIdleConns, c.DialTimeout),
		cache.WithRedisPrefix(c.RedisPrefix),
	}
	switch c.Type {
	case "none":
		return nil, nil
	case "redis":
		rc, err := cache.NewRedisCache(redisOpts...)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case "layered":
		rc, err := cache.NewRedisCache(redisOpts...)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(c.MaxSize),
			cache.WithLayeredMemoryTTL(c.L1TTL),
		), nil
	default:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(c.MaxSize),
			cache.WithMemoryCleanup(c.Cleanup),
		), nil
	}
}

// ProvideGateway creates the prediction service client, wrapped by the cache when one is configured.
func ProvideGateway(cfg *config.Config, m repository.Metrics, c cache.Service, l *applogger.Logger) *gateway.CachedGateway {
	base := gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, m, gateway.WithLogger(l))
	return gateway.NewCachedGateway(base, c, cfg.Gateway.PredictTTL, cfg.Gateway.TrackingTTL, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(cfg.Environment != "production"),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher picks Kafka when a producer exists and the log otherwise.
// With Kafka, aggregated warn/error logs are shipped through the same producer.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NewLogEventPublisher(l)
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	if cfg.Log.CollectTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectMax,
			Topic:          cfg.Log.CollectTopic,
			Service:        "stocktime",
			Publisher:      pub,
		})
	}
	return pub
}

// ProvideEventPipeline buffers session events in front of the publisher.
func ProvideEventPipeline(cfg *config.Config, pub repository.EventPublisher, m repository.Metrics, l *applogger.Logger) *mid.EventPipeline {
	return mid.NewEventPipeline(pub, m,
		mid.WithMaxRPS(cfg.Events.MaxRPS),
		mid.WithBufferSize(cfg.Events.BufferSize),
		mid.WithPipelineLogger(l),
	)
}

// ProvideHub creates the websocket hub that carries session frames.
func ProvideHub(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *ws.Hub {
	return ws.NewHub(l, m, ws.WithAllowedOrigins(cfg.Server.AllowedOrigins()))
}

// ProvideChartLibrary streams chart calls to browsers through the hub.
func ProvideChartLibrary(hub *ws.Hub) *render.Library {
	return render.NewLibrary(func(context.Context) (render.ChartFactory, error) {
		return render.NewStreamFactory(hub), nil
	})
}

// ProvideSessionRegistry creates the registry and attaches it to the hub.
func ProvideSessionRegistry(
	cfg *config.Config,
	gw *gateway.CachedGateway,
	m repository.Metrics,
	events *mid.EventPipeline,
	hub *ws.Hub,
	charts *render.Library,
	l *applogger.Logger,
) *usecase.SessionRegistry {
	reg := usecase.NewSessionRegistry(usecase.SessionDeps{
		Gateway:     gw,
		Invalidator: gw,
		Metrics:     m,
		Events:      events,
		Notifier:    hub,
		Charts:      charts,
		Log:         l,
	},
		usecase.WithMaxSessions(cfg.Sessions.Max),
		usecase.WithIdleTTL(cfg.Sessions.IdleTTL),
		usecase.WithOnClose(hub.CloseSession),
	)
	hub.Attach(reg)
	return reg
}

// ProvideLimiter throttles predict calls per session; nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond)
}

// ProvideDashboardHandler creates the JSON API handler.
func ProvideDashboardHandler(l *applogger.Logger, sessions *usecase.SessionRegistry, limiter *ratelimit.Limiter) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, sessions, limiter)
}

// ProvideHTTPServer mounts the API and websocket routes on one Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry, h *api.DashboardEchoHandler, hub *ws.Hub) *xhttp.Server {
	return xhttp.NewServer(xhttp.Handlers{h, hub},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.AllowedOrigins()...),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
		xhttp.WithRegistry(reg),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionRegistry,
	events *mid.EventPipeline,
	pub repository.EventPublisher,
	c cache.Service,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, httpServer, sessions, events, pub, c, limiter)
}
