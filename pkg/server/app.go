package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	domrepo "StockTime/internal/domain/repository"
	mid "StockTime/internal/middleware"
	"StockTime/internal/service/ratelimit"
	"StockTime/internal/usecase"
	"StockTime/pkg/cache"
	"StockTime/pkg/config"
	xhttp "StockTime/pkg/http"
	applogger "StockTime/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.SessionRegistry
	events     *mid.EventPipeline
	publisher  domrepo.EventPublisher
	cache      cache.Service
	limiter    *ratelimit.Limiter

	wg sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionRegistry,
	events *mid.EventPipeline,
	publisher domrepo.EventPublisher,
	c cache.Service,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		sessions:   sessions,
		events:     events,
		publisher:  publisher,
		cache:      c,
		limiter:    limiter,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The pipeline outlives the signal context so Stop can flush into a live publisher.
	pipeCtx, cancelPipe := context.WithCancel(context.Background())
	defer cancelPipe()
	a.events.Start(pipeCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sessions.Run(ctx, a.cfg.Sessions.SweepInterval)
	}()

	if a.limiter != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.pruneLimiter(ctx)
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("stocktime started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("prediction_service", a.cfg.Gateway.BaseURL),
		applogger.String("cache", a.cfg.Cache.Type),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled()),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then the sessions, then flushes events and logs and closes clients.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.sessions.Close()
	a.wg.Wait()

	a.events.Stop()
	// the collector ships through the publisher, so it flushes first
	a.log.RemoveCollector()
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("event publisher close error", applogger.Error(err))
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return a.log.Close()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(a.cfg.Sessions.IdleTTL); n > 0 {
				a.log.Debug("rate limiter pruned", applogger.Int("keys", n))
			}
		}
	}
}
