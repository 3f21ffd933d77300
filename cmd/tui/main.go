package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"StockTime/internal/domain/models"
	"StockTime/internal/service/gateway"
	"StockTime/internal/usecase"
	"StockTime/pkg/cache"
	"StockTime/pkg/config"
	applogger "StockTime/pkg/logger"
	"StockTime/pkg/metrics"
)

// bridge turns session frames into a single pending refresh for the program.
// Broadcast runs under view-model locks and must never block on the UI loop.
type bridge struct {
	wake chan struct{}
}

func newBridge() *bridge { return &bridge{wake: make(chan struct{}, 1)} }

func (b *bridge) Broadcast(string, models.Frame) {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *bridge) forward(p *tea.Program, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-b.wake:
			p.Send(refreshMsg{})
		}
	}
}

func main() {
	configPath := flag.String("config", "", "config file path (empty for defaults and env only)")
	market := flag.String("market", "", "initial market: stocks, futures or crypto")
	ticker := flag.String("ticker", "", "initial ticker")
	logPath := flag.String("log", "stocktime-tui.log", "log file; the terminal belongs to the UI")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: "json", Output: *logPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Close()

	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	defer mem.Close()
	gw := gateway.NewCachedGateway(
		gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, metrics.Nop{}, gateway.WithLogger(l)),
		mem, cfg.Gateway.PredictTTL, cfg.Gateway.TrackingTTL, l,
	)

	br := newBridge()
	session := usecase.NewSession(uuid.NewString(), usecase.SessionDeps{
		Gateway:     gw,
		Invalidator: gw,
		Metrics:     metrics.Nop{},
		Notifier:    br,
		Log:         l,
	})
	defer session.Close()

	if *market != "" {
		session.SelectMarket(models.MarketID(*market))
	}
	if *ticker != "" {
		session.SelectTicker(*ticker)
	}

	p := tea.NewProgram(newModel(session), tea.WithAltScreen(), tea.WithMouseCellMotion())
	done := make(chan struct{})
	go br.forward(p, done)
	defer close(done)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
