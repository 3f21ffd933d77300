package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"StockTime/internal/di"
	"StockTime/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path (empty for defaults and env only)")
	check := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *check {
		fmt.Printf("config ok: env=%s gateway=%s cache=%s kafka=%v\n",
			cfg.Environment, cfg.Gateway.BaseURL, cfg.Cache.Type, cfg.Kafka.Enabled())
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("stocktime: %v", err)
		os.Exit(1)
	}
}
