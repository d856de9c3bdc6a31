package main

import (
	"flag"
	"log"
	"os"

	"RatioLab/internal/di"
	"RatioLab/pkg/config"
	"RatioLab/pkg/server"
	"RatioLab/pkg/util"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	modeFlag := flag.String("mode", "serve", "serve, worker, grid, oracle or walkforward")
	symbol := flag.String("symbol", "", "symbol for one-shot runs")
	from := flag.String("from", "", "first test day (YYYY-MM-DD) for one-shot runs")
	to := flag.String("to", "", "last test day (YYYY-MM-DD) for one-shot runs")
	flag.Parse()

	mode, err := server.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var once server.OneShot
	if mode != server.ModeServe && mode != server.ModeWorker {
		f, t, err := util.ParseDateRange(*from, *to)
		if err != nil {
			log.Fatalf("date range: %v", err)
		}
		once = server.OneShot{Symbol: *symbol, From: f, To: t, Out: os.Stdout}
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s feed=%s mode=%s", cfg.Environment, cfg.Feed.Type, mode)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until done or signal)
	if err := app.Run(mode, once); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
