package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"distworld.dev/internal/bus"
	"distworld.dev/internal/config"
	"distworld.dev/internal/game"
	"distworld.dev/internal/persistence/accountdb"
	"distworld.dev/internal/persistence/eventlog"
	"distworld.dev/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/cluster.yaml", "cluster config path")
		addr       = flag.String("addr", "", "websocket listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[services] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
			cfg = config.Defaults()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	elog, err := eventlog.Open(filepath.Join(cfg.DataDir, "events"))
	if err != nil {
		logger.Fatalf("open event log: %v", err)
	}
	defer elog.Close()

	accounts, err := accountdb.Open(filepath.Join(cfg.DataDir, "accounts.db"))
	if err != nil {
		logger.Fatalf("open account db: %v", err)
	}
	defer accounts.Close()
	if err := accounts.Seed(cfg.Accounts); err != nil {
		logger.Fatalf("seed accounts: %v", err)
	}

	b := bus.New(logger)
	b.SetRecorder(elog)

	svc, err := game.NewServices(cfg, logger, b, accounts)
	if err != nil {
		logger.Fatalf("bootstrap services: %v", err)
	}

	gateway := ws.NewGateway(b, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", gateway.Handler())
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Printf("gateway listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("gateway: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("authority loop at %d Hz", cfg.TickRateHz)
	if err := svc.Sched.Run(ctx, cfg.TickRateHz); err != nil && err != context.Canceled {
		logger.Printf("authority loop: %v", err)
	}
	_ = srv.Shutdown(context.Background())
	logger.Printf("shutdown complete")
}
