package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"halochain/config"
	"halochain/core"
	"halochain/core/state"
	"halochain/native/compliance"
	"halochain/observability/logging"
	"halochain/rpc"
	"halochain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup(logging.Options{
		Service:    "halochaind",
		Env:        cfg.Env,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	ledger := core.NewLedger(db, nil, nil)
	registry := compliance.NewStateRegistry(ledger.State())
	netting := compliance.NewNettingLedger(ledger.State())
	ledger.SetCompliance(registry, netting)

	if err := applyLedgerParams(ledger.State(), cfg); err != nil {
		logger.Error("Failed to apply ledger parameters", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.GenesisAdmin != "" {
		admin, err := config.ParseAddress(cfg.GenesisAdmin)
		if err != nil {
			logger.Error("Invalid genesis admin", slog.Any("error", err))
			os.Exit(1)
		}
		if err := ledger.Bootstrap(admin); err != nil {
			logger.Error("Failed to bootstrap genesis admin", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if cfg.MetricsAddress != "" {
		go serveMetrics(logger, cfg.MetricsAddress)
	}

	server := rpc.NewServer(ledger, registry, netting)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ListenAddress)
	}()

	logger.Info("halochaind started",
		slog.String("network", cfg.NetworkName),
		slog.String("listen", cfg.ListenAddress),
		slog.String("dataDir", cfg.DataDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyLedgerParams seeds the on-disk parameters from the config, keeping the
// stored treasury when the config leaves it unset.
func applyLedgerParams(manager *state.Manager, cfg *config.Config) error {
	params, err := manager.Params()
	if err != nil {
		return err
	}
	params.HalfLifeDuration = cfg.Ledger.HalfLifeDuration
	params.HalfLifeMin = cfg.Ledger.HalfLifeMin
	params.HalfLifeMax = cfg.Ledger.HalfLifeMax
	params.InactivityPeriod = cfg.Ledger.InactivityPeriod
	if cfg.Ledger.Treasury != "" {
		treasury, err := config.ParseAddress(cfg.Ledger.Treasury)
		if err != nil {
			return err
		}
		params.Treasury = treasury
	}
	return manager.SetParams(params)
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}
