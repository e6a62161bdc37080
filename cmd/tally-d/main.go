package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/open-tally/tally/pkg/api"
	"github.com/open-tally/tally/pkg/archive"
	"github.com/open-tally/tally/pkg/engine"
	"github.com/open-tally/tally/pkg/store"
	redisstore "github.com/open-tally/tally/pkg/store/redis"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("system started", "component", "tally-d", "node_id", cfg.NodeID, "addr", cfg.Addr)

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("failed to init store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	slog.Info("store initialized", "path", cfg.DBPath)

	// Leases live in Redis when configured, otherwise in the SQLite store.
	// Redis also brings the shared result cache for follower reads.
	var leaseStore store.LeaseStore = st
	var sinks []engine.ResultSink
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			slog.Error("failed to reach redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		cancel()
		leaseStore = redisstore.NewLeaseStore(rdb)
		sinks = append(sinks, redisstore.NewResultCache(rdb, 2*cfg.LeaseTTL))
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	}
	if cfg.ArchiveDir != "" {
		sinks = append(sinks, archive.NewLocalArchive(cfg.ArchiveDir))
		slog.Info("archive enabled", "dir", cfg.ArchiveDir)
	}

	runner := engine.NewRunner(st, engine.CombineSinks(sinks...))
	server := api.NewServer(st, runner, cfg.Addr)

	elector := engine.NewLeaderElector(
		leaseStore,
		cfg.NodeID,
		cfg.LeaseName,
		cfg.LeaseTTL,
		func() { slog.Info("promoted to leader", "node_id", cfg.NodeID) },
		func() { slog.Warn("demoted from leader", "node_id", cfg.NodeID) },
	)
	server.SetLeadership(elector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	elector.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		slog.Info("shutdown initiated", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("api server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("failed to stop api server", "error", err)
	}

	elector.Stop(shutdownCtx)
	cancel()

	if err := st.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	} else {
		slog.Info("store closed")
	}

	slog.Info("shutdown complete")
}
