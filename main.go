package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/treefix50/showtracker/internal/config"
	"github.com/treefix50/showtracker/internal/logging"
	"github.com/treefix50/showtracker/internal/server"
	"github.com/treefix50/showtracker/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (default: ./config.yaml if present)")
		addr       = flag.String("addr", "", "listen address, overrides server.addr")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.Open(storage.Config{
		Driver: cfg.Storage.Driver,
		SQLite: storage.SQLiteOptions{
			Path:           cfg.Storage.SQLite.Path,
			BusyTimeout:    cfg.Storage.SQLite.BusyTimeout,
			Synchronous:    cfg.Storage.SQLite.Synchronous,
			CacheSize:      cfg.Storage.SQLite.CacheSize,
			IntegrityCheck: cfg.Storage.SQLite.IntegrityCheck,
		},
		Redis: storage.RedisOptions{
			Address:  cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		},
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.TTL,
	})
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	s, err := server.New(server.Options{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		CORS:              cfg.Server.CORS,
		Metrics:           cfg.Metrics.Enabled,
		UpdateSource:      server.UpdateSource(cfg.Shows.UpdateSource),
		WriteRate:         cfg.Server.WriteRate,
		WriteBurst:        cfg.Server.WriteBurst,
	}, store, logger)
	if err != nil {
		logger.Fatal("create server", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Info("shutting down...")
		if err := s.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("showtracker listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("cache_size", cfg.Cache.Size),
	)
	if err := s.Start(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	// Start returns as soon as shutdown begins; wait for in-flight requests.
	<-stopped
}
