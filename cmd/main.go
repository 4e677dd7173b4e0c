package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"pricecast/config"
	"pricecast/db"
	qhttp "pricecast/http"
	"pricecast/logging"
	"pricecast/ml"
	"pricecast/monitoring"
	"pricecast/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Look for config in root even if run from cmd/
	path := *configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		if _, err := os.Stat(filepath.Join("..", path)); err == nil {
			path = filepath.Join("..", path)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("pricecast stopped", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Persistence gateway
	store, err := db.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store ready", zap.String("driver", cfg.Database.Driver))

	// 2. Model
	build := func() (ml.Model, error) {
		return ml.LoadCached(cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.CacheSize)
	}
	model, err := build()
	if err != nil {
		return err
	}
	holder := ml.NewHolder(model)
	predictor, err := ml.NewPredictor(holder, ml.StockSchema)
	if err != nil {
		return err
	}
	logger.Info("model loaded", zap.String("type", cfg.ML.ModelType), zap.String("path", cfg.ML.ModelPath))

	if cfg.ML.Watch {
		go func() {
			if err := holder.Watch(ctx, cfg.ML.ModelPath, build, ml.StockSchema, logger.Named("model")); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("model watcher stopped", zap.Error(err))
			}
		}()
	}

	// 3. Metrics and live feed
	metrics := monitoring.NewMetrics()
	hub := monitoring.NewHub(logger, cfg.Http.AllowedOrigins, metrics.WSClients)
	go hub.Run(ctx)

	svc := service.New(predictor, store, logger,
		service.WithPublisher(hub),
		service.WithMetrics(metrics),
	)

	// 4. HTTP server
	server, err := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, qhttp.Deps{
		Service: svc,
		Feed:    hub,
		Metrics: metrics.Handler(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// 5. Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return server.Stop(context.Background())
}
