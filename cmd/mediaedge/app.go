package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yi-nology/mediaedge/biz/service"
	"github.com/yi-nology/mediaedge/pkg/config"
	"github.com/yi-nology/mediaedge/pkg/database"
	"github.com/yi-nology/mediaedge/pkg/metrics"
	"github.com/yi-nology/mediaedge/pkg/storage"
)

const metricsNamespace = "mediaedge"

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	service *service.Service
	ledger  *service.Logic
	metrics bool
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	hlog.SetLevel(parseLevel(cfg.Log.Level))

	originals, err := storage.New(cfg.Storage.Original)
	if err != nil {
		return nil, fmt.Errorf("original store: %w", err)
	}
	hlog.CtxInfof(ctx, "original store: %s", originals.Type())

	var options []service.Option
	if cfg.Storage.Derivative.Enabled() {
		derivatives, err := storage.New(cfg.Storage.Derivative)
		if err != nil {
			return nil, fmt.Errorf("derivative store: %w", err)
		}
		hlog.CtxInfof(ctx, "derivative store: %s", derivatives.Type())
		options = append(options, service.WithDerivativeStore(derivatives))
	} else {
		hlog.CtxInfof(ctx, "derivative store disabled, oversized derivatives will be rejected")
	}

	a := &app{cfg: cfg}
	if cfg.Ledger.Enabled {
		conn, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open ledger database: %w", err)
		}
		a.ledger = service.NewLogic(conn)
		if err := a.ledger.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		options = append(options, service.WithLedger(a.ledger))
	}

	if cfg.Metrics.Enabled {
		options = append(options, service.WithMetrics(metrics.NewProm(metricsNamespace, prometheus.DefaultRegisterer)))
		a.metrics = true
	}

	a.service = service.NewService(originals, service.Options{
		MaxImageSize: cfg.Edge.MaxImageSize,
		CacheControl: cfg.Edge.CacheTTL,
	}, options...)
	return a, nil
}

func parseLevel(level string) hlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return hlog.LevelTrace
	case "debug":
		return hlog.LevelDebug
	case "notice":
		return hlog.LevelNotice
	case "warn", "warning":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	case "fatal":
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
