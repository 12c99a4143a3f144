// Command cardwatch reads one page of cards through the cache, prints every
// update of it, and optionally toggles a like on one card.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/cardcache"
	"github.com/unkn0wn-root/cardcache/cardservice"
	asynchook "github.com/unkn0wn-root/cardcache/hooks/async"
	promhook "github.com/unkn0wn-root/cardcache/hooks/prom"
	zapadapter "github.com/unkn0wn-root/cardcache/log/zap"
	"github.com/unkn0wn-root/cardcache/permission"
	"github.com/unkn0wn-root/cardcache/provider"
	"github.com/unkn0wn-root/cardcache/provider/bigcache"
	"github.com/unkn0wn-root/cardcache/provider/ristretto"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("cardwatch failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// newMemo returns the full-set memo backend; nil disables the memo.
func newMemo(ctx context.Context, cfg Config) (provider.Provider, error) {
	switch cfg.Memo {
	case "ristretto":
		return ristretto.New(ristretto.DefaultConfig())
	case "bigcache":
		return bigcache.New(ctx, bigcache.Config{LifeWindow: cfg.MemoTTL, HardMaxCacheSizeMB: 64})
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown memo backend %q", cfg.Memo)
	}
}

func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	role, ok := permission.Parse(cfg.Role)
	if !ok {
		return fmt.Errorf("unknown role %q", cfg.Role)
	}
	log := zapadapter.ZapLogger{L: logger}

	memo, err := newMemo(ctx, cfg)
	if err != nil {
		return err
	}
	if memo != nil {
		defer memo.Close(context.Background())
	}

	svc, err := cardservice.New(cardservice.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Token:   func() string { return cfg.Token },
		OnUnauthorized: func() {
			logger.Warn("card service refused the token")
		},
		OnServerError: func(status int, msg string) {
			logger.Error("card service unavailable", zap.Int("status", status), zap.String("msg", msg))
		},
		Memo:    memo,
		MemoTTL: cfg.MemoTTL,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	counters, err := promhook.New(reg)
	if err != nil {
		return err
	}
	hooks := asynchook.New(counters, 1, 256)

	cache, err := cardcache.New(cardcache.Options{
		Service:         svc,
		Logger:          log,
		Hooks:           hooks,
		RefetchOnSettle: true,
	})
	if err != nil {
		hooks.Close()
		return err
	}
	defer func() {
		_ = cache.Close(context.Background())
		hooks.Close()
		logCounters(logger, reg)
	}()

	key := cardcache.PagedKey(cardcache.PageParams{
		Page:     cfg.Page,
		PageSize: cfg.PageSize,
		Query:    cfg.Query,
		ViewerID: cfg.ViewerID,
	})
	e, unsub, err := cache.Watch(ctx, key, func(e cardcache.Entry) {
		if e == nil {
			logger.Info("page dropped", zap.String("key", key.String()))
			return
		}
		printPage(logger, key, e)
	})
	if err != nil {
		return err
	}
	defer unsub()
	printPage(logger, key, e)

	if cfg.Like == "" {
		return nil
	}
	in := cardcache.LikeIntent(cfg.Like)
	var owner string
	if p, ok := e.(*cardcache.Page); ok {
		if c, found := p.Find(cfg.Like); found {
			owner = c.OwnerID
		}
	}
	if !permission.Allows(role, cfg.ViewerID, in, owner) {
		return fmt.Errorf("role %s may not %s", role, in.Kind)
	}
	m, err := cache.Dispatch(ctx, in)
	if err != nil {
		return err
	}
	if err := m.Wait(ctx); err != nil {
		logger.Warn("like rejected, view restored", zap.Error(err))
		return nil
	}
	logger.Info("like committed", zap.String("id", cfg.Like))
	return cache.RefetchStale(ctx)
}

func printPage(logger *zap.Logger, key cardcache.Key, e cardcache.Entry) {
	p, ok := e.(*cardcache.Page)
	if !ok {
		logger.Warn("unexpected entry", zap.String("key", key.String()), zap.Stringer("shape", e.Shape()))
		return
	}
	logger.Info("page",
		zap.String("key", key.String()),
		zap.Int("page", p.Number),
		zap.Int("total", p.TotalOr(-1)),
		zap.Bool("hasMore", p.HasMore))
	for _, c := range p.Items {
		logger.Info("card",
			zap.String("id", c.ID),
			zap.String("title", c.Title),
			zap.Int("likes", c.LikeCount),
			zap.Bool("liked", c.LikedByViewer))
	}
}

func logCounters(logger *zap.Logger, reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		logger.Debug("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range mfs {
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		logger.Debug("counter", zap.String("name", mf.GetName()), zap.Float64("value", sum))
	}
}
