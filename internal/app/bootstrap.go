package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ceneo-opinions/internal/config"
	"ceneo-opinions/internal/fetcher"
	"ceneo-opinions/internal/lock"
	"ceneo-opinions/internal/normalize"
	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/publish"
	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
	"ceneo-opinions/internal/storage/file"
	"ceneo-opinions/internal/storage/mssql"
)

const lockPrefix = "ceneo-opinions:lock:"

// Runtime holds every long-lived component built from a Config.
type Runtime struct {
	Config     *config.Config
	Logger     *observability.Logger
	Metrics    *observability.Metrics
	Layout     scraper.Layout
	Repo       storage.Repository
	Service    *Service
	Normalizer *normalize.Normalizer

	closers []func() error
}

// Build wires the application. On error everything opened so far is
// closed again.
func Build(cfg *config.Config) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			if closeErr := rt.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}
	}()

	rt.Logger, err = observability.NewLogger(observability.LogOptions{
		Path:       cfg.Observability.LogPath,
		Level:      cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
		Console:    cfg.Observability.LogConsole,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Logger.Close)

	rt.Metrics = observability.NewMetrics()
	rt.Normalizer = normalize.NewNormalizer(normalize.Options{
		TrimNBSP:        cfg.Normalize.TrimNBSP,
		CollapseSpaces:  cfg.Normalize.CollapseSpaces,
		MaxPreviewChars: cfg.Normalize.MaxPreviewChars,
	})

	rt.Layout, err = cfg.Layout()
	if err != nil {
		return nil, err
	}

	pageFetcher, err := rt.buildFetcher()
	if err != nil {
		return nil, err
	}

	rt.Repo, err = rt.buildRepository()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithMetrics(rt.Metrics),
		WithTimeout(cfg.GetExtractionTimeout()),
	}
	if cfg.Redis.Enabled {
		client, err := rt.connectRedis()
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			WithLocker(lock.NewRedis(client, lockPrefix, cfg.GetLockTTL())),
			WithPublisher(publish.NewRedisStream(client, cfg.Redis.Stream, cfg.Redis.StreamMaxLength)),
		)
	}

	crawler := scraper.NewCrawler(rt.Layout, pageFetcher, rt.Logger,
		scraper.WithMaxPages(cfg.Pagination.MaxPages),
		scraper.WithMetrics(rt.Metrics),
	)
	aggregator := stats.Aggregator{Labels: stats.Labels{
		NotRecommend: rt.Layout.NotRecommend,
		Recommend:    rt.Layout.Recommend,
	}}
	rt.Service = NewService(crawler, aggregator, rt.Repo, rt.Logger, opts...)

	rt.Logger.Info("Application initialised",
		"storage", cfg.Storage.Driver,
		"redis", cfg.Redis.Enabled,
		"browser", cfg.Rod.Enabled,
		"max_pages", cfg.Pagination.MaxPages,
	)
	return rt, nil
}

func (rt *Runtime) buildFetcher() (scraper.Fetcher, error) {
	if !rt.Config.Rod.Enabled {
		return fetcher.NewFetcher(rt.Config, rt.Logger), nil
	}
	browser, err := fetcher.NewBrowserFetcher(rt.Config, rt.Logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, browser.Close)
	return browser, nil
}

func (rt *Runtime) buildRepository() (storage.Repository, error) {
	cfg := rt.Config
	var repo storage.Repository

	switch cfg.Storage.Driver {
	case "mssql":
		db, err := mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), rt.Logger)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
		repo = db
	default:
		fs, err := file.NewRepository(cfg.Storage.DataDir, rt.Logger)
		if err != nil {
			return nil, err
		}
		repo = fs
	}

	if cfg.Storage.CacheSize > 0 {
		cached, err := storage.NewCached(repo, cfg.Storage.CacheSize)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		repo = cached
	}
	rt.closers = append(rt.closers, repo.Close)
	return repo, nil
}

func (rt *Runtime) connectRedis() (*redis.Client, error) {
	cfg := rt.Config.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	rt.closers = append(rt.closers, client.Close)
	return client, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
