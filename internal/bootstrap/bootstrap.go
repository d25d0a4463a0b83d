// Package bootstrap wires config into the stores, adapters and services the
// binaries share.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/feed"
	"cinema_catalog/internal/adapters/notify"
	redisad "cinema_catalog/internal/adapters/redis"
	"cinema_catalog/internal/app"
	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/shared"
	"cinema_catalog/internal/storage/memory"
	mysqlrepo "cinema_catalog/internal/storage/mysql"
)

// OpenDB connects to MySQL and verifies the connection.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Sources builds one feed client per configured source, in file order.
func Sources(cfgs []feed.Config) ([]domain.SourceAdapter, error) {
	out := make([]domain.SourceAdapter, 0, len(cfgs))
	for _, c := range cfgs {
		cl, err := feed.New(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, nil
}

// Deps is everything a binary needs to run updates and serve reads.
type Deps struct {
	Store   domain.CatalogStore
	Cache   *redisad.Cache // nil when REDIS_ADDR is unset
	Updates *app.UpdateService
	Queries *app.QueryService

	db *sql.DB
}

// Options tweak Build for tools that do not need the full stack.
type Options struct {
	// InMemory is a dry run: a process-local store and no shared side
	// effects. Redis is never touched and the report only goes to the log.
	InMemory bool
	// Store replaces MySQL while keeping the rest of the stack wired.
	Store domain.CatalogStore
}

func Build(ctx context.Context, cfg shared.Config, opts Options) (*Deps, error) {
	d := &Deps{}

	reportLoc, err := time.LoadLocation(cfg.ReportTZ)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TZ: %w", err)
	}

	switch {
	case opts.InMemory:
		d.Store = memory.New()
		log.Warn().Msg("dry run: in-memory catalog, no redis, report logged only")
	case opts.Store != nil:
		d.Store = opts.Store
	default:
		db, err := OpenDB(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		log.Info().Msg("database connection ok")
		d.db = db
		d.Store = mysqlrepo.New(db)
	}

	srcCfgs, err := shared.LoadSources(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	sources, err := Sources(srcCfgs)
	if err != nil {
		d.Close()
		return nil, err
	}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	log.Info().Strs("sources", names).Int("workers", cfg.FetchWorkers).Msg("sources configured")

	svcOpts := []app.Option{app.WithReportLocation(reportLoc)}
	var cache domain.Cache
	var notifier domain.Notifier = notify.New(cfg.AMQPURL, cfg.ReportQueue)
	switch {
	case opts.InMemory:
		notifier = notify.LogNotifier{}
	case cfg.RedisAddr != "":
		d.Cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := d.Cache.Ping(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		cache = d.Cache
		svcOpts = append(svcOpts,
			app.WithCache(d.Cache),
			app.WithRunLock(redisad.NewRunLock(d.Cache.Client(), cfg.RunLockTTL)),
		)
	default:
		log.Warn().Msg("REDIS_ADDR not set; runs are only serialized within this process")
	}

	d.Updates = app.NewUpdateService(
		d.Store,
		app.NewAggregator(sources, cfg.FetchWorkers),
		notifier,
		svcOpts...,
	)
	d.Queries = app.NewQueryService(d.Store, cache, cfg.CacheTTL)
	return d, nil
}

func (d *Deps) Close() {
	if d.Cache != nil {
		if err := d.Cache.Client().Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn().Err(err).Msg("db close failed")
		}
	}
}
