package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/bootstrap"
	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/shared"
	mysqlrepo "cinema_catalog/internal/storage/mysql"
)

type commandContext struct {
	jsonMode bool

	configOnce sync.Once
	config     shared.Config

	// overridable in tests
	openStore func(cfg shared.Config) (domain.CatalogStore, func(), error)
	buildDeps func(ctx context.Context, cfg shared.Config, opts bootstrap.Options) (*bootstrap.Deps, error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		openStore: openMySQLStore,
		buildDeps: bootstrap.Build,
	}
}

func (c *commandContext) ensureConfig() shared.Config {
	c.configOnce.Do(func() {
		c.config = shared.Load()
		log.Logger = observability.NewLogger(c.config.AppEnv, "catalogctl", c.config.LogLevel)
	})
	return c.config
}

func (c *commandContext) JSONMode() bool { return c.jsonMode }

// withTx runs fn in one transaction and commits when it returns nil.
func (c *commandContext) withTx(ctx context.Context, fn func(domain.CatalogTx) error) error {
	store, closeFn, err := c.openStore(c.ensureConfig())
	if err != nil {
		return err
	}
	defer closeFn()

	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func openMySQLStore(cfg shared.Config) (domain.CatalogStore, func(), error) {
	db, err := bootstrap.OpenDB(cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	return mysqlrepo.New(db), func() { _ = db.Close() }, nil
}
