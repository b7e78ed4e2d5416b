package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/config"
	"github.com/rushteam/cartrec/service"
	"github.com/rushteam/cartrec/store"
)

// openStores 按配置打开行为日志与商品目录，返回的 close 函数释放所有连接。
func openStores(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (service.Stores, func(), error) {
	var (
		stores  service.Stores
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Backend {
	case config.BackendRedis:
		log, err := store.NewRedisInteractionLog(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			return stores, closeAll, fmt.Errorf("connect redis: %w", err)
		}
		log.Retention = cfg.Retention
		closers = append(closers, func() { _ = log.Close() })
		stores.Log = log
	default:
		log := store.NewMemoryInteractionLog(
			store.WithRetention(cfg.Retention),
			store.WithCleanupInterval(cfg.CleanupInterval),
		)
		closers = append(closers, func() { _ = log.Close() })
		stores.Log = log
	}

	var fixtures *store.Fixtures
	if cfg.Fixtures != "" {
		f, err := store.LoadFixtures(cfg.Fixtures, time.Now())
		if err != nil {
			closeAll()
			return stores, func() {}, err
		}
		fixtures = f
	}

	switch cfg.Catalog {
	case config.BackendPostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			closeAll()
			return stores, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				closeAll()
				return stores, func() {}, err
			}
		}
		if fixtures != nil {
			if err := fixtures.Seed(ctx, pg); err != nil {
				closeAll()
				return stores, func() {}, fmt.Errorf("seed postgres: %w", err)
			}
		}
		stores.Catalog, stores.Orders, stores.Users = pg, pg, pg
	default:
		catalog, orders, users := store.NewMemoryCatalog(), store.NewMemoryOrders(), store.NewMemoryUsers()
		if fixtures != nil {
			fixtures.SeedMemory(catalog, orders, users)
		}
		stores.Catalog, stores.Orders = catalog, orders
		// 没有用户名单时不设目录，任何合法 ID 都按已知用户处理
		if fixtures != nil && len(fixtures.Users) > 0 {
			stores.Users = users
		}
	}

	if fixtures != nil {
		logger.Info().
			Int("products", len(fixtures.Products)).
			Int("users", len(fixtures.Users)).
			Int("orders", len(fixtures.Orders)).
			Str("catalog", stores.Catalog.Name()).
			Msg("fixtures loaded")
	}
	return stores, closeAll, nil
}
