package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/barcode-registry/internal/adapter/storage"
	"github.com/rl1809/barcode-registry/internal/config"
	"github.com/rl1809/barcode-registry/internal/core/service"
	"github.com/rl1809/barcode-registry/internal/logger"
)

// app holds the connections and the service built from one Config.
type app struct {
	db      *sql.DB
	rdb     *redis.Client
	service *service.BarcodeService
	log     *logger.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	log.Info("connected to mysql")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to redis", "addr", cfg.Redis.Addr)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		db.Close()
		rdb.Close()
		return nil, err
	}

	entities := storage.NewCachedEntityStore(mysqlAdapter, cfg.Cache.EntityTTL, cfg.Cache.CleanupInterval, log)
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.Counter.IdempotencyTTL)

	return &app{
		db:      db,
		rdb:     rdb,
		service: service.NewBarcodeService(mysqlAdapter, mysqlAdapter, mysqlAdapter, redisAdapter, log, service.WithReadEntities(entities)),
		log:     log,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.rdb.Close(), a.db.Close())
}
