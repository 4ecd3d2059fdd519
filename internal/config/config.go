// Package config loads registry configuration from defaults, an optional YAML
// file and BARCODE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BARCODE"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Counter CounterConfig `mapstructure:"counter"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig controls the in-process linked entity cache.
type CacheConfig struct {
	EntityTTL       time.Duration `mapstructure:"entity_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type CounterConfig struct {
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	// ReplayInterval is how often serve retries queued barcode_count adjustments
	ReplayInterval time.Duration `mapstructure:"replay_interval"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
		},
		MySQL: MySQLConfig{
			DSN:             "root:root@tcp(localhost:3306)/barcodes?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		Cache: CacheConfig{
			EntityTTL:       10 * time.Minute,
			CleanupInterval: 30 * time.Minute,
		},
		Counter: CounterConfig{
			IdempotencyTTL: 24 * time.Hour,
			ReplayInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Mode:  "development",
			Level: "info",
		},
	}
}

// SetDefaults registers Defaults() on v so env-only keys are still unmarshalled.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.http_addr", d.Server.HTTPAddr)
	v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("mysql.dsn", d.MySQL.DSN)
	v.SetDefault("mysql.max_open_conns", d.MySQL.MaxOpenConns)
	v.SetDefault("mysql.max_idle_conns", d.MySQL.MaxIdleConns)
	v.SetDefault("mysql.conn_max_lifetime", d.MySQL.ConnMaxLifetime)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("cache.entity_ttl", d.Cache.EntityTTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("counter.idempotency_ttl", d.Counter.IdempotencyTTL)
	v.SetDefault("counter.replay_interval", d.Counter.ReplayInterval)
	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration into v. An empty cfgFile skips file loading; a
// named file that does not exist is an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.MySQL.DSN == "" {
		errs = append(errs, errors.New("mysql.dsn is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Counter.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("counter.idempotency_ttl must be positive"))
	}
	if c.Counter.ReplayInterval <= 0 {
		errs = append(errs, errors.New("counter.replay_interval must be positive"))
	}
	return errors.Join(errs...)
}
