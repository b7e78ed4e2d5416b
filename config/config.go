package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/cartrec/filter"
	"github.com/rushteam/cartrec/service"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 CARTREC_STORE_BACKEND=redis。
const EnvPrefix = "CARTREC_"

// 存储后端
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config 是 cartrec 的进程配置。
// 加载顺序：Default() -> YAML 文件 -> CARTREC_* 环境变量 -> Validate()。
type Config struct {
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Engine EngineConfig `yaml:"engine" envPrefix:"ENGINE_"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// StoreConfig 选择后端：行为日志走 Backend（memory/redis），
// 商品/订单/用户走 Catalog（memory/postgres），内存目录从 Fixtures 加载。
type StoreConfig struct {
	Backend  string         `yaml:"backend" env:"BACKEND"`
	Catalog  string         `yaml:"catalog" env:"CATALOG"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`

	// Fixtures 是种子数据文件，为空时不加载
	Fixtures string `yaml:"fixtures" env:"FIXTURES"`

	// Retention 是行为日志保留窗口
	Retention time.Duration `yaml:"retention" env:"RETENTION"`

	// CleanupInterval 是内存后端清理过期行为的间隔
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

type PostgresConfig struct {
	URL     string `yaml:"url" env:"URL"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE"`
}

// EngineConfig 是推荐引擎的条数与扫描上限。
type EngineConfig struct {
	DefaultLimit        int           `yaml:"default_limit" env:"DEFAULT_LIMIT"`
	MaxLimit            int           `yaml:"max_limit" env:"MAX_LIMIT"`
	HomeLimit           int           `yaml:"home_limit" env:"HOME_LIMIT"`
	TrendingLimit       int           `yaml:"trending_limit" env:"TRENDING_LIMIT"`
	RecentlyViewed      int           `yaml:"recently_viewed" env:"RECENTLY_VIEWED"`
	CategorySuggestions int           `yaml:"category_suggestions" env:"CATEGORY_SUGGESTIONS"`
	BoughtTogetherLimit int           `yaml:"bought_together_limit" env:"BOUGHT_TOGETHER_LIMIT"`
	MaxOrders           int           `yaml:"max_orders" env:"MAX_ORDERS"`
	MaxUserInteractions int           `yaml:"max_user_interactions" env:"MAX_USER_INTERACTIONS"`
	PopularityWindow    time.Duration `yaml:"popularity_window" env:"POPULARITY_WINDOW"`

	// FilterExpr 是 CEL 过滤表达式，为 true 的商品从所有结果中移除
	FilterExpr string `yaml:"filter_expr" env:"FILTER_EXPR"`

	// BlockedProducts 是屏蔽的商品 ID
	BlockedProducts []string `yaml:"blocked_products" env:"BLOCKED_PRODUCTS" envSeparator:","`
}

// Default 返回默认配置：内存后端，监听 :8080。
func Default() *Config {
	limits := service.DefaultLimits()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:         BackendMemory,
			Catalog:         BackendMemory,
			Redis:           RedisConfig{Addr: "localhost:6379", KeyPrefix: "cartrec"},
			Retention:       limits.PopularityWindow,
			CleanupInterval: time.Minute,
		},
		Engine: EngineConfig{
			DefaultLimit:        limits.Default,
			MaxLimit:            limits.Max,
			HomeLimit:           limits.Home,
			TrendingLimit:       limits.Trending,
			RecentlyViewed:      limits.RecentlyViewed,
			CategorySuggestions: limits.CategorySuggestions,
			BoughtTogetherLimit: limits.BoughtTogether,
			MaxOrders:           limits.MaxOrders,
			MaxUserInteractions: limits.MaxUserInteractions,
			PopularityWindow:    limits.PopularityWindow,
		},
	}
}

// Load 依次应用默认值、YAML 文件（path 为空时跳过）和环境变量，并校验。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置，返回所有问题。
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, redis", c.Store.Backend))
	}
	switch c.Store.Catalog {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, errors.New("store.postgres.url is required for the postgres catalog"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.catalog %q is not one of memory, postgres", c.Store.Catalog))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Engine.MaxLimit <= 0 {
		errs = append(errs, errors.New("engine.max_limit must be positive"))
	}
	if c.Engine.DefaultLimit <= 0 || c.Engine.DefaultLimit > c.Engine.MaxLimit {
		errs = append(errs, fmt.Errorf("engine.default_limit must be in [1, %d]", c.Engine.MaxLimit))
	}
	if c.Store.Retention <= 0 {
		errs = append(errs, errors.New("store.retention must be positive"))
	}
	if c.Engine.FilterExpr != "" {
		if _, err := filter.NewExprFilter(c.Engine.FilterExpr); err != nil {
			errs = append(errs, fmt.Errorf("engine.filter_expr: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Limits 把引擎配置转换为 service.Limits。
func (e EngineConfig) Limits() service.Limits {
	return service.Limits{
		Default:             e.DefaultLimit,
		Max:                 e.MaxLimit,
		Home:                e.HomeLimit,
		Trending:            e.TrendingLimit,
		RecentlyViewed:      e.RecentlyViewed,
		CategorySuggestions: e.CategorySuggestions,
		BoughtTogether:      e.BoughtTogetherLimit,
		MaxOrders:           e.MaxOrders,
		MaxUserInteractions: e.MaxUserInteractions,
		PopularityWindow:    e.PopularityWindow,
	}
}

// Filters 按配置构建后置过滤器。
func (e EngineConfig) Filters() ([]filter.Filter, error) {
	var out []filter.Filter
	if len(e.BlockedProducts) > 0 {
		out = append(out, filter.NewBlacklistFilter(e.BlockedProducts))
	}
	if e.FilterExpr != "" {
		f, err := filter.NewExprFilter(e.FilterExpr)
		if err != nil {
			return nil, fmt.Errorf("engine.filter_expr: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}
