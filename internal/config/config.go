package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name       string `koanf:"name"`
		LogLevel   string `koanf:"log_level"`
		LogFile    string `koanf:"log_file"`
		LogMaxSize int    `koanf:"log_max_size_mb"`
	} `koanf:"app"`

	HTTP struct {
		Addr            string        `koanf:"addr"`
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		MaxBodyBytes    int64         `koanf:"max_body_bytes"`
		CORSOrigins     []string      `koanf:"cors_origins"`
		CheckoutRPS     float64       `koanf:"checkout_rps"`
		CheckoutBurst   int           `koanf:"checkout_burst"`
	} `koanf:"http"`

	Auth struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
	} `koanf:"auth"`

	// An empty Mongo URI keeps carts in memory.
	Mongo struct {
		URI        string `koanf:"uri"`
		Database   string `koanf:"database"`
		Collection string `koanf:"collection"`
	} `koanf:"mongo"`

	// An empty Redis address disables the cart cache and keeps
	// idempotency records in memory.
	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		DB             int           `koanf:"db"`
		CartTTL        time.Duration `koanf:"cart_ttl"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
	} `koanf:"redis"`

	// An empty DSN keeps orders in memory.
	Postgres struct {
		DSN          string `koanf:"dsn"`
		MaxOpenConns int    `koanf:"max_open_conns"`
	} `koanf:"postgres"`

	Catalog struct {
		SQLitePath string `koanf:"sqlite_path"`
		// GRPCAddr points the storefront at a remote catalog service.
		GRPCAddr   string `koanf:"grpc_addr"`
		ListenAddr string `koanf:"listen_addr"`
		Seed       bool   `koanf:"seed"`
	} `koanf:"catalog"`

	Kafka struct {
		Brokers      []string      `koanf:"brokers"`
		Topic        string        `koanf:"topic"`
		PollInterval time.Duration `koanf:"poll_interval"`
		BatchSize    int           `koanf:"batch_size"`
	} `koanf:"kafka"`

	Orders struct {
		TaxRate      string `koanf:"tax_rate"`
		ShippingCost string `koanf:"shipping_cost"`
		DeliveryDays int    `koanf:"delivery_days"`
	} `koanf:"orders"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":            "storefront",
		"app.log_level":       "info",
		"app.log_max_size_mb": 50,

		"http.addr":             ":8080",
		"http.read_timeout":     "10s",
		"http.write_timeout":    "10s",
		"http.idle_timeout":     "60s",
		"http.request_timeout":  "30s",
		"http.shutdown_timeout": "10s",
		"http.max_body_bytes":   1 << 20,
		"http.cors_origins":     []string{"*"},
		"http.checkout_rps":     2.0,
		"http.checkout_burst":   5,

		"auth.issuer": "storefront",

		"mongo.database":   "storefront",
		"mongo.collection": "carts",

		"redis.cart_ttl":        "30m",
		"redis.idempotency_ttl": "24h",

		"postgres.max_open_conns": 10,

		"catalog.sqlite_path": "storefront.db",
		"catalog.listen_addr": ":50051",
		"catalog.seed":        true,

		"kafka.topic":         "orders-outbox",
		"kafka.poll_interval": "2s",
		"kafka.batch_size":    100,

		"orders.tax_rate":      "0.06",
		"orders.shipping_cost": "0",
		"orders.delivery_days": 3,
	}
}

// Load layers defaults, an optional YAML file and STOREFRONT_ environment
// variables, in that order. Nested keys use a double underscore, e.g.
// STOREFRONT_POSTGRES__DSN.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr required"))
	}
	if c.Catalog.SQLitePath == "" && c.Catalog.GRPCAddr == "" {
		errs = append(errs, errors.New("catalog.sqlite_path or catalog.grpc_addr required"))
	}
	if _, err := c.TaxRate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ShippingCost(); err != nil {
		errs = append(errs, err)
	}
	if c.Orders.DeliveryDays < 0 {
		errs = append(errs, errors.New("orders.delivery_days must not be negative"))
	}
	if c.Postgres.DSN != "" && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers required when postgres.dsn is set"))
	}
	return errors.Join(errs...)
}

// TaxRate is the flat order tax rate, a fraction in [0, 1).
func (c Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Orders.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("orders.tax_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("orders.tax_rate %s out of range [0, 1)", rate)
	}
	return rate, nil
}

func (c Config) ShippingCost() (decimal.Decimal, error) {
	cost, err := decimal.NewFromString(c.Orders.ShippingCost)
	if err != nil {
		return decimal.Zero, fmt.Errorf("orders.shipping_cost: %w", err)
	}
	if cost.IsNegative() {
		return decimal.Zero, fmt.Errorf("orders.shipping_cost %s must not be negative", cost)
	}
	return cost, nil
}
