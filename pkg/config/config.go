package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Checkout     CheckoutConfig
	Payments     PaymentsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type AuthConfig struct {
	JWTSecret       string        `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	JWTIssuer       string        `envconfig:"STOREFRONT_JWT_ISSUER"`
	ProfileCacheTTL time.Duration `envconfig:"STOREFRONT_PROFILE_CACHE_TTL" default:"5m"`
	IdempotencyTTL  time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

type CheckoutConfig struct {
	DeliveryFee            string `envconfig:"STOREFRONT_DELIVERY_FEE" default:"1500"`
	PartialFailureStrategy string `envconfig:"STOREFRONT_PARTIAL_FAILURE_STRATEGY" default:"mark_failed"`
	// carts not touched within CartIdleTTL are closed and forgotten
	CartIdleTTL       time.Duration `envconfig:"STOREFRONT_CART_IDLE_TTL" default:"30m"`
	CartSweepInterval time.Duration `envconfig:"STOREFRONT_CART_SWEEP_INTERVAL" default:"1m"`
}

// DeliveryFeeAmount parses the configured fee; callers run after Load has validated it.
func (c CheckoutConfig) DeliveryFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryFee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

func (c CheckoutConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryFee))
	if err != nil {
		return fmt.Errorf("%s must be a decimal amount: %w", EnvDeliveryFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvDeliveryFee)
	}
	if _, err := enums.ParsePartialFailureStrategy(c.PartialFailureStrategy); err != nil {
		return fmt.Errorf("%s: %w", EnvPartialFailureStrategy, err)
	}
	return nil
}

// Strategy returns the parsed partial failure strategy.
func (c CheckoutConfig) Strategy() enums.PartialFailureStrategy {
	strategy, err := enums.ParsePartialFailureStrategy(c.PartialFailureStrategy)
	if err != nil {
		return enums.PartialFailureMarkFailed
	}
	return strategy
}

type PaymentsConfig struct {
	FunctionURL string        `envconfig:"STOREFRONT_PAYMENTS_FUNCTION_URL"`
	AnonKey     string        `envconfig:"STOREFRONT_PAYMENTS_ANON_KEY"`
	Timeout     time.Duration `envconfig:"STOREFRONT_PAYMENTS_TIMEOUT" default:"15s"`
}

// Enabled reports whether payment initiation has an endpoint to call.
func (p PaymentsConfig) Enabled() bool {
	return strings.TrimSpace(p.FunctionURL) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
