package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BOOKING"

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	Timezone    string
	DBConfig    DatabaseConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	RedisConfig RedisConfig
	Payment     PaymentConfig
	OTel        OTelConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// MaxTxRetries bounds retries of serialization failures.
	MaxTxRetries int
}

// DSN returns the libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// DatabaseURL returns the URL form used by golang-migrate.
func (d DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// JWTConfig holds the identity provider's token verification settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// KafkaConfig holds broker settings. Publishing and consuming are off when Enabled is false.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds settings for the payment idempotency store.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// PaymentConfig tunes the payment simulator.
type PaymentConfig struct {
	SuccessRate float64
	Seed        int64
	// ForceOutcome is "success", "failure" or empty for random draws.
	ForceOutcome string
}

// OTelConfig holds tracing settings.
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
}

// Load reads configuration from BOOKING_* environment variables and, when
// BOOKING_CONFIG_FILE is set, from that file first.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DefaultMaxTxRetries is how many times a transaction is attempted when
// BOOKING_DB_MAX_TX_RETRIES is unset.
const DefaultMaxTxRetries = 3

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", ":8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("timezone", "UTC")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "campsite_booking")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.max_tx_retries", DefaultMaxTxRetries)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "campsite-")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", "24h")

	v.SetDefault("payment.success_rate", 0.75)
	v.SetDefault("payment.seed", 0)
	v.SetDefault("payment.force_outcome", "")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "service-booking")
	v.SetDefault("otel.collector_addr", "localhost:4317")
}

func fromViper(v *viper.Viper) *ServiceConfig {
	return &ServiceConfig{
		Port:     normalizePort(v.GetString("service_port")),
		AppEnv:   v.GetString("app_env"),
		Timezone: v.GetString("timezone"),
		DBConfig: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetInt("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			MaxTxRetries:    v.GetInt("db.max_tx_retries"),
		},
		JWTConfig: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:     v.GetBool("kafka.enabled"),
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		RedisConfig: RedisConfig{
			Addr:           v.GetString("redis.addr"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			IdempotencyTTL: v.GetDuration("redis.idempotency_ttl"),
		},
		Payment: PaymentConfig{
			SuccessRate:  v.GetFloat64("payment.success_rate"),
			Seed:         v.GetInt64("payment.seed"),
			ForceOutcome: strings.ToLower(v.GetString("payment.force_outcome")),
		},
		OTel: OTelConfig{
			Enabled:       v.GetBool("otel.enabled"),
			ServiceName:   v.GetString("otel.service_name"),
			CollectorAddr: v.GetString("otel.collector_addr"),
		},
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *ServiceConfig) Validate() error {
	var errs []error
	if c.JWTConfig.Secret == "" && c.AppEnv != "development" && c.AppEnv != "test" {
		errs = append(errs, errors.New("BOOKING_JWT_SECRET is required outside development"))
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("payment success rate must be within [0,1], got %v", c.Payment.SuccessRate))
	}
	switch c.Payment.ForceOutcome {
	case "", "success", "failure":
	default:
		errs = append(errs, fmt.Errorf("payment force outcome must be success or failure, got %q", c.Payment.ForceOutcome))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	if c.KafkaConfig.Enabled && len(c.KafkaConfig.Brokers) == 0 {
		errs = append(errs, errors.New("kafka is enabled but no brokers are configured"))
	}
	if c.DBConfig.MaxTxRetries < 1 {
		errs = append(errs, errors.New("db max tx retries must be at least 1"))
	}
	return errors.Join(errs...)
}

// Location returns the timezone used to decide what "today" is.
func (c *ServiceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizePort(port string) string {
	if port == "" {
		return ":8080"
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
