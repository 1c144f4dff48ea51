package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	Argon2    Argon2Config    `mapstructure:"argon2"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, production
	Debug       bool   `mapstructure:"debug"`
	PublicURL   string `mapstructure:"public_url"`
	DIDDomain   string `mapstructure:"did_domain"`
	UseHashid   bool   `mapstructure:"use_hashid"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the store
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres, sqlite
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// JWTConfig holds token settings
type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	TTL      time.Duration `mapstructure:"expires_in"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
}

// SessionConfig holds session and cookie settings
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CookieName    string        `mapstructure:"cookie_name"`
}

// Argon2Config holds password hashing cost
type Argon2Config struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
}

// RateLimitConfig bounds login attempts per window
type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// RedisConfig holds Redis connection settings. An empty Addr keeps the
// limiter in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig holds the activity stream settings. No brokers disables it.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional, env vars may be set directly
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "syr-auth")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_DEBUG", false)
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("DID_WEB_DOMAIN", "")
	v.SetDefault("USE_HASHID", false)

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "file:syr.db?cache=shared")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_IN", "7d")
	v.SetDefault("JWT_ISSUER", "syr")
	v.SetDefault("JWT_AUDIENCE", "syr-api")

	v.SetDefault("SESSION_TTL", "7d")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "15m")
	v.SetDefault("COOKIE_NAME", "session")

	v.SetDefault("ARGON2_MEMORY", 65536)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 4)

	v.SetDefault("RATE_LIMIT_MAX", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "syr.auth.activity")
	v.SetDefault("KAFKA_CLIENT_ID", "syr-auth")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	var err error

	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENV")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.PublicURL = v.GetString("PUBLIC_URL")
	cfg.App.DIDDomain = v.GetString("DID_WEB_DOMAIN")
	cfg.App.UseHashid = v.GetBool("USE_HASHID")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	if cfg.Server.ReadTimeout, err = duration(v, "SERVER_READ_TIMEOUT"); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = duration(v, "SERVER_WRITE_TIMEOUT"); err != nil {
		return err
	}
	if cfg.Server.ShutdownTimeout, err = duration(v, "SERVER_SHUTDOWN_TIMEOUT"); err != nil {
		return err
	}

	// Database
	cfg.Database.Driver = v.GetString("DB_DRIVER")
	cfg.Database.DSN = v.GetString("DB_DSN")
	cfg.Database.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	cfg.Database.AutoMigrate = v.GetBool("DB_AUTO_MIGRATE")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")
	cfg.JWT.Audience = v.GetString("JWT_AUDIENCE")
	if cfg.JWT.TTL, err = duration(v, "JWT_EXPIRES_IN"); err != nil {
		return err
	}

	// Session
	cfg.Session.CookieName = v.GetString("COOKIE_NAME")
	if cfg.Session.TTL, err = duration(v, "SESSION_TTL"); err != nil {
		return err
	}
	if cfg.Session.SweepInterval, err = duration(v, "SESSION_SWEEP_INTERVAL"); err != nil {
		return err
	}

	// Argon2
	cfg.Argon2.Memory = v.GetUint32("ARGON2_MEMORY")
	cfg.Argon2.Iterations = v.GetUint32("ARGON2_ITERATIONS")
	cfg.Argon2.Parallelism = uint8(v.GetUint("ARGON2_PARALLELISM"))

	// Rate limit
	cfg.RateLimit.Max = v.GetInt("RATE_LIMIT_MAX")
	if cfg.RateLimit.Window, err = duration(v, "RATE_LIMIT_WINDOW"); err != nil {
		return err
	}

	// Redis
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// Kafka
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	// Metrics
	cfg.Metrics.Enabled = v.GetBool("METRICS_ENABLED")
	cfg.Metrics.Path = v.GetString("METRICS_PATH")

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.Errors{
		"app": validation.ValidateStruct(&c.App,
			validation.Field(&c.App.Name, validation.Required),
			validation.Field(&c.App.Environment, validation.In("development", "test", "staging", "production")),
		),
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In("postgres", "postgresql", "pg", "pgx", "sqlite", "sqlite3")),
			validation.Field(&c.Database.DSN, dsnRules(c.Database.Driver)...),
		),
		"jwt": validation.ValidateStruct(&c.JWT,
			validation.Field(&c.JWT.Secret, validation.Required, validation.Length(32, 0)),
			validation.Field(&c.JWT.TTL, validation.Required, validation.Min(time.Minute)),
			validation.Field(&c.JWT.Issuer, validation.Required),
			validation.Field(&c.JWT.Audience, validation.Required),
		),
		"session": validation.ValidateStruct(&c.Session,
			validation.Field(&c.Session.TTL, validation.Required, validation.Min(time.Minute)),
			validation.Field(&c.Session.SweepInterval, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Session.CookieName, validation.Required),
		),
		"argon2": validation.ValidateStruct(&c.Argon2,
			validation.Field(&c.Argon2.Memory, validation.Required, validation.Min(uint32(8*1024))),
			validation.Field(&c.Argon2.Iterations, validation.Required),
			validation.Field(&c.Argon2.Parallelism, validation.Required),
		),
	}.Filter()
}

func dsnRules(driver string) []validation.Rule {
	if driver == "sqlite" || driver == "sqlite3" {
		return nil
	}
	return []validation.Rule{validation.Required}
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) GetSigningKey() string { return c.JWT.Secret }
func (c *Config) GetIssuer() string { return c.JWT.Issuer }
func (c *Config) GetAudience() string { return c.JWT.Audience }
func (c *Config) GetTokenTTL() time.Duration { return c.JWT.TTL }
func (c *Config) GetSessionTTL() time.Duration { return c.Session.TTL }
func (c *Config) GetDIDDomain() string { return c.App.DIDDomain }

// Redacted returns a copy safe to print
func (c *Config) Redacted() Config {
	out := *c
	out.JWT.Secret = redact(out.JWT.Secret)
	out.Redis.Password = redact(out.Redis.Password)
	out.Database.DSN = redact(out.Database.DSN)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

// duration accepts Go durations plus a "d" day suffix, e.g. "7d"
func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration parses "7d", "12h", "90m" and other time.ParseDuration forms
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
