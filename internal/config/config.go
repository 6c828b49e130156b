package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Keys      KeysConfig      `json:"keys" yaml:"keys"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Usage     UsageConfig     `json:"usage" yaml:"usage"`
	Upstream  UpstreamConfig  `json:"upstream" yaml:"upstream"`
	Debug     bool            `json:"debug" yaml:"debug"`
}

type ServerConfig struct {
	Port         string   `json:"port" yaml:"port"`
	Environment  string   `json:"environment" yaml:"environment"`
	H2C          bool     `json:"h2c" yaml:"h2c"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins"`
	ReadTimeout  Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Type string `json:"type" yaml:"type"` // "postgres" or "sqlite"
	DSN  string `json:"dsn" yaml:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinJWTSecretLength applies in every environment; dashboard tokens are
// signed with HS256 and a short key is guessable.
const MinJWTSecretLength = 16

type AuthConfig struct {
	JWTSecret      string `json:"jwt_secret" yaml:"jwt_secret"`
	JWTExpiryHours int    `json:"jwt_expiry_hours" yaml:"jwt_expiry_hours"`
}

type KeysConfig struct {
	VerifyTimeout Duration `json:"verify_timeout" yaml:"verify_timeout"`
	OwnerCacheTTL Duration `json:"owner_cache_ttl" yaml:"owner_cache_ttl"`
}

type RateLimitConfig struct {
	Backend string  `json:"backend" yaml:"backend"` // "database" or "redis"
	IPRPS   float64 `json:"ip_rps" yaml:"ip_rps"`
	IPBurst int     `json:"ip_burst" yaml:"ip_burst"`
}

type UsageConfig struct {
	BufferSize    int      `json:"buffer_size" yaml:"buffer_size"`
	BatchSize     int      `json:"batch_size" yaml:"batch_size"`
	FlushInterval Duration `json:"flush_interval" yaml:"flush_interval"`
}

type UpstreamConfig struct {
	BaseURL         string   `json:"base_url" yaml:"base_url"`
	APIKey          string   `json:"api_key" yaml:"api_key"`
	Timeout         Duration `json:"timeout" yaml:"timeout"`
	MaxFailures     int      `json:"max_failures" yaml:"max_failures"`
	BreakerCooldown Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// Duration accepts "5s"-style strings in JSON and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid duration %s", string(b))
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Load reads the config file at path (JSON, or YAML for .yaml/.yml), applies
// KLYA_* environment overrides and fills defaults. A missing file is not an
// error; everything can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KLYA_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("KLYA_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("KLYA_DATABASE_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("KLYA_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("KLYA_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("KLYA_REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = p
		}
	}
	if v := os.Getenv("KLYA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("KLYA_RATE_LIMIT_BACKEND"); v != "" {
		cfg.RateLimit.Backend = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := os.Getenv("KLYA_DEBUG"); v != "" {
		cfg.Debug = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.ReadTimeout.Duration == 0 {
		cfg.Server.ReadTimeout.Duration = 15 * time.Second
	}
	if cfg.Server.WriteTimeout.Duration == 0 {
		// generation requests wait on the upstream
		cfg.Server.WriteTimeout.Duration = 90 * time.Second
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Auth.JWTExpiryHours <= 0 {
		cfg.Auth.JWTExpiryHours = 24
	}
	if cfg.Keys.VerifyTimeout.Duration == 0 {
		cfg.Keys.VerifyTimeout.Duration = 3 * time.Second
	}
	if cfg.Keys.OwnerCacheTTL.Duration == 0 {
		cfg.Keys.OwnerCacheTTL.Duration = 5 * time.Minute
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "database"
	}
	if cfg.RateLimit.IPRPS <= 0 {
		cfg.RateLimit.IPRPS = 1
	}
	if cfg.RateLimit.IPBurst <= 0 {
		cfg.RateLimit.IPBurst = 10
	}
	if cfg.Usage.BufferSize <= 0 {
		cfg.Usage.BufferSize = 1000
	}
	if cfg.Usage.BatchSize <= 0 {
		cfg.Usage.BatchSize = 100
	}
	if cfg.Usage.FlushInterval.Duration == 0 {
		cfg.Usage.FlushInterval.Duration = 2 * time.Second
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://api.openai.com"
	}
	if cfg.Upstream.Timeout.Duration == 0 {
		cfg.Upstream.Timeout.Duration = 60 * time.Second
	}
	if cfg.Upstream.MaxFailures <= 0 {
		cfg.Upstream.MaxFailures = 5
	}
	if cfg.Upstream.BreakerCooldown.Duration == 0 {
		cfg.Upstream.BreakerCooldown.Duration = 30 * time.Second
	}
}

// Validate reports settings that would prevent the server from starting.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn must be configured in the config file or KLYA_DATABASE_DSN")
	}
	switch c.RateLimit.Backend {
	case "database":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("rate_limit.backend is redis but redis is not enabled")
		}
	default:
		return fmt.Errorf("unsupported rate limit backend: %s", c.RateLimit.Backend)
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be at least %d characters", MinJWTSecretLength)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
