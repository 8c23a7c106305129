package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	OTP       OTPConfig       `mapstructure:"otp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
	// TrustedProxies IPs or CIDRs whose X-Forwarded-For is honoured.
	// Empty means the socket peer address is the client identity.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// CORSConfig cross-origin settings.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig shared store settings. When Enabled is false, or the server is
// unreachable at startup, revocation and rate-limit state stay in process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig bearer token settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// OTPConfig one-time password settings.
type OTPConfig struct {
	Length           int           `mapstructure:"length"`
	TTL              time.Duration `mapstructure:"ttl"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	ReturnInResponse bool          `mapstructure:"return_in_response"` // no mail delivery; expose code to the caller
}

// RateLimitRule max requests per sliding window.
type RateLimitRule struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// RateLimitConfig per-endpoint sliding windows plus a global per-IP token bucket.
type RateLimitConfig struct {
	Login         RateLimitRule `mapstructure:"login"`
	SendOTP       RateLimitRule `mapstructure:"send_otp"`
	VerifyOTP     RateLimitRule `mapstructure:"verify_otp"`
	ResetPassword RateLimitRule `mapstructure:"reset_password"`
	GlobalRPS     float64       `mapstructure:"global_rps"`
	GlobalBurst   int           `mapstructure:"global_burst"`
	ClientMaxAge  time.Duration `mapstructure:"client_max_age"`
}

// Rules every per-endpoint window by endpoint key.
func (c RateLimitConfig) Rules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"login":          c.Login,
		"send_otp":       c.SendOTP,
		"verify_otp":     c.VerifyOTP,
		"reset_password": c.ResetPassword,
	}
}

// LongestWindow the widest per-endpoint window; memory windows older than
// this hold no live entries.
func (c RateLimitConfig) LongestWindow() time.Duration {
	var w time.Duration
	for _, r := range c.Rules() {
		if r.Window > w {
			w = r.Window
		}
	}
	return w
}

// LogConfig logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration.
// Precedence: environment > config file > .env > defaults.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win because godotenv never overrides them.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("APPRAISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "faculty_appraisal")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "faculty-appraisal")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", "10m")
	v.SetDefault("otp.max_attempts", 3)
	v.SetDefault("otp.cleanup_interval", "5m")
	v.SetDefault("otp.return_in_response", true)

	v.SetDefault("rate_limit.login.max_requests", 5)
	v.SetDefault("rate_limit.login.window", "15m")
	v.SetDefault("rate_limit.send_otp.max_requests", 3)
	v.SetDefault("rate_limit.send_otp.window", "10m")
	v.SetDefault("rate_limit.verify_otp.max_requests", 5)
	v.SetDefault("rate_limit.verify_otp.window", "10m")
	v.SetDefault("rate_limit.reset_password.max_requests", 5)
	v.SetDefault("rate_limit.reset_password.window", "10m")
	v.SetDefault("rate_limit.global_rps", 20)
	v.SetDefault("rate_limit.global_burst", 40)
	v.SetDefault("rate_limit.client_max_age", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: auth.token_ttl must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be within 1-65535")
	}
	if c.OTP.Length < 4 || c.OTP.Length > 12 {
		return fmt.Errorf("config: otp.length must be within 4-12")
	}
	if c.OTP.TTL <= 0 || c.OTP.MaxAttempts <= 0 || c.OTP.CleanupInterval <= 0 {
		return fmt.Errorf("config: otp.ttl, otp.max_attempts and otp.cleanup_interval must be positive")
	}
	for name, rule := range c.RateLimit.Rules() {
		if rule.MaxRequests <= 0 || rule.Window <= 0 {
			return fmt.Errorf("config: rate_limit.%s needs positive max_requests and window", name)
		}
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("config: server.trusted_proxies entry %q is neither an IP nor a CIDR", p)
		}
	}
	return nil
}
