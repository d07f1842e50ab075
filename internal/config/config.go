package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Log struct {
		Level  string
		Format string
	}
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		SessionSecret string        `mapstructure:"session_secret"`
		TokenTTL      time.Duration `mapstructure:"token_ttl"`
		SessionTTL    time.Duration `mapstructure:"session_ttl"`
		RememberTTL   time.Duration `mapstructure:"remember_ttl"`
		SessionCookie string        `mapstructure:"session_cookie"`
		SecureCookie  bool          `mapstructure:"secure_cookie"`
		BcryptCost    int           `mapstructure:"bcrypt_cost"`
	}
	Session struct {
		Backend string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Storage struct {
		Bucket         string
		KeyPrefix      string `mapstructure:"key_prefix"`
		Region         string
		Endpoint       string
		MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	}
	AWS struct {
		Profile string
	}
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var keys = []string{
	"server.addr", "database.path", "log.level", "log.format",
	"auth.jwt_secret", "auth.session_secret", "auth.token_ttl", "auth.session_ttl",
	"auth.remember_ttl", "auth.session_cookie", "auth.secure_cookie", "auth.bcrypt_cost",
	"session.backend", "redis.addr", "redis.password", "redis.db",
	"storage.bucket", "storage.key_prefix", "storage.region", "storage.endpoint",
	"storage.max_upload_bytes", "aws.profile",
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")
	return load(".")
}

func load(dir string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUILLPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/quillpad.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.remember_ttl", 30*24*time.Hour)
	v.SetDefault("auth.session_cookie", "quillpad_session")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("session.backend", BackendSQLite)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.key_prefix", "quillpad")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.max_upload_bytes", 5<<20)
	v.SetDefault("aws.profile", "")

	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetConfigName("config")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))

	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		return fmt.Errorf("auth.session_secret is required")
	}
	switch c.Session.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.SessionTTL <= 0 || c.Auth.RememberTTL <= 0 {
		return fmt.Errorf("auth ttls must be positive")
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
