package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string        `mapstructure:"env"`
	LogLevel string        `mapstructure:"log_level"`
	Server   ServerConfig  `mapstructure:"server"`
	Client   ClientConfig  `mapstructure:"client"`
	Storage  StorageConfig `mapstructure:"storage"`
	R2       R2Config      `mapstructure:"r2"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	DeadlineSweep  time.Duration `mapstructure:"deadline_sweep"`
	BodyLimit      int           `mapstructure:"body_limit"`
	AutoVerify     bool          `mapstructure:"auto_verify"`
	SeedCatalog    bool          `mapstructure:"seed_catalog"`
}

type ClientConfig struct {
	Mode              string        `mapstructure:"mode"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	MockDelay         time.Duration `mapstructure:"mock_delay"`
	MockSuccessRate   float64       `mapstructure:"mock_success_rate"`
	MockWalletAddress string        `mapstructure:"mock_wallet_address"`
	WalletSeed        string        `mapstructure:"wallet_seed"`
	CatalogRefresh    time.Duration `mapstructure:"catalog_refresh"`
}

type StorageConfig struct {
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	MasterKey     string        `mapstructure:"master_key"`
	Driver        string        `mapstructure:"driver"`
	DatabaseURL   string        `mapstructure:"database_url"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
}

type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// Enabled reports whether artifact uploads are configured.
func (r R2Config) Enabled() bool {
	return r.Bucket != "" && r.AccessKeyID != ""
}

const (
	ModeMock = "mock"
	ModeHTTP = "http"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 5200)
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.jwt_issuer", "challenge-rewards")
	v.SetDefault("server.deadline_sweep", time.Minute)
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.auto_verify", true)
	v.SetDefault("server.seed_catalog", true)

	v.SetDefault("client.mode", ModeMock)
	v.SetDefault("client.api_base_url", "http://localhost:5200")
	v.SetDefault("client.http_timeout", 30*time.Second)
	v.SetDefault("client.mock_delay", 500*time.Millisecond)
	v.SetDefault("client.mock_success_rate", 0.8)
	v.SetDefault("client.mock_wallet_address", "")
	v.SetDefault("client.wallet_seed", "")
	v.SetDefault("client.catalog_refresh", 5*time.Minute)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", defaultStorageDir())
	v.SetDefault("storage.master_key", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_prefix", "challenger:")
	v.SetDefault("storage.redis_ttl", time.Duration(0))

	for _, k := range []string{"account_id", "access_key_id", "access_key_secret", "bucket", "endpoint", "public_base_url"} {
		v.SetDefault("r2."+k, "")
	}
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/challenger"
	}
	return ".challenger"
}

// Load reads .env files (missing ones are fine), an optional config file
// named by CONFIG_PATH, then the environment. SERVER_PORT overrides
// server.port and so on; a few legacy names are bound as well.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.database_url", "STORAGE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID")
	_ = v.BindEnv("r2.bucket", "R2_BUCKET", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_base_url", "R2_PUBLIC_BASE_URL", "CDN_BASE_URL")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ValidateServer checks what the backend binary needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if len(c.Server.JWTSecret) < 16 {
		errs = append(errs, errors.New("server.jwt_secret must be at least 16 characters"))
	}
	if c.Server.DeadlineSweep <= 0 {
		errs = append(errs, errors.New("server.deadline_sweep must be positive"))
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of postgres, sqlite", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && c.Storage.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
	}
	return errors.Join(errs...)
}

// ValidateClient checks what the CLI needs.
func (c *Config) ValidateClient() error {
	var errs []error
	switch c.Client.Mode {
	case ModeMock:
		if c.Client.MockSuccessRate < 0 || c.Client.MockSuccessRate > 1 {
			errs = append(errs, errors.New("client.mock_success_rate must be between 0 and 1"))
		}
	case ModeHTTP:
		if c.Client.APIBaseURL == "" {
			errs = append(errs, errors.New("client.api_base_url is required in http mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("client.mode %q is not one of mock, http", c.Client.Mode))
	}
	switch c.Storage.Backend {
	case "memory", "redis":
	case "file":
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file backend"))
		}
	case "gorm":
		if c.Storage.Driver != "postgres" && c.Storage.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("storage.driver %q is not one of postgres, sqlite", c.Storage.Driver))
		}
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the gorm backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of file, gorm, redis, memory", c.Storage.Backend))
	}
	if c.Storage.Backend != "memory" && c.Storage.MasterKey == "" {
		errs = append(errs, errors.New("storage.master_key is required to encrypt stored sessions"))
	}
	return errors.Join(errs...)
}

// Origins splits the comma-separated allowed origins.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
