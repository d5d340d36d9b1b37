// Package config resolves runtime configuration once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBucket is the object storage bucket holding deal documents.
const DefaultBucket = "purchase-agreements"

// Config is immutable after Load and is passed explicitly to every component.
type Config struct {
	HTTPPort          int
	LogLevel          string
	CORSAllowedOrigin string
	CookieSecure      bool

	DatabaseURL string
	DBMaxConns  int32

	JWTSecret         string
	AdminPasswordHash string
	// AdminPassword is only kept until main hashes it.
	AdminPassword string

	Storage  StorageConfig
	Webhooks WebhookConfig
	Geocode  GeocodeConfig

	LoginRatePerMinute  int
	SubmitRatePerMinute int
}

// StorageConfig points the S3 client at the document store.
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// WebhookConfig holds the outbound notification endpoints.
type WebhookConfig struct {
	DealDescriptionURL string
	JvAgreementURL     string
	Timeout            time.Duration
}

type GeocodeConfig struct {
	APIKey   string
	Endpoint string
}

// configFile mirrors the optional YAML file. Env values win over it.
type configFile struct {
	Server struct {
		HTTPPort          int    `yaml:"http_port"`
		LogLevel          string `yaml:"log_level"`
		CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
		CookieSecure      *bool  `yaml:"cookie_secure"`
	} `yaml:"server"`
	Database struct {
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`
	Storage struct {
		Endpoint     string `yaml:"endpoint"`
		Region       string `yaml:"region"`
		Bucket       string `yaml:"bucket"`
		UsePathStyle *bool  `yaml:"use_path_style"`
	} `yaml:"storage"`
	Webhooks struct {
		DealDescriptionURL string `yaml:"deal_description_url"`
		JvAgreementURL     string `yaml:"jv_agreement_url"`
		Timeout            string `yaml:"timeout"`
	} `yaml:"webhooks"`
	Geocode struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"geocode"`
	RateLimits struct {
		LoginPerMinute  int `yaml:"login_per_minute"`
		SubmitPerMinute int `yaml:"submit_per_minute"`
	} `yaml:"rate_limits"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// Secrets are read from the environment only. path may be empty.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		LogLevel:          "info",
		CORSAllowedOrigin: "http://localhost:3000",
		DBMaxConns:        10,
		Storage: StorageConfig{
			Region:       "us-east-1",
			Bucket:       DefaultBucket,
			UsePathStyle: true,
		},
		Webhooks: WebhookConfig{
			Timeout: 30 * time.Second,
		},
		Geocode: GeocodeConfig{
			Endpoint: "https://maps.googleapis.com/maps/api/geocode/json",
		},
		LoginRatePerMinute:  10,
		SubmitRatePerMinute: 5,
	}

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg, getenv)

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.AdminPasswordHash == "" && cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH or ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: required environment variables are not set: %v", missing)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("config: invalid http port %d", cfg.HTTPPort)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if f.Server.HTTPPort != 0 {
		cfg.HTTPPort = f.Server.HTTPPort
	}
	if f.Server.LogLevel != "" {
		cfg.LogLevel = f.Server.LogLevel
	}
	if f.Server.CORSAllowedOrigin != "" {
		cfg.CORSAllowedOrigin = f.Server.CORSAllowedOrigin
	}
	if f.Server.CookieSecure != nil {
		cfg.CookieSecure = *f.Server.CookieSecure
	}
	if f.Database.URL != "" {
		cfg.DatabaseURL = f.Database.URL
	}
	if f.Database.MaxConns > 0 {
		cfg.DBMaxConns = f.Database.MaxConns
	}
	if f.Storage.Endpoint != "" {
		cfg.Storage.Endpoint = f.Storage.Endpoint
	}
	if f.Storage.Region != "" {
		cfg.Storage.Region = f.Storage.Region
	}
	if f.Storage.Bucket != "" {
		cfg.Storage.Bucket = f.Storage.Bucket
	}
	if f.Storage.UsePathStyle != nil {
		cfg.Storage.UsePathStyle = *f.Storage.UsePathStyle
	}
	if f.Webhooks.DealDescriptionURL != "" {
		cfg.Webhooks.DealDescriptionURL = f.Webhooks.DealDescriptionURL
	}
	if f.Webhooks.JvAgreementURL != "" {
		cfg.Webhooks.JvAgreementURL = f.Webhooks.JvAgreementURL
	}
	if f.Webhooks.Timeout != "" {
		d, err := time.ParseDuration(f.Webhooks.Timeout)
		if err != nil {
			return fmt.Errorf("config: webhooks.timeout: %w", err)
		}
		cfg.Webhooks.Timeout = d
	}
	if f.Geocode.Endpoint != "" {
		cfg.Geocode.Endpoint = f.Geocode.Endpoint
	}
	if f.RateLimits.LoginPerMinute > 0 {
		cfg.LoginRatePerMinute = f.RateLimits.LoginPerMinute
	}
	if f.RateLimits.SubmitPerMinute > 0 {
		cfg.SubmitRatePerMinute = f.RateLimits.SubmitPerMinute
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	cfg.HTTPPort = envInt(getenv, "HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = envString(getenv, "LOG_LEVEL", cfg.LogLevel)
	cfg.CORSAllowedOrigin = envString(getenv, "CORS_ALLOWED_ORIGIN", cfg.CORSAllowedOrigin)
	cfg.CookieSecure = envBool(getenv, "COOKIE_SECURE", cfg.CookieSecure)

	cfg.DatabaseURL = envString(getenv, "DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = int32(envInt(getenv, "DB_MAX_CONNS", int(cfg.DBMaxConns)))

	cfg.JWTSecret = getenv("JWT_SECRET")
	cfg.AdminPasswordHash = getenv("ADMIN_PASSWORD_HASH")
	cfg.AdminPassword = getenv("ADMIN_PASSWORD")

	cfg.Storage.Endpoint = envString(getenv, "STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.Region = envString(getenv, "STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.AccessKeyID = getenv("STORAGE_ACCESS_KEY_ID")
	cfg.Storage.SecretAccessKey = getenv("STORAGE_SECRET_ACCESS_KEY")
	cfg.Storage.Bucket = envString(getenv, "STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.UsePathStyle = envBool(getenv, "STORAGE_USE_PATH_STYLE", cfg.Storage.UsePathStyle)

	cfg.Webhooks.DealDescriptionURL = envString(getenv, "WEBHOOK_DEAL_DESCRIPTION_URL", cfg.Webhooks.DealDescriptionURL)
	cfg.Webhooks.JvAgreementURL = envString(getenv, "WEBHOOK_JV_AGREEMENT_URL", cfg.Webhooks.JvAgreementURL)
	cfg.Webhooks.Timeout = envDuration(getenv, "WEBHOOK_TIMEOUT", cfg.Webhooks.Timeout)

	cfg.Geocode.APIKey = getenv("GEOCODE_API_KEY")
	cfg.Geocode.Endpoint = envString(getenv, "GEOCODE_ENDPOINT", cfg.Geocode.Endpoint)

	cfg.LoginRatePerMinute = envInt(getenv, "LOGIN_RATE_PER_MINUTE", cfg.LoginRatePerMinute)
	cfg.SubmitRatePerMinute = envInt(getenv, "SUBMIT_RATE_PER_MINUTE", cfg.SubmitRatePerMinute)
}

func envString(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(getenv func(string) string, key string, def bool) bool {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
