// File: /config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	DatabaseDriver string `mapstructure:"DB_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBLogLevel     string `mapstructure:"DB_LOG_LEVEL"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`
	AuthRatePerMinute int    `mapstructure:"AUTH_RATE_PER_MINUTE"`
	AuthRateBurst     int    `mapstructure:"AUTH_RATE_BURST"`
	MaxUploadBytes    int64  `mapstructure:"MAX_UPLOAD_BYTES"`

	// File storage
	StorageDriver    string `mapstructure:"STORAGE_DRIVER"`
	StorageLocalDir  string `mapstructure:"STORAGE_LOCAL_DIR"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	MinioEndpoint    string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey   string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket      string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL      bool   `mapstructure:"MINIO_USE_SSL"`

	// Email Configuration
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	FromEmail    string `mapstructure:"FROM_EMAIL"`
	FromName     string `mapstructure:"FROM_NAME"`
}

var keys = []string{
	"APP_ENV", "PORT", "DB_DRIVER", "DATABASE_URL", "DB_LOG_LEVEL", "LOG_LEVEL",
	"JWT_SECRET", "TOKEN_TTL", "ALLOWED_ORIGINS", "AUTH_RATE_PER_MINUTE", "AUTH_RATE_BURST",
	"MAX_UPLOAD_BYTES", "STORAGE_DRIVER", "STORAGE_LOCAL_DIR", "STORAGE_PUBLIC_URL",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "FROM_EMAIL", "FROM_NAME",
}

// Load reads .env (if any), config.yml (if any) and the environment, in that order of precedence
// from lowest to highest.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal only sees keys viper knows about, so bind every env var explicitly.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DATABASE_URL", "user:password@tcp(localhost:3306)/inkpost?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_RATE_PER_MINUTE", 20)
	v.SetDefault("AUTH_RATE_BURST", 5)
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./storage/app/public")
	v.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8080/storage")
	v.SetDefault("MINIO_BUCKET", "inkpost")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 2525)
	v.SetDefault("FROM_EMAIL", "noreply@inkpost.local")
	v.SetDefault("FROM_NAME", "Inkpost")
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed from the default value in production")
	}
	switch c.DatabaseDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DatabaseDriver)
	}
	switch c.StorageDriver {
	case "local":
		if c.StorageLocalDir == "" {
			return errors.New("STORAGE_LOCAL_DIR is required for local storage")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
