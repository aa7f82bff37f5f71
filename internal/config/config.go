package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration read from the environment.
type Config struct {
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080" validate:"gt=0,lt=65536"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true" validate:"min=32"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h" validate:"gt=0"`

	// DatabaseURL selects the PostgreSQL store; empty means in-memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// RedisAddr selects the Redis captcha store; empty means in-memory.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	CaptchaTTL    time.Duration `envconfig:"CAPTCHA_TTL" default:"5m" validate:"gt=0"`

	DescriptionDir string `envconfig:"UPLOAD_DESCRIPTION_DIR" default:"assets/uploads/description" validate:"required"`
	AvatarDir      string `envconfig:"UPLOAD_AVATAR_DIR" default:"assets/uploads/avatar" validate:"required"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"33554432" validate:"gt=0"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// AuthRateLimit is requests per second per client on the auth routes; 0 disables it.
	AuthRateLimit float64 `envconfig:"AUTH_RATE_LIMIT" default:"5" validate:"gte=0"`
	AuthRateBurst int     `envconfig:"AUTH_RATE_BURST" default:"10" validate:"gt=0"`

	SiteName        string `envconfig:"SITE_NAME" default:"Resource WebSite"`
	SiteDescription string `envconfig:"SITE_DESCRIPTION" default:"Source code and resource downloads"`
	SiteLoginBG     string `envconfig:"SITE_LOGIN_BG" default:"/assets/login-bg.jpg"`
	CarouselSize    int    `envconfig:"CAROUSEL_SIZE" default:"5" validate:"gt=0"`
}

// Load reads the configuration from environment variables and validates it.
func Load(cfg *Config) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("process env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
