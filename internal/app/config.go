package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BOUQUET_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL    string        `usage:"PostgreSQL connection URL (BOUQUET_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL       string        `usage:"Redis URL for sessions; sessions stay in memory when empty (BOUQUET_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	SessionTTL     time.Duration `default:"24h" usage:"Idle lifetime of a checkout session" flag:"session-ttl"`
	ImageBaseURL   string        `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper   string        `usage:"HMAC pepper for API key hashing (BOUQUET_API_KEY_PEPPER)" flag:"api-key-pepper"`
	CatalogRefresh time.Duration `default:"1m" usage:"Interval between catalog snapshot reloads" flag:"catalog-refresh"`
	Delivery       DeliveryConfig
	Geocoder       GeocoderConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// DeliveryConfig holds the shop's delivery pricing and clock.
type DeliveryConfig struct {
	Fee      string        `default:"5.00" usage:"Flat delivery fee"`
	TimeZone string        `default:"Local" usage:"IANA time zone of the shop"`
	Cutoff   time.Duration `default:"14h" usage:"Local time of day after which same-day delivery closes"`
}

// GeocoderConfig configures the Nominatim reverse geocoder.
type GeocoderConfig struct {
	BaseURL   string        `default:"https://nominatim.openstreetmap.org" usage:"Nominatim base URL"`
	UserAgent string        `default:"bouquet-checkout/1.0" usage:"User-Agent sent to Nominatim"`
	Language  string        `default:"es" usage:"Preferred language of geocoded addresses"`
	Timeout   time.Duration `default:"10s" usage:"Reverse geocoding request timeout"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "BOUQUET",
		Files:     []string{"config.yaml", "/etc/bouquet/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BOUQUET_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Checkout(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BOUQUET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Checkout returns the pricing and delivery rules of the checkout service.
func (c *Config) Checkout() (checkout.Config, error) {
	fee, err := decimal.NewFromString(c.Delivery.Fee)
	if err != nil {
		return checkout.Config{}, errors.Wrapf(err, "parse delivery fee %q", c.Delivery.Fee)
	}
	if fee.IsNegative() {
		return checkout.Config{}, errors.Errorf("delivery fee %s is negative", fee)
	}
	loc, err := time.LoadLocation(c.Delivery.TimeZone)
	if err != nil {
		return checkout.Config{}, errors.Wrap(err, "load time zone")
	}
	if c.Delivery.Cutoff <= 0 || c.Delivery.Cutoff >= 24*time.Hour {
		return checkout.Config{}, errors.Errorf("same-day cutoff %s must be within a day", c.Delivery.Cutoff)
	}
	return checkout.Config{
		DeliveryFee:   fee.Round(2),
		Location:      loc,
		SameDayCutoff: c.Delivery.Cutoff,
	}, nil
}
