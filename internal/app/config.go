package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, a .env file or YAML config
// files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty runs on the in-memory catalog" flag:"database-url"`
	SeedFile    string `usage:"JSON catalog for the in-memory store; empty uses the built-in catalog" flag:"seed-file"`

	Admin         AdminConfig
	Kafka         KafkaConfig
	Notifications NotificationsConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Graceful      GracefulConfig
}

// AdminConfig guards the catalog and coupon management routes.
type AdminConfig struct {
	Pepper    string   `usage:"HMAC pepper for API key hashing"`
	KeyHashes []string `usage:"Hex HMAC-SHA256 digests of accepted admin API keys; empty disables the check" flag:"admin-key-hashes"`
}

// KafkaConfig configures order event publishing.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers; empty disables publishing"`
	Topic   string   `default:"storefront.orders" usage:"Topic for completed orders"`

	PublishTimeout time.Duration `default:"5s" usage:"Upper bound for publishing one order event" flag:"kafka-publish-timeout"`
}

// NotificationsConfig bounds the in-memory notification feed.
type NotificationsConfig struct {
	TTL      time.Duration `default:"3s" usage:"How long a notification stays visible"`
	Capacity int           `default:"50" usage:"Maximum notifications kept"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	MaxAge  int      `default:"86400" usage:"Preflight cache lifetime in seconds" flag:"cors-max-age"`
}

// RateLimitConfig throttles anonymous cart writes per client IP.
type RateLimitConfig struct {
	Max      int           `default:"120" usage:"Requests per window and client; 0 disables the limit" flag:"rate-limit-max"`
	Window   time.Duration `default:"1m" usage:"Rate limit window" flag:"rate-limit-window"`
	Prefixes []string      `default:"/api/cart" usage:"Path prefixes the limit applies to" flag:"rate-limit-prefixes"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads an optional .env file, then configuration from
// environment variables, YAML files and command-line flags, and applies
// platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Notifications.TTL <= 0 {
		return errors.New("notifications TTL must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	if c.RateLimit.Max > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
