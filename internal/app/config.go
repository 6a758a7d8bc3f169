package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/order-invoice/internal/storage"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the API server configuration, loadable from environment
// variables (INVOICE_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage  storage.Config
	Health   HealthConfig
	Graceful GracefulConfig
}

// HealthConfig controls probe scheduling.
type HealthConfig struct {
	Interval       time.Duration `default:"10s" usage:"Interval between health check runs" flag:"health-interval"`
	StorageTimeout time.Duration `default:"5s" usage:"Timeout for the storage readiness ping" flag:"health-storage-timeout"`
	MaxGoroutines  int           `default:"10000" usage:"Liveness fails above this goroutine count" flag:"health-max-goroutines"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "INVOICE",
		Files:     []string{"config.yaml", "/etc/invoice/config.yaml"},
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

	if err := cfg.Storage.Validate(); err != nil {
		return nil, errors.Wrap(err, "storage config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables such as DATABASE_URL
// and PORT onto the INVOICE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
