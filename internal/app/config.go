package app

import (
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/procart/internal/catalog/view"
	"github.com/xenking/procart/internal/client/fakestore"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (PROCART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CatalogConfig controls the remote catalog source and the store.
type CatalogConfig struct {
	BaseURL     string        `default:"https://fakestoreapi.com" usage:"Catalog API base URL"`
	Timeout     time.Duration `default:"10s" usage:"Timeout of a single catalog request"`
	PageSize    int           `default:"8" usage:"Products per page"`
	LoadOnStart bool          `default:"true" usage:"Load the catalog when the server starts"`
	// RefreshInterval reloads the catalog periodically. Zero disables it.
	RefreshInterval time.Duration `default:"0s" usage:"Background catalog refresh interval"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PROCART",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/procart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the PORT variable set by hosting platforms
// (Railway, Render, etc.) onto Addr unless Addr was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = fakestore.DefaultBaseURL
	}
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid catalog base URL %q", c.Catalog.BaseURL)
	}
	if c.Catalog.Timeout <= 0 {
		return errors.Errorf("catalog timeout must be positive, got %s", c.Catalog.Timeout)
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = view.DefaultPageSize
	}
	if c.Catalog.RefreshInterval < 0 {
		return errors.Errorf("refresh interval must not be negative, got %s", c.Catalog.RefreshInterval)
	}
	return nil
}
