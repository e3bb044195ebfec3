package splatcard

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eringen/splatcard/fetch"
)

// EnvPrefix is prepended to every environment variable Config reads.
const EnvPrefix = "SPLATCARD_"

// Config holds all configuration for a splatcard server.
type Config struct {
	Addr         string `yaml:"addr" env:"ADDR"`                   // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"` // SQLite path (default "data/image/image.db")
	StaticDir    string `yaml:"static_dir" env:"STATIC_DIR"`       // Backgrounds and mode icons (default "data/static")

	FontPath      string `yaml:"font_path" env:"FONT_PATH"`             // Names and labels; bundled Go font when empty
	TitleFontPath string `yaml:"title_font_path" env:"TITLE_FONT_PATH"` // Times and descriptions
	Language      string `yaml:"language" env:"LANGUAGE"`               // Label language (default "en")
	TimeZone      string `yaml:"time_zone" env:"TIME_ZONE"`             // Zone for printed times (default local)

	ProtectedHosts  []string      `yaml:"protected_hosts" env:"PROTECTED_HOSTS" envSeparator:","`
	PlainTimeout    time.Duration `yaml:"plain_timeout" env:"PLAIN_TIMEOUT"` // default 5s
	PlaceholderPath string        `yaml:"placeholder_path" env:"PLACEHOLDER_PATH"`

	RenderCacheBackend string        `yaml:"render_cache_backend" env:"RENDER_CACHE_BACKEND"` // "sqlite" (default) or "redis"
	RenderCacheTTL     time.Duration `yaml:"render_cache_ttl" env:"RENDER_CACHE_TTL"`         // default 1h
	PurgeInterval      time.Duration `yaml:"purge_interval" env:"PURGE_INTERVAL"`             // 0 disables the purge ticker

	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`

	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"` // Required by Start
	SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET"` // Required by Start
	CookieSecure  bool   `yaml:"cookie_secure" env:"COOKIE_SECURE"`

	APIToken         string        `yaml:"api_token" env:"API_TOKEN"` // Bearer token for /api/; open when empty
	RenderRateLimit  int           `yaml:"render_rate_limit" env:"RENDER_RATE_LIMIT"`
	RenderRateWindow time.Duration `yaml:"render_rate_window" env:"RENDER_RATE_WINDOW"`

	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_ENDPOINT"` // Tracing is off when empty
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/image/image.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "data/static"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.PlainTimeout == 0 {
		c.PlainTimeout = fetch.PlainTimeout
	}
	if c.RenderCacheBackend == "" {
		c.RenderCacheBackend = BackendSQLite
	}
	if c.RenderCacheTTL == 0 {
		c.RenderCacheTTL = time.Hour
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RenderRateWindow == 0 {
		c.RenderRateWindow = time.Minute
	}
}

func (c *Config) validate() error {
	switch c.RenderCacheBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("splatcard: unknown render cache backend %q", c.RenderCacheBackend)
	}
	if c.RenderCacheTTL < 0 {
		return fmt.Errorf("splatcard: render cache ttl must not be negative")
	}
	return nil
}

// LoadConfig reads an optional YAML file, overlays SPLATCARD_* environment
// variables and fills defaults. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("splatcard: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("splatcard: parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("splatcard: parse env: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticFS replaces the static image directory with fsys.
func WithStaticFS(fsys fs.FS) Option {
	return func(a *App) {
		a.static = fsys
	}
}

// WithViews overrides the default admin and error pages.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithOrigin routes asset requests for host to o, ahead of configured
// protected hosts.
func WithOrigin(host string, o fetch.Origin) Option {
	return func(a *App) {
		a.origins = append(a.origins, fetch.WithRoute(host, o))
	}
}

// WithRenderCache uses rc instead of the configured backend.
func WithRenderCache(rc RenderCache) Option {
	return func(a *App) {
		a.Renders = rc
	}
}

// WithClock overrides the clock used for render expiry and event status.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
