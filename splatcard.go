// Package splatcard renders stage, weapon and event cards for a game-status
// notification bot. It caches remote image assets and rendered cards in
// SQLite (or Redis for renders) and serves cards over HTTP with Echo.
//
// The admin pages are templ components supplied through ViewFuncs; the
// defaults in views.go can be replaced with WithViews.
package splatcard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/splatcard/assetdb"
	"github.com/eringen/splatcard/compose"
	"github.com/eringen/splatcard/fetch"
)

// ViewFuncs holds templ components the App calls when rendering HTML pages.
type ViewFuncs struct {
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(d Dashboard, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App wires together the asset store, fetcher, renderer, render cache,
// handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *assetdb.Store
	Fetcher  *fetch.Fetcher
	Renderer *compose.Renderer
	Renders  RenderCache
	Views    ViewFuncs

	loginLimiter  *RateLimiter
	renderLimiter *RateLimiter
	static        fs.FS
	origins       []fetch.Option
	customRoutes  []func(*App)
	now           func() time.Time

	stops         []func()
	closeRenders  func() error
	shutdownTrace func(context.Context) error
}

// New creates an App with the given configuration. Nothing is opened until
// Init or Start.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Views = a.Views.withDefaults()
	if a.static == nil {
		a.static = os.DirFS(a.Config.StaticDir)
	}
	return a
}

// Init opens the store, builds the fetcher, renderer and render cache, and
// clears every cached render. It is enough for offline rendering.
func (a *App) Init(ctx context.Context) error {
	if err := a.Config.validate(); err != nil {
		return err
	}

	shutdown, err := setupTracing(ctx, a.Config.OTLPEndpoint, "splatcard")
	if err != nil {
		return fmt.Errorf("splatcard: init tracing: %w", err)
	}
	a.shutdownTrace = shutdown

	store, err := assetdb.Open(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("splatcard: init store: %w", err)
	}
	a.Store = store

	if err := a.initFetcher(); err != nil {
		return err
	}

	fonts, err := compose.LoadFonts(a.Config.FontPath, a.Config.TitleFontPath)
	if err != nil {
		return fmt.Errorf("splatcard: load fonts: %w", err)
	}
	rendererOpts := []compose.RendererOption{
		compose.WithLanguage(compose.MatchLanguage(a.Config.Language)),
		compose.WithClock(a.now),
	}
	if a.Config.TimeZone != "" {
		loc, err := time.LoadLocation(a.Config.TimeZone)
		if err != nil {
			return fmt.Errorf("splatcard: time zone: %w", err)
		}
		rendererOpts = append(rendererOpts, compose.WithLocation(loc))
	}
	a.Renderer, err = compose.NewRenderer(a.Fetcher, compose.NewFSStatic(a.static), fonts, rendererOpts...)
	if err != nil {
		return fmt.Errorf("splatcard: init renderer: %w", err)
	}

	if err := a.initRenderCache(ctx); err != nil {
		return err
	}

	n, err := a.Renders.ClearRenders(ctx)
	if err != nil {
		return fmt.Errorf("splatcard: clear render cache: %w", err)
	}
	log.Printf("splatcard: render cache (%s) ready, %d stale entries removed", a.Config.RenderCacheBackend, n)

	if a.Config.PurgeInterval > 0 && a.Config.RenderCacheBackend == BackendSQLite {
		if s, ok := a.Renders.(*assetdb.Store); ok {
			a.stops = append(a.stops, s.StartExpiryScheduler(a.Config.PurgeInterval))
		}
	}
	return nil
}

func (a *App) initFetcher() error {
	opts := []fetch.Option{fetch.WithDefaultOrigin(fetch.NewPlainOrigin(a.Config.PlainTimeout))}
	if len(a.Config.ProtectedHosts) > 0 {
		po, err := fetch.NewProtectedOrigin()
		if err != nil {
			return fmt.Errorf("splatcard: protected origin: %w", err)
		}
		for _, h := range FilterEmpty(a.Config.ProtectedHosts) {
			opts = append(opts, fetch.WithRoute(h, po))
		}
	}
	if a.Config.PlaceholderPath != "" {
		data, err := os.ReadFile(a.Config.PlaceholderPath)
		if err != nil {
			return fmt.Errorf("splatcard: read placeholder: %w", err)
		}
		img, err := fetch.Decode(data)
		if err != nil {
			return fmt.Errorf("splatcard: placeholder: %w", err)
		}
		opts = append(opts, fetch.WithPlaceholder(img))
	}
	a.Fetcher = fetch.New(a.Store, append(opts, a.origins...)...)
	return nil
}

func (a *App) initRenderCache(ctx context.Context) error {
	if a.Renders != nil {
		return nil
	}
	switch a.Config.RenderCacheBackend {
	case BackendRedis:
		rc, err := NewRedisRenderCache(ctx, RedisOptions{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("splatcard: init redis: %w", err)
		}
		a.Renders = rc
		a.closeRenders = rc.Close
	default:
		a.Renders = a.Store
	}
	return nil
}

// Setup runs Init and registers middleware and routes without serving.
func (a *App) Setup(ctx context.Context) error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("splatcard: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("splatcard: SessionSecret is required")
	}
	if err := a.Init(ctx); err != nil {
		return err
	}

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.stops = append(a.stops, a.loginLimiter.Stop)
	if a.Config.RenderRateLimit > 0 {
		a.renderLimiter = NewRateLimiter(a.Config.RenderRateLimit, a.Config.RenderRateWindow)
		a.stops = append(a.stops, a.renderLimiter.Stop)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the App up and serves until the server stops.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	api := e.Group("/api", a.apiAuth())
	cards := api.Group("/cards", a.renderRateLimit)
	cards.POST("/stage/", a.handleCard(KindStage))
	cards.POST("/weapons/", a.handleCard(KindWeapons))
	cards.POST("/event/", a.handleCard(KindEvent))
	cards.POST("/event-desc/", a.handleCard(KindEventDesc))
	api.GET("/assets/:name/", a.handleAsset)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/renders/clear/", a.handleClearRenders)
	e.POST("/admin/renders/purge/", a.handlePurgeRenders)
	e.POST("/admin/assets/upload/", a.handleAssetUpload)
}

// Close stops background work and releases the store and render cache.
func (a *App) Close() error {
	for _, stop := range a.stops {
		stop()
	}
	a.stops = nil

	var errs []error
	if a.closeRenders != nil {
		if err := a.closeRenders(); err != nil {
			errs = append(errs, fmt.Errorf("splatcard: close render cache: %w", err))
		}
		a.closeRenders = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("splatcard: close store: %w", err))
		}
	}
	if a.shutdownTrace != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTrace(ctx); err != nil {
			errs = append(errs, fmt.Errorf("splatcard: shutdown tracing: %w", err))
		}
		a.shutdownTrace = nil
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
