package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/frpconfig"
	"github.com/router-for-me/FRPPanel/internal/http/api/admin"
	"github.com/router-for-me/FRPPanel/internal/http/api/front"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/panel"
	"github.com/router-for-me/FRPPanel/internal/persist"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/ratelimit"
	"github.com/router-for-me/FRPPanel/internal/security"
	"github.com/router-for-me/FRPPanel/internal/store"
	"github.com/router-for-me/FRPPanel/internal/traffic"
	log "github.com/sirupsen/logrus"
)

const (
	shutdownTimeout    = 5 * time.Second
	limiterSweepPeriod = time.Minute
)

// RunServer loads the record store, bootstraps the admin account and serves the panel
// API until ctx is cancelled. The store is flushed to its backend before returning.
func RunServer(ctx context.Context, cfg config.Config) error {
	if errLog := ConfigureLogging(cfg.Logging); errLog != nil {
		return errLog
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		secret, errSecret := security.GenerateRandomString(32)
		if errSecret != nil {
			return fmt.Errorf("generate jwt secret: %w", errSecret)
		}
		cfg.JWT.Secret = secret
		log.Warn("no jwt secret configured, using a random one; sessions will not survive a restart")
	}

	records := store.New()
	facade := query.New(records, query.Strict(cfg.Storage.StrictQueries))

	backend, described, closeBackend, errBackend := openBackend(cfg.Storage)
	if errBackend != nil {
		return errBackend
	}
	defer func() {
		if errClose := closeBackend(); errClose != nil {
			log.Errorf("close storage backend: %v", errClose)
		}
	}()
	log.Infof("snapshot storage: %s", described)

	snapshots := persist.NewManager(records, backend, persist.Options{
		Interval:     cfg.Storage.SaveInterval,
		WriteThrough: cfg.Storage.WriteThrough,
	})
	if errLoad := snapshots.Load(ctx); errLoad != nil {
		return errLoad
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errClose := snapshots.Close(flushCtx); errClose != nil {
			log.Errorf("flush snapshot: %v", errClose)
		}
	}()

	if _, errAdmin := EnsureAdmin(ctx, facade, security.BcryptHasher{}, cfg); errAdmin != nil {
		return errAdmin
	}
	snapshots.Start(ctx)

	collector := traffic.NewCollector(facade, traffic.Config{
		DashboardURL: cfg.FRPS.DashboardURL,
		User:         cfg.FRPS.DashboardUser,
		Password:     cfg.FRPS.DashboardPassword,
		Interval:     cfg.FRPS.CollectInterval,
		Retention:    cfg.FRPS.Retention,
	})
	if collector == nil {
		log.Info("frps dashboard not configured, traffic collection disabled")
	}
	collector.Start(ctx)

	limiter := newLimiter(cfg.RateLimit)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.Errorf("close rate limiter: %v", errClose)
		}
	}()
	go sweepLimiter(ctx, limiter)

	svc := panel.New(facade, panel.Options{
		Ports: cfg.Ports,
		Server: frpconfig.Server{
			Addr:  cfg.FRPS.ServerAddr,
			Port:  cfg.FRPS.BindPort,
			Token: cfg.FRPS.Token,
		},
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: NewEngine(svc, cfg, limiter),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting panel on %s (ports %d-%d)", srv.Addr, cfg.Ports.Min, cfg.Ports.Max)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("panel stopped")
	return nil
}

// NewEngine builds the HTTP router serving the user and administrator APIs.
// A nil limiter disables request limiting.
func NewEngine(svc *panel.Service, cfg config.Config, limiter *ratelimit.Manager) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	if limiter != nil {
		engine.Use(apiOnly(middleware.RateLimit(limiter)))
	}

	admin.RegisterAdminRoutes(engine, svc, cfg.JWT)
	front.RegisterFrontRoutes(engine, svc, cfg.JWT, cfg.PublicURL)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

// apiOnly applies next to /api requests only.
func apiOnly(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		next(c)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func newLimiter(cfg config.RateLimitConfig) *ratelimit.Manager {
	if cfg.Requests <= 0 {
		return nil
	}
	return ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsConfig{
		Limit:         cfg.Requests,
		Window:        cfg.Window,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
	}), nil, nil)
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.Manager) {
	if limiter == nil {
		return
	}
	ticker := time.NewTicker(limiterSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				log.Debugf("rate limiter swept %d expired buckets", removed)
			}
		}
	}
}
