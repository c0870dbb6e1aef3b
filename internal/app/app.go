package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/config"
	"github.com/mx-space/comments/internal/database"
	"github.com/mx-space/comments/internal/middleware"
	pkgcron "github.com/mx-space/comments/internal/pkg/cron"
	pkgredis "github.com/mx-space/comments/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	redis  *pkgredis.Client
	svc    *Services
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.UsesRedis() {
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Info("redis not configured, keeping visitor state in memory")
	}

	a := build(cfg, db, rc, logger)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.sched.Start(ctx)
	return a, nil
}

// build wires services and routes without starting background work.
func build(cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client, logger *zap.Logger) *App {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	svc := NewServices(cfg, db, rc, logger)
	sched := pkgcron.New(pkgcron.WithLogger(logger.Named("CronService")))
	registerCronJobs(sched, svc, logger)

	a := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		svc:    svc,
		logger: logger,
		cancel: func() {},
		sched:  sched,
	}
	a.registerRoutes()
	return a
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", "X-Comment-Id"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the scheduler and waits for webhook deliveries in flight.
func (a *App) Shutdown() {
	a.cancel()
	a.svc.Webhooks.Wait()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}

func (a *App) secureCookies() bool {
	return strings.HasPrefix(a.cfg.Site.BaseURL, "https://")
}
