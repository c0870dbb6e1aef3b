package app

import (
	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/middleware"
	"github.com/mx-space/comments/internal/modules/auth/user"
	"github.com/mx-space/comments/internal/modules/content/comment"
	"github.com/mx-space/comments/internal/modules/system/core/health"
	"github.com/mx-space/comments/internal/modules/tasks/crontask"
	"github.com/mx-space/comments/internal/modules/webhook"
	"github.com/mx-space/comments/internal/pkg/metrics"
	"github.com/mx-space/comments/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	if a.cfg.Metrics.Enable {
		r.Use(metrics.Middleware())
		r.GET(a.cfg.Metrics.Path, metrics.Handler())
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(200, "pong")
	})

	api := r.Group("/api", middleware.Visitor(a.secureCookies()))
	authMW := middleware.Auth(a.db)
	adminMW := []gin.HandlerFunc{authMW, middleware.AdminOnly()}

	var rdb *redis.Client
	if a.redis != nil {
		rdb = a.redis.Raw()
	}
	submitMW := []gin.HandlerFunc{middleware.RateLimit(rdb, middleware.RateLimitOptions{})}
	if rdb != nil {
		submitMW = append(submitMW, middleware.Idempotence(rdb))
	}

	svc := a.svc
	comment.NewHandler(svc.Listing, svc.Submission, svc.Moderator, svc.Captcha, svc.Options, svc.Site).
		RegisterRoutes(api, comment.Middlewares{
			OptionalAuth: middleware.OptionalAuth(a.db),
			Submit:       submitMW,
			Admin:        adminMW,
		})
	user.NewHandler(svc.Members).RegisterRoutes(api, authMW, adminMW...)
	webhook.NewHandler(svc.Webhooks).RegisterRoutes(api, adminMW...)
	crontask.NewHandler(a.sched).RegisterRoutes(api, adminMW...)
	health.NewHandler(a.db, a.redis, svc.Mailer, a.cfg.Site.AdminEmail, a.cfg.LogDir()).RegisterRoutes(api, adminMW...)
}
