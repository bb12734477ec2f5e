package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"todoreminder/internal/handler"
	"todoreminder/pkg/otel"
)

// ReadinessCheck is one dependency /readyz must reach.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Options struct {
	// JWTSecret enables bearer-token auth on /api when non-empty.
	JWTSecret string
	// PollRatePerSec limits GET /api/reminders; <= 0 means unlimited.
	PollRatePerSec  float64
	PollBurst       int
	ReadinessChecks []ReadinessCheck
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	reminderHandler *handler.ReminderHandler,
	settingHandler *handler.SettingHandler,
	opts Options,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyz(opts.ReadinessChecks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if opts.JWTSecret != "" {
		api.Use(AuthMiddleware(opts.JWTSecret))
	}
	{
		limit := rate.Inf
		if opts.PollRatePerSec > 0 {
			limit = rate.Limit(opts.PollRatePerSec)
		}
		limiter := rate.NewLimiter(limit, max(opts.PollBurst, 1))
		api.GET("/reminders", RateLimitMiddleware(limiter), reminderHandler.GetReminders)
		api.GET("/settings/reminder", settingHandler.GetReminderSetting)
		api.POST("/settings/reminder", settingHandler.SetReminderSetting)
	}

	return &Router{Engine: r}
}

func readyz(checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": check.Name + "_not_ready",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
