package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/captcha/config"
	"github.com/cppla/captcha/controllers"
	"github.com/cppla/captcha/middleware"
	"github.com/cppla/captcha/utils"
)

// SetupRouter wires routes, middlewares, and controllers. db may be nil.
func SetupRouter(cfg config.AppConfig, registry *utils.SessionRegistry, db *gorm.DB) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	captchaController := controllers.NewCaptchaController(registry)
	statsController := controllers.NewStatsController(db, registry)

	api := r.Group("/api/v1")
	api.GET("/stats", statsController.GetStats)

	captchaGroup := api.Group("/captcha")
	captchaGroup.Use(middleware.NewIPRateLimiter(cfg.RateLimitPerMinute).Middleware())
	captchaGroup.Use(middleware.IssueRecorder(db))
	captchaGroup.POST("", captchaController.Create)
	captchaGroup.POST("/verify", captchaController.Verify)
	captchaGroup.GET("/:id", captchaController.Get)
	captchaGroup.GET("/:id/image", captchaController.Image)
	captchaGroup.POST("/:id/refresh", captchaController.Refresh)

	// Host-only routes.
	adminGroup := api.Group("/admin/captcha")
	adminGroup.Use(middleware.AdminRequired(cfg.AdminSecret))
	adminGroup.Use(middleware.IssueRecorder(db))
	adminGroup.PUT("/:id/answer", captchaController.SetAnswer)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
