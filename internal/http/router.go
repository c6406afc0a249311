package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vmforge/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	limiter service.RateLimiter,
	sessions *service.SessionService,
	userH *UserHandler,
	vmH *VMHandler,
	miscH *MiscHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, JSON content-type y rate limit
	// global. El rate limit va primero en la cadena de negocio: un 429 nunca
	// llega a resolver identidad.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware(), RateLimitMiddleware(limiter))

	api := r.Group("/api")
	api.GET("/health", miscH.Health)
	api.POST("/contact", miscH.Contact)

	api.POST("/signup", userH.Signup)
	api.POST("/login", userH.Login)
	api.POST("/logout", userH.Logout)
	api.GET("/verify-session", userH.VerifySession)

	authed := api.Group("")
	authed.Use(AuthMiddleware(sessions))
	authed.GET("/users/me", userH.Me)
	authed.POST("/create-vm", vmH.CreateVM)
	authed.GET("/vm-status/:vmid", vmH.VMStatus)
	authed.DELETE("/delete-vm/:vmid", vmH.DeleteVM)
	authed.GET("/vm-list", vmH.ListVMs)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
