package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/hefi-app/hefi/internal/logging"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	AdminKey           string
	// Limiter guards /auth; nil disables rate limiting.
	Limiter Limiter
}

// NewRouter wires middleware and routes.
func NewRouter(svc AuthService, migrator Migrator, l logging.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(l), CORS(cfg.CORSAllowedOrigins))

	h := NewHandler(svc, l)
	admin := NewAdminHandler(cfg.AdminKey, migrator, l)

	r.GET("/health", h.Health)
	r.GET("/_init", admin.Init)

	authGroup := r.Group("/auth")
	if cfg.Limiter != nil {
		authGroup.Use(RateLimit(cfg.Limiter, l))
	}
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/validate", RequireBearer(svc), h.Validate)

	r.GET("/users/profile", RequireBearer(svc), h.Profile)

	return r
}
