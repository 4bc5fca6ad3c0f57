package rest

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hefi-app/hefi/internal/logging"
)

const adminKeyHeader = "X-Admin-Key"

// Migrator applies pending schema migrations.
type Migrator interface {
	RunMigrations(ctx context.Context) error
}

type AdminHandler struct {
	key      string
	migrator Migrator
	logger   logging.Logger
}

// NewAdminHandler guards admin routes with key. An empty key disables them.
func NewAdminHandler(key string, m Migrator, l logging.Logger) *AdminHandler {
	return &AdminHandler{key: key, migrator: m, logger: l.With("module", "admin_handler")}
}

func (h *AdminHandler) authorized(c *gin.Context) bool {
	if h.key == "" {
		return false
	}
	got := c.GetHeader(adminKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.key)) == 1
}

// Init runs migrations on demand.
func (h *AdminHandler) Init(c *gin.Context) {
	if !h.authorized(c) {
		abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if err := h.migrator.RunMigrations(c.Request.Context()); err != nil {
		h.logger.Error(c.Request.Context(), "init failed", "error", err)
		abortWithError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	h.logger.Info(c.Request.Context(), "database initialized")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database initialized"})
}
