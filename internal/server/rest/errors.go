package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/logging"
)

const (
	msgRegisterRequired = "Name, Email, and Password are required."
	msgLoginRequired    = "Email and Password are required."
	msgPasswordTooLong  = "Password must be at most 72 bytes."
	msgRefreshRequired  = "refreshToken required"
	msgEmailTaken       = "Email already registered."
	msgUnauthorized     = "unauthorized"
	msgNotFound         = "not found"
	msgInternal         = "internal error"
	msgTooManyRequests  = "too many requests"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// writeError maps service errors onto statuses. Only validation and
// conflict messages reach the caller; everything else is generic.
func writeError(c *gin.Context, logger logging.Logger, err error, validationMsg string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		abortWithError(c, http.StatusBadRequest, validationMsg)
	case errors.Is(err, common.ErrorConflict):
		abortWithError(c, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, common.ErrorNotFound):
		abortWithError(c, http.StatusNotFound, msgNotFound)
	default:
		logger.Error(requestContext(c), "request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, msgInternal)
	}
}

func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}
