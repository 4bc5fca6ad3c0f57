package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/logging"
	"github.com/hefi-app/hefi/internal/server/auth"
	"github.com/hefi-app/hefi/internal/server/models"
	"github.com/hefi-app/hefi/internal/server/services"
)

// AuthService is the server-side auth state machine the handlers drive.
type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, in services.RegisterInput, meta models.RequestMetadata) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput, meta models.RequestMetadata) (*services.AuthResult, error)
	Refresh(ctx context.Context, raw string, meta models.RequestMetadata) (*services.TokenPair, error)
	Logout(ctx context.Context, raw string) bool
	Validate(claims *auth.Claims) services.Identity
	Profile(ctx context.Context, userID int64) (*models.User, error)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type logoutResponse struct {
	Revoked bool `json:"revoked"`
}

type validateResponse struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type profileResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
}

type Handler struct {
	auth   AuthService
	logger logging.Logger
	now    func() time.Time
}

func NewHandler(a AuthService, l logging.Logger) *Handler {
	return &Handler{auth: a, logger: l.With("module", "auth_handler"), now: time.Now}
}

func requestMetadata(c *gin.Context) models.RequestMetadata {
	return models.RequestMetadata{UserAgent: c.Request.UserAgent(), IPAddress: c.ClientIP()}
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgRegisterRequired)
		return
	}

	res, err := h.auth.Register(c.Request.Context(),
		services.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password},
		requestMetadata(c))
	if errors.Is(err, auth.ErrPasswordTooLong) {
		abortWithError(c, http.StatusBadRequest, msgPasswordTooLong)
		return
	}
	if err != nil {
		writeError(c, h.logger, err, msgRegisterRequired)
		return
	}

	c.Header("Location", fmt.Sprintf("/users/%d", res.User.ID))
	c.JSON(http.StatusCreated, registerResponse{
		ID:           res.User.ID,
		Name:         res.User.Name,
		Email:        res.User.Email,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgLoginRequired)
		return
	}

	res, err := h.auth.Login(c.Request.Context(),
		services.LoginInput{Email: req.Email, Password: req.Password},
		requestMetadata(c))
	if err != nil {
		writeError(c, h.logger, err, msgLoginRequired)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		ID:           res.User.ID,
		Email:        res.User.Email,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abortWithError(c, http.StatusBadRequest, msgRefreshRequired)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, requestMetadata(c))
	if err != nil {
		writeError(c, h.logger, err, msgRefreshRequired)
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abortWithError(c, http.StatusBadRequest, msgRefreshRequired)
		return
	}

	revoked := h.auth.Logout(c.Request.Context(), req.RefreshToken)
	c.JSON(http.StatusOK, logoutResponse{Revoked: revoked})
}

// Validate needs RequireBearer in front of it.
func (h *Handler) Validate(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	id := h.auth.Validate(claims)
	c.JSON(http.StatusOK, validateResponse{Status: "valid", UserID: id.UserID, Email: id.Email})
}

func (h *Handler) Profile(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(c, h.logger, common.ErrInvalidToken, "")
		return
	}

	u, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, profileResponse{ID: u.ID, Name: u.Name, Email: u.Email})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Name: "Hefi API", Time: h.now().UTC()})
}
