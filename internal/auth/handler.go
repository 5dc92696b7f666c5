// Package auth exposes password sign-up, the JWT endpoints and Google sign-in.
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sharedauth "resume-insights/internal/shared/auth"
	"resume-insights/internal/shared/server/middleware"
	"resume-insights/internal/shared/server/respond"
	"resume-insights/internal/users"
)

const msgNoActiveAccount = "No active account found with the given credentials"

// Handler serves the password and token routes.
type Handler struct {
	Users  *users.Service
	Tokens *sharedauth.Issuer
}

func NewHandler(usersSvc *users.Service, tokens *sharedauth.Issuer) *Handler {
	return &Handler{Users: usersSvc, Tokens: tokens}
}

// RegisterRoutes attaches /auth/* and /me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/token", h.token)
	rg.POST("/auth/token/refresh", h.refresh)
	rg.POST("/auth/token/verify", h.verify)
	rg.GET("/me", h.me)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *Handler) register(c *gin.Context) {
	var req users.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	user, err := h.Users.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid registration", respond.ValidationDetails(err))
		return
	case errors.Is(err, users.ErrUsernameTaken):
		respond.Error(c, http.StatusConflict, "username_taken", "A user with that username already exists.", nil)
		return
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

func (h *Handler) token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	user, err := h.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", msgNoActiveAccount, nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to authenticate", nil)
		return
	}
	pair, err := h.Tokens.Issue(sharedauth.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    displayName(user),
		Picture: user.PictureURL,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}
	respond.OK(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "refresh is required", nil)
		return
	}
	access, err := h.Tokens.Refresh(req.Refresh)
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired", nil)
		return
	}
	respond.OK(c, gin.H{"access": access})
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "token is required", nil)
		return
	}
	if _, err := h.Tokens.Verify(req.Token); err != nil {
		respond.Error(c, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired", nil)
		return
	}
	respond.OK(c, gin.H{})
}

// me returns the stored profile, falling back to the token claims when the
// user row is missing.
func (h *Handler) me(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "login required", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	user, err := h.Users.GetByID(c.Request.Context(), userID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		respond.OK(c, gin.H{
			"userId":  userID,
			"email":   middleware.UserEmailFromContext(c),
			"name":    middleware.UserNameFromContext(c),
			"picture": middleware.UserPictureFromContext(c),
		})
		return
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"name":     displayName(user),
		"picture":  user.PictureURL,
	})
}

func displayName(u users.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
