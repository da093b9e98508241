package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/auth"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/pkg/middleware"
)

// SessionController is the part of the session controller the UI drives.
type SessionController interface {
	StartLogin(ctx context.Context, source models.LoginSource) bool
	Logout(ctx context.Context)
	Snapshot() auth.Snapshot
	ClearError()
}

// LoginRequest starts an interactive login. Source is optional.
type LoginRequest struct {
	Source models.LoginSource `json:"source"`
}

// AuthHandler exposes the local session to the UI.
type AuthHandler struct {
	ctrl SessionController
}

func NewAuthHandler(ctrl SessionController) *AuthHandler {
	return &AuthHandler{ctrl: ctrl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.GET("/session", h.Session)
	a.POST("/logout", h.Logout)
	a.DELETE("/error", h.ClearError)
}

// Login starts a login in the background. 202 when an attempt started, 409
// when one is already running or the cooldown has not elapsed.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Source.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be web or mobile"})
		return
	}
	// the attempt outlives this request
	if !h.ctrl.StartLogin(context.Background(), req.Source) {
		c.JSON(http.StatusConflict, gin.H{"error": "login not available", "session": h.ctrl.Snapshot()})
		return
	}
	c.JSON(http.StatusAccepted, h.ctrl.Snapshot())
}

// Session returns the current session snapshot.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.ctrl.Logout(c.Request.Context())
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// ClearError dismisses the recorded sign-in error.
func (h *AuthHandler) ClearError(c *gin.Context) {
	h.ctrl.ClearError()
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// Me returns the signed-in user; mount it behind middleware.RequireSession.
func Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	c.JSON(http.StatusOK, u)
}
