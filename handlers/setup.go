package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/auth"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/repository"
	"github.com/mealbox/mealbox/internal/users"
	"github.com/mealbox/mealbox/pkg/logger"
	"github.com/mealbox/mealbox/pkg/middleware"
)

// RestaurantSetup records the onboarding of a restaurant user.
type RestaurantSetup interface {
	CompleteSetup(ctx context.Context, uid, restaurantName string) (*models.User, error)
}

// SessionUser lets the handler publish the updated user to the session.
type SessionUser interface {
	RefreshUser(u *models.User) bool
	Snapshot() auth.Snapshot
}

type SetupRequest struct {
	RestaurantName string `json:"restaurantName" binding:"required"`
}

// SetupHandler finishes restaurant onboarding for the signed-in user.
type SetupHandler struct {
	users   RestaurantSetup
	session SessionUser
}

func NewSetupHandler(u RestaurantSetup, s SessionUser) *SetupHandler {
	return &SetupHandler{users: u, session: s}
}

// Register mounts POST /me/setup; rg must run middleware.RequireSession.
func (h *SetupHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/me/setup", h.CompleteSetup)
}

// CompleteSetup stores the restaurant name on the caller's own record and
// returns the refreshed session, whose destination is now the dashboard.
func (h *SetupHandler) CompleteSetup(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.users.CompleteSetup(c.Request.Context(), u.UID, req.RestaurantName)
	switch {
	case errors.Is(err, users.ErrInvalidSetup):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, users.ErrNotRestaurant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case err != nil:
		logger.Errorf("restaurant setup for %s: %v", u.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save setup"})
		return
	}
	if !h.session.RefreshUser(updated) {
		logger.Warnf("restaurant setup for %s saved, but the session moved on", u.UID)
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}
