package handler

import (
	"net/http"

	"github.com/casper/babelbot/internal/repository"
	"github.com/gin-gonic/gin"
)

// HistoryHandler handles cache statistics and user data endpoints.
type HistoryHandler struct {
	repo *repository.HistoryRepository
}

// NewHistoryHandler creates a new history handler.
// Parameters:
//   - repo: history store handle.
// Returns:
//   - *HistoryHandler: initialized handler.
func NewHistoryHandler(repo *repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GlobalStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUserStats handles GET /api/v1/users/:id/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *HistoryHandler) GetUserStats(c *gin.Context) {
	stats, err := h.repo.UserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get user stats",
		})
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown user",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteUser handles DELETE /api/v1/users/:id. Removes the user's profile
// and attribution links; cached translations themselves are shared data and
// survive.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *HistoryHandler) DeleteUser(c *gin.Context) {
	result, err := h.repo.DeleteUserData(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete user data",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
