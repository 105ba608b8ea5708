package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/models"
)

type StatsHandler struct {
	DB *gorm.DB
}

func (h *StatsHandler) GetUserStats(c echo.Context) error {
	var total, active int64

	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("user_stats_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch user stats")
	}
	if err := h.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("user_stats_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch user stats")
	}

	return respondData(c, http.StatusOK, echo.Map{
		"totalUsers":  total,
		"activeUsers": active,
	})
}
