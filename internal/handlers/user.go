package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/hash"
	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/models"
	"github.com/useandsell/marketplace/internal/validate"
)

type UserHandler struct {
	DB *gorm.DB
}

// userSummary exposes the safe user fields only; isActive is surfaced as
// "active" for the frontend.
type userSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *UserHandler) GetUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("id DESC").Find(&users).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("list_users_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch users")
	}

	out := make([]userSummary, len(users))
	for i, u := range users {
		out[i] = userSummary{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			Active:    u.IsActive,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		}
	}
	return respondData(c, http.StatusOK, out)
}

func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register user")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register user")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("create_user_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register user")
	}

	return respondData(c, http.StatusOK, echo.Map{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

func (h *UserHandler) UpdateActive(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}

	if err := h.DB.Model(&user).Update("is_active", req.Active).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("update_user_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}

	return respondData(c, http.StatusOK, echo.Map{"id": user.ID, "active": req.Active})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user")
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("delete_user_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user")
	}

	return respondData(c, http.StatusOK, echo.Map{"message": "User deleted"})
}
