package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/hash"
	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/middleware/auth"
	"github.com/useandsell/marketplace/internal/models"
	"github.com/useandsell/marketplace/internal/mykafka"
	"github.com/useandsell/marketplace/internal/validate"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c echo.Context) error {
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
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.FromContext(c.Request().Context()).Error("register_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("register_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register")
	}

	token, err := auth.SignToken(h.JWTSecret, user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register")
	}

	h.publish(c, user.ID, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return respondData(c, http.StatusOK, echo.Map{"user": user, "token": token})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	user.IsActive = true
	if err := h.DB.Model(&user).Update("is_active", true).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("login_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to login")
	}

	token, err := auth.SignToken(h.JWTSecret, user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to login")
	}

	h.publish(c, user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return respondData(c, http.StatusOK, echo.Map{"user": user, "token": token})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req struct {
		UserID uint `json:"userId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.UserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing userId")
	}

	var user models.User
	if err := h.DB.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to logout")
	}

	user.IsActive = false
	if err := h.DB.Model(&user).Update("is_active", false).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("logout_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to logout")
	}

	h.publish(c, user.ID, map[string]any{
		"type":   "user_logged_out",
		"userID": user.ID,
	})

	return respondData(c, http.StatusOK, echo.Map{"user": user})
}

func (h *AuthHandler) publish(c echo.Context, userID uint, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(userID), event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("kafka_publish_failed", "error", err)
	}
}
