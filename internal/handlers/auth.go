package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/hash"
	"github.com/zyncjobs/backend/internal/logging"
	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/mykafka"
	"github.com/zyncjobs/backend/internal/rate"
	"github.com/zyncjobs/backend/internal/service"
)

const (
	RoleJobseeker = "jobseeker"
	RoleEmployer  = "employer"

	refreshCookieName = "refreshToken"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *service.TokenService
	Reset    *service.ResetService
	Producer mykafka.Publisher
	Limiter  *rate.Limiter
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(CreateCookie(refreshCookieName, token, "/", exp))
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(CreateCookie(refreshCookieName, "", "/", time.Now().Add(-time.Hour)))
}

func (h *AuthHandler) publish(c echo.Context, topic, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", topic, "error", err)
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "valid email is required")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Role != RoleJobseeker && req.Role != RoleEmployer {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be jobseeker or employer")
	}

	var existing models.User
	err := h.DB.WithContext(c.Request().Context()).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "user already exists with this email")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		Name:         req.Name,
		Role:         req.Role,
		Phone:        req.Phone,
		Company:      req.Company,
		Location:     req.Location,
		IsActive:     true,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&user).Error; err != nil {
		// the unique index is the real enforcement point for concurrent registers
		return echo.NewHTTPError(http.StatusConflict, "user already exists with this email")
	}

	pair, err := h.Tokens.IssuePair(c.Request().Context(), user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

	h.publish(c, "user_events", fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Registration successful",
		"user":         user,
		"access_token": pair.AccessToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	ip := c.RealIP()
	if !h.Limiter.AllowLogin(ctx, req.Email, ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.Limiter.RecordLoginFailure(ctx, req.Email, ip)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		h.Limiter.RecordLoginFailure(ctx, req.Email, ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	pair, err := h.Tokens.IssuePair(ctx, user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Limiter.ClearLogin(ctx, req.Email, ip)
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

	h.publish(c, "user_events", fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "user_logged_in",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Login successful",
		"user":         user,
		"access_token": pair.AccessToken,
	})
}

// Refresh rotates the refresh token. The token is read from the HTTP-only
// cookie and nowhere else.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token required")
	}

	pair, err := h.Tokens.Rotate(c.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) || errors.Is(err, service.ErrTokenReused) {
			h.clearRefreshCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": pair.AccessToken,
	})
}

// Logout revokes every active refresh token of the caller. Requires a valid
// access token.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
	}

	if err := h.Tokens.RevokeAll(c.Request().Context(), userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.clearRefreshCookie(c)

	h.publish(c, "user_events", fmt.Sprint(userID), map[string]interface{}{
		"type":    "user_logged_out",
		"user_id": userID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers with the generic success message once the
// email is well-formed, whether or not an account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	ctx := c.Request().Context()
	if !h.Limiter.AllowReset(ctx, req.Email) {
		// throttled requests still look like success
		return c.JSON(http.StatusOK, echo.Map{"message": "Email sent"})
	}

	if err := h.Reset.Request(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, "valid email is required")
		}
		logging.FromContext(ctx).Error("reset request failed", "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Email sent"})
}

func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	token := c.Param("token")

	email, err := h.Reset.Verify(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrResetInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"valid": true, "email": email})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and password required")
	}

	err := h.Reset.Consume(c.Request().Context(), req.Token, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrResetInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, service.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	case errors.Is(err, service.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password reset successful"})
}
