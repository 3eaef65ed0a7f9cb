package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/logging"
)

type AuthHandler struct {
	Auth *auth.Service
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			l.Warn("register_failed", "status", 409, "reason", "user_exists")
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		}
		l.Error("register_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("register_success", "status", 200)
	return c.JSON(http.StatusOK, echo.Map{
		"id": user.ID, "username": user.Username, "role": user.Role,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, pair, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(CreateCookie("accessToken", pair.Access, "/", pair.AccessExp))
	c.SetCookie(CreateCookie("refreshToken", pair.Refresh, "/", pair.RefreshExp))

	l.Info("login_successful")
	return c.JSON(http.StatusOK, echo.Map{
		"is_admin": user.Role == "admin",
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var refresh string
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		refresh = cookie.Value
	} else {
		l.Warn("logout", "reason", "missing_refresh_cookie", "error", err)
	}

	if err := h.Auth.Logout(ctx, refresh); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
	}

	c.SetCookie(DeleteCookie("refreshToken", "/"))
	c.SetCookie(DeleteCookie("accessToken", "/"))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, role, err := h.Auth.Rotate(ctx, rfCookie.Value)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token")
	}

	c.SetCookie(CreateCookie("accessToken", pair.Access, "/", time.Now().Add(auth.AccessTokenTTL)))
	c.SetCookie(CreateCookie("refreshToken", pair.Refresh, "/", time.Now().Add(auth.RefreshTokenTTL)))

	return c.JSON(http.StatusOK, echo.Map{
		"is_admin": role == "admin",
	})
}
