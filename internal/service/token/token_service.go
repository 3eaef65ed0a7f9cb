package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/handlers"
)

type TokenService struct {
	Auth      *auth.Service
	JWTSecret []byte
}

// AutoRefreshMiddleware authenticates the request from the access cookie,
// transparently rotating an expired access token through the refresh token.
func (t *TokenService) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.authenticate(c)
		if err != nil {
			return err
		}
		setUserContext(c, claims)
		return next(c)
	}
}

// AutoRefreshMiddlewareAdmin additionally requires role=admin. A user with no
// resolved role is treated as non-admin and turned away.
func (t *TokenService) AutoRefreshMiddlewareAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.authenticate(c)
		if err != nil {
			return err
		}
		if role, _ := claims["role"].(string); role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (t *TokenService) authenticate(c echo.Context) (jwt.MapClaims, error) {
	asCookie, err := c.Cookie("accessToken")
	if err == nil {
		token, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
			return t.JWTSecret, nil
		})
		if err == nil && token.Valid {
			return token.Claims.(jwt.MapClaims), nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, _, err := t.Auth.Rotate(c.Request().Context(), rfCookie.Value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
	}

	c.SetCookie(handlers.CreateCookie("accessToken", pair.Access, "/", time.Now().Add(auth.AccessTokenTTL)))
	c.SetCookie(handlers.CreateCookie("refreshToken", pair.Refresh, "/", time.Now().Add(auth.RefreshTokenTTL)))

	token, err := jwt.Parse(pair.Access, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}
	return token.Claims.(jwt.MapClaims), nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	role, _ := claims["role"].(string)
	c.Set("role", role)
}
