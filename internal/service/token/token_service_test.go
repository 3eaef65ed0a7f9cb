package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/models"
)

var jwtSecret = []byte("test-secret")

func newService(t *testing.T) (*gorm.DB, *TokenService) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	svc := auth.NewService(db, jwtSecret, []byte("test-refresh"), nil, nil)
	return db, &TokenService{Auth: svc, JWTSecret: jwtSecret}
}

func request(e *echo.Echo, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestAutoRefreshAcceptsValidAccessToken(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()

	token, err := auth.SignAccessToken(7, "user", jwtSecret)
	require.NoError(t, err)

	rec, c := request(e, &http.Cookie{Name: "accessToken", Value: token})
	require.NoError(t, ts.AutoRefreshMiddleware(okHandler)(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint(7), c.Get("userID"))
	require.Equal(t, "user", c.Get("role"))
}

func TestAutoRefreshRejectsMissingTokens(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()

	_, c := request(e)
	err := ts.AutoRefreshMiddleware(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAutoRefreshRotatesExpiredAccess(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()
	ctx := context.Background()

	_, err := ts.Auth.Register(ctx, "vera", "password")
	require.NoError(t, err)
	_, pair, err := ts.Auth.Login(ctx, "vera", "password")
	require.NoError(t, err)

	// Only the refresh cookie is presented; rotation must mint fresh cookies.
	rec, c := request(e, &http.Cookie{Name: "refreshToken", Value: pair.Refresh})
	require.NoError(t, ts.AutoRefreshMiddleware(okHandler)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	for _, ck := range rec.Result().Cookies() {
		require.NotEmpty(t, ck.Value)
		require.True(t, ck.Expires.After(time.Now()))
		names = append(names, ck.Name)
	}
	require.Contains(t, names, "accessToken")
	require.Contains(t, names, "refreshToken")
}

func TestAdminGateDeniesNonAdmin(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()

	token, err := auth.SignAccessToken(7, "user", jwtSecret)
	require.NoError(t, err)

	_, c := request(e, &http.Cookie{Name: "accessToken", Value: token})
	err = ts.AutoRefreshMiddlewareAdmin(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusForbidden, he.Code)
}

// A user whose role never resolved carries an empty role claim and is turned
// away from admin routes just like a plain user.
func TestAdminGateDeniesRolelessUser(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()

	token, err := auth.SignAccessToken(7, "", jwtSecret)
	require.NoError(t, err)

	_, c := request(e, &http.Cookie{Name: "accessToken", Value: token})
	err = ts.AutoRefreshMiddlewareAdmin(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestAdminGateAllowsAdmin(t *testing.T) {
	_, ts := newService(t)
	e := echo.New()

	token, err := auth.SignAccessToken(1, "admin", jwtSecret)
	require.NoError(t, err)

	rec, c := request(e, &http.Cookie{Name: "accessToken", Value: token})
	require.NoError(t, ts.AutoRefreshMiddlewareAdmin(okHandler)(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
