package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Category{}, &models.RefreshToken{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{}, &models.Review{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newAuthService(db *gorm.DB) *auth.Service {
	return auth.NewService(db, []byte("test-secret"), []byte("test-refresh"), nil, nil)
}

func doJSONRequest(e *echo.Echo, method, target string, payload any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestRegister(t *testing.T) {
	db := initTestDB(t)
	h := AuthHandler{Auth: newAuthService(db)}
	e := echo.New()

	payload := map[string]string{"username": "test_user", "password": "password"}
	rec, c := doJSONRequest(e, http.MethodPost, "/register", payload)

	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "test_user", resp["username"])
	require.Equal(t, "user", resp["role"])

	_, cDup := doJSONRequest(e, http.MethodPost, "/register", payload)
	err := h.Register(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestLoginSetsCookies(t *testing.T) {
	db := initTestDB(t)
	svc := newAuthService(db)
	h := AuthHandler{Auth: svc}
	e := echo.New()

	_, err := svc.Register(context.Background(), "test_user", "password")
	require.NoError(t, err)

	rec, c := doJSONRequest(e, http.MethodPost, "/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = ck.Value != ""
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["is_admin"])
}

func TestLoginInvalidPassword(t *testing.T) {
	db := initTestDB(t)
	svc := newAuthService(db)
	h := AuthHandler{Auth: svc}
	e := echo.New()

	_, err := svc.Register(context.Background(), "test_user", "password")
	require.NoError(t, err)

	_, c := doJSONRequest(e, http.MethodPost, "/login", map[string]string{
		"username": "test_user",
		"password": "wrong",
	})
	err = h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	db := initTestDB(t)
	svc := newAuthService(db)
	h := AuthHandler{Auth: svc}
	e := echo.New()

	rec, c := doJSONRequest(e, http.MethodPost, "/logout", nil)
	require.NoError(t, h.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, ck := range rec.Result().Cookies() {
		require.Empty(t, ck.Value)
	}
}
