package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/cart"
	"github.com/ovenfresh/bakeshop/internal/models"
)

var testJWTSecret = []byte("test-secret")

func accessCookie(t *testing.T, userID uint, role string) *http.Cookie {
	token, err := auth.SignAccessToken(userID, role, testJWTSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: token, Path: "/", Expires: time.Now().Add(time.Hour)}
}

func newCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{Repo: cart.NewRepo(db), JWTSecret: testJWTSecret}
}

type cartResponse struct {
	Items []cart.Line `json:"items"`
	Total float64     `json:"total"`
}

func TestGetCart(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	p := models.Product{Name: "sourdough", Description: "levain", Price: 6.50}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 3}).Error)

	rec, c := doJSONRequest(e, http.MethodGet, "/api/v1/cart", nil, accessCookie(t, 1, "user"))
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, p.ID, resp.Items[0].ProductID)
	require.Equal(t, uint(3), resp.Items[0].Quantity)
	require.InDelta(t, 3*6.50, resp.Total, 1e-9)
}

func TestGetCartRequiresAuth(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	_, c := doJSONRequest(e, http.MethodGet, "/api/v1/cart", nil)
	err := h.GetCart(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAddToCartIncrementsExisting(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	p := models.Product{Name: "focaccia", Description: "rosemary", Price: 4.00}
	require.NoError(t, db.Create(&p).Error)

	load := map[string]uint{"product_id": p.ID, "quantity": 2}

	rec, c := doJSONRequest(e, http.MethodPost, "/api/v1/cart", load, accessCookie(t, 1, "user"))
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = doJSONRequest(e, http.MethodPost, "/api/v1/cart", load, accessCookie(t, 1, "user"))
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, uint(4), resp.Items[0].Quantity)
}

func TestUpdateQuantityZeroDeletes(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	p := models.Product{Name: "brioche", Description: "butter", Price: 5.00}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 2}).Error)

	rec, c := doJSONRequest(e, http.MethodPatch, "/api/v1/cart/1", map[string]int{"quantity": 0}, accessCookie(t, 1, "user"))
	c.SetParamNames("product_id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestDeleteFromCartScopedToOwner(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	p := models.Product{Name: "challah", Description: "braided", Price: 7.00}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 2, ProductID: p.ID, Quantity: 5}).Error)

	rec, c := doJSONRequest(e, http.MethodDelete, "/api/v1/cart/1", nil, accessCookie(t, 1, "user"))
	c.SetParamNames("product_id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// The other user's row is untouched.
	var remaining []models.CartItem
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, uint(2), remaining[0].UserID)
}

func TestClearCart(t *testing.T) {
	db := initTestDB(t)
	h := newCartHandler(db)
	e := echo.New()

	p := models.Product{Name: "bagel", Description: "sesame", Price: 1.50}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 4}).Error)

	rec, c := doJSONRequest(e, http.MethodDelete, "/api/v1/cart", nil, accessCookie(t, 1, "user"))
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
	require.Zero(t, resp.Total)
}
