package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ovenfresh/bakeshop/internal/cart"
	"github.com/ovenfresh/bakeshop/internal/events"
)

// CartHandler exposes the durable cart. Every row it touches belongs to the
// authenticated caller; responses always carry the freshly fetched lines so
// clients can treat each reply as the authoritative cart.
type CartHandler struct {
	Repo      *cart.Repo
	Producer  *events.Producer
	JWTSecret []byte
}

func (h *CartHandler) publish(c echo.Context, userID uint, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) respondCart(c echo.Context, userID uint) error {
	lines, err := h.Repo.Fetch(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var total float64
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": lines, "total": total})
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	h.publish(c, userID, map[string]any{
		"type":   "get_cart",
		"userID": userID,
	})

	return h.respondCart(c, userID)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	ctx := c.Request().Context()

	next := req.Quantity
	lines, err := h.Repo.Fetch(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, l := range lines {
		if l.ProductID == req.ProductID {
			next = l.Quantity + req.Quantity
			break
		}
	}

	if err := h.Repo.Upsert(ctx, userID, req.ProductID, next); err != nil {
		if errors.Is(err, cart.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "add_cart_items",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  next,
	})

	return h.respondCart(c, userID)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()

	// Zero or less means the line goes away entirely.
	if req.Quantity <= 0 {
		if err := h.Repo.Delete(ctx, userID, uint(productID)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if err := h.Repo.Upsert(ctx, userID, uint(productID), uint(req.Quantity)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "cart_quantity_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  req.Quantity,
	})

	return h.respondCart(c, userID)
}

func (h *CartHandler) DeleteFromCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if err := h.Repo.Delete(c.Request().Context(), userID, uint(productID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "cart_item_deleted",
		"userID":    userID,
		"productID": productID,
	})

	return h.respondCart(c, userID)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	if err := h.Repo.Clear(c.Request().Context(), userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	return h.respondCart(c, userID)
}
