package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ovenfresh/bakeshop/internal/models"
)

var ErrValidation = errors.New("validation")

// Line is one cart entry as the storefront sees it: durable rows only hold
// (user_id, product_id, quantity), display data is joined from products on
// every fetch so the cart never carries stale prices.
type Line struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  uint    `json:"quantity"`
	ImageURL  string  `json:"image_url"`
}

// Repo is the durable cart, partitioned by user id. Every query is scoped to
// the owning user.
type Repo struct {
	DB *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Fetch(ctx context.Context, userID uint) ([]Line, error) {
	var lines []Line
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("cart_items.product_id, products.name, products.price AS unit_price, cart_items.quantity, products.image_url").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.product_id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Upsert sets the row's quantity outright. The conflict target is the
// composite (user_id, product_id) unique index, so a concurrent duplicate
// write resolves to last-quantity-wins.
func (r *Repo) Upsert(ctx context.Context, userID, productID, quantity uint) error {
	if productID == 0 {
		return ErrValidation
	}
	if quantity == 0 {
		return r.Delete(ctx, userID, productID)
	}
	item := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": quantity}),
	}).Create(&item).Error
}

func (r *Repo) Delete(ctx context.Context, userID, productID uint) error {
	if productID == 0 {
		return ErrValidation
	}
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *Repo) Clear(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
