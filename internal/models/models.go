package models

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `gorm:"not null"                 json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	CategoryID  uint    `gorm:"index"                    json:"category_id"`
	ImageURL    string  `json:"image_url"`
	Count       uint    `json:"count"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	JTI       string `gorm:"index"           json:"jti"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// CartItem is one durable cart row. The composite unique index is the
// conflict target for upserts, so a user holds at most one row per product.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                                 json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"                 json:"quantity"`
}

type Order struct {
	ID              uint    `gorm:"primaryKey"     json:"id"`
	UserID          uint    `gorm:"index;not null" json:"user_id"`
	Total           float64 `json:"total"`
	Status          string  `json:"status"`
	PaymentProofURL string  `json:"payment_proof_url"`
	CreatedAt       int64   `json:"created_at"`
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey"     json:"id"`
	OrderID   uint `gorm:"index;not null" json:"order_id"`
	UserID    uint `gorm:"index;not null" json:"user_id"`
	ProductID uint `gorm:"not null"       json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type Review struct {
	ID        uint   `gorm:"primaryKey"                             json:"id"`
	UserID    uint   `gorm:"index;not null"                         json:"user_id"`
	ProductID uint   `gorm:"index;not null"                         json:"product_id"`
	Rating    uint   `gorm:"not null;check:rating>=1 AND rating<=5" json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt int64  `json:"created_at"`
}
