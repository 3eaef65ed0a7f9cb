package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/ovenfresh/bakeshop/internal/handlers"
	"github.com/ovenfresh/bakeshop/internal/middleware/csrf"
	"github.com/ovenfresh/bakeshop/internal/service/token"
)

type Deps struct {
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	CartHandler     *handlers.CartHandler
	OrderHandler    *handlers.OrderHandler
	ReviewHandler   *handlers.ReviewHandler
	SearchHandler   *handlers.SearchHandler
	ServiceHandler  *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	// Cookie-based sessions need double-submit CSRF on every mutating route.
	// Credential endpoints are exempt: they are guarded by the credentials
	// themselves and must work before any token cookie exists.
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{
			"/api/v1/register",
			"/api/v1/login",
			"/api/v1/refresh",
		},
	}))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/refresh", d.AuthHandler.Refresh)
	v1.GET("/search", d.SearchHandler.Search)
	v1.GET("/categories", d.CategoryHandler.GetCategories)

	admin := v1.Group("/admin", d.ServiceHandler.AutoRefreshMiddlewareAdmin)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/products/:id/image", d.ProductHandler.UploadImage)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)

	products := v1.Group("/products")

	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.GetReviews)
	products.POST("/:id/reviews", d.ReviewHandler.CreateReview, d.ServiceHandler.AutoRefreshMiddleware)
	products.DELETE("/:id/reviews/:review_id", d.ReviewHandler.DeleteReview, d.ServiceHandler.AutoRefreshMiddleware)

	cart := v1.Group("/cart", d.ServiceHandler.AutoRefreshMiddleware)

	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:product_id", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:product_id", d.CartHandler.DeleteFromCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	orders := v1.Group("/orders", d.ServiceHandler.AutoRefreshMiddleware)

	orders.POST("", d.OrderHandler.MakeOrder)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/payment-proof", d.OrderHandler.UploadPaymentProof)
}
