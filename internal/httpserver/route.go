package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
)

type Deps struct {
	Auth    *middleware.Auth
	Catalog *CatalogHTTP
	Cart    *CartHTTP
	Orders  *OrderHTTP
	Session *AuthHTTP
	Users   *UserHTTP
	Quotes  *QuoteHTTP

	// Ready reports whether the service can take traffic.
	Ready   func(ctx context.Context) error
	Metrics http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "message": "not ready"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	v1 := e.Group("/api/v1")
	authed, admin := d.Auth.RequireAuth, d.Auth.RequireAdmin

	auth := v1.Group("/auth")
	auth.POST("/register", d.Session.Register)
	auth.POST("/login", d.Session.Login)
	auth.POST("/refresh", d.Session.Refresh)
	auth.POST("/logout", d.Session.Logout)

	products := v1.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/featured", d.Catalog.FeaturedProducts)
	products.GET("/brand/:brandName", d.Catalog.ProductsByBrand)
	products.POST("/check-stock", d.Catalog.CheckStock)
	products.GET("/stats", d.Catalog.ProductStats, admin)
	products.GET("/admin/dashboard", d.Orders.Dashboard, admin)
	products.POST("", d.Catalog.CreateProduct, admin)
	products.GET("/:id", d.Catalog.GetProduct)
	products.PUT("/:id", d.Catalog.UpdateProduct, admin)
	products.DELETE("/:id", d.Catalog.DeleteProduct, admin)
	products.GET("/:id/related", d.Catalog.RelatedProducts)
	products.POST("/:id/quote", d.Quotes.RequestQuote, d.Auth.Optional)
	products.POST("/:id/rating", d.Catalog.AddRating, authed)
	products.PUT("/:id/rating", d.Catalog.UpdateRating, authed)
	products.DELETE("/:id/rating", d.Catalog.DeleteRating, authed)

	cart := v1.Group("/cart", authed)
	cart.POST("", d.Cart.AddToCart)
	cart.GET("", d.Cart.GetCart)
	cart.DELETE("/clear", d.Cart.ClearCart)
	cart.GET("/count", d.Cart.CartCount)
	cart.POST("/apply-coupon", d.Cart.ApplyCoupon)
	cart.GET("/all", d.Cart.AllCarts, admin)
	cart.PUT("/:id", d.Cart.UpdateCartItem)
	cart.DELETE("/:id", d.Cart.RemoveCartItem)
	cart.POST("/:id/move-to-wishlist", d.Cart.MoveToWishlist)

	orders := v1.Group("/orders", authed)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("", d.Orders.ListOrders, admin)
	orders.GET("/stats", d.Orders.OrderStats, admin)
	orders.GET("/user/:id", d.Orders.UserOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.PUT("/:id", d.Orders.UpdateOrder, admin)
	orders.PUT("/:id/cancel", d.Orders.CancelOrder)
	orders.DELETE("/:id", d.Orders.DeleteOrder, admin)

	users := v1.Group("/users", authed)
	users.GET("/me", d.Users.Me)
	users.DELETE("/me", d.Users.DeleteMe)
	users.POST("/me/addresses", d.Users.AddAddress)
	users.PUT("/me/addresses/:index/default", d.Users.SetDefaultAddress)
	users.GET("/me/wishlist", d.Cart.Wishlist)
	users.GET("", d.Users.ListUsers, admin)
	users.GET("/:id", d.Users.GetUser)

	v1.GET("/quotes", d.Quotes.ListQuotes, admin)
	v1.POST("/coupons", d.Cart.CreateCoupon, admin)
}
