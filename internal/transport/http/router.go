package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/handlers"
	"github.com/useandsell/marketplace/internal/middleware/auth"
	"github.com/useandsell/marketplace/internal/models"
)

type Deps struct {
	DB           *gorm.DB
	JWTSecret    []byte
	AuthHandler  *handlers.AuthHandler
	UserHandler  *handlers.UserHandler
	ProductHandler *handlers.ProductHandler
	AdminHandler *handlers.AdminProductHandler
	StatsHandler *handlers.StatsHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	authGroup := e.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/logout", d.AuthHandler.Logout)

	users := e.Group("/users")
	users.GET("", d.UserHandler.GetUsers)
	users.POST("/register", d.UserHandler.Register)
	users.PATCH("/:id", d.UserHandler.UpdateActive)
	users.DELETE("/:id", d.UserHandler.Delete)

	// Product creation, update and deletion are anonymous-friendly: identity
	// is attached when a token is present, never required here.
	products := e.Group("/products", auth.Optional(d.JWTSecret))
	products.POST("", d.ProductHandler.CreateProduct)
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/me", d.ProductHandler.GetMyProducts, auth.Required(d.JWTSecret))
	products.GET("/cloudinary/config", d.ProductHandler.CloudinaryConfig)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.PUT("/:id", d.ProductHandler.UpdateProduct)
	products.PATCH("/:id", d.ProductHandler.UpdateProduct)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct)

	admin := e.Group("/admin/products", auth.RequireRoles(d.JWTSecret, models.RoleAdmin))
	admin.POST("", d.AdminHandler.CreateProduct)
	admin.GET("", d.AdminHandler.GetProducts)
	admin.GET("/:id", d.AdminHandler.GetProduct)
	admin.PUT("/:id", d.AdminHandler.UpdateProduct)
	admin.DELETE("/:id", d.AdminHandler.DeleteProduct)

	e.GET("/stats/users", d.StatsHandler.GetUserStats)
}
