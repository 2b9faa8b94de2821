// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/domain/favorites"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Dependencies carries what the route groups need to build their handlers
type Dependencies struct {
	Config *config.Config
	DB     *gorm.DB
	Bus    *events.Bus
	Logger *logrus.Logger
}

// SetupRoutes wires every /api/v1 route group
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	repo := catalog.NewRepository(deps.DB)
	catalogService := catalog.NewService(repo, deps.Logger)
	cartService := cart.NewService(deps.DB, repo, deps.Bus, deps.Config.Cart, deps.Logger)
	favoritesService := favorites.NewService(deps.DB, repo, deps.Bus, deps.Logger)

	authMiddleware := middleware.AuthMiddleware(auth.NewJWTManager(deps.Config))

	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesService)
	streamHandler := handlers.NewStreamHandler(deps.Bus, cartService, favoritesService, deps.Config, deps.Logger)

	SetupCatalogRoutes(rg, catalogHandler)
	SetupCartRoutes(rg, authMiddleware, cartHandler, streamHandler)
	SetupFavoritesRoutes(rg, authMiddleware, favoritesHandler)
	SetupAdminRoutes(rg, authMiddleware, catalogHandler)
}

// SetupCatalogRoutes sets up the public catalog routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h *handlers.CatalogHandler) {
	products := rg.Group("/products")
	{
		products.GET("/:id/palette", h.GetProductPalette)
	}

	bundles := rg.Group("/bundles")
	{
		bundles.GET("", h.ListBundles)
		bundles.GET("/:id/resolve", h.ResolveBundle)
	}
}

// SetupCartRoutes sets up cart routes. All of them require authentication.
func SetupCartRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc, h *handlers.CartHandler, stream *handlers.StreamHandler) {
	cart := rg.Group("/cart")
	cart.Use(authMiddleware)
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.GET("/count", h.GetCartCount)
		cart.GET("/stream", stream.Stream)

		cart.POST("/items", h.AddToCart)
		cart.POST("/items/batch", h.AddManyToCart)
		cart.PUT("/items/:productId", h.UpdateCartItem)
		cart.DELETE("/items/:id", h.RemoveFromCart)

		cart.POST("/bundles", h.AddBundle)
		cart.PUT("/bundles/:id", h.UpdateBundle)
	}
}

// SetupFavoritesRoutes sets up favorites routes
func SetupFavoritesRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc, h *handlers.FavoritesHandler) {
	favorites := rg.Group("/favorites")
	favorites.Use(authMiddleware)
	{
		favorites.GET("", h.GetFavorites)
		favorites.GET("/count", h.GetFavoritesCount)
		favorites.GET("/check", h.CheckFavorite)
		favorites.POST("/toggle", h.ToggleFavorite)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc, h *handlers.CatalogHandler) {
	admin := rg.Group("/admin")
	admin.Use(authMiddleware)               // Require authentication
	admin.Use(middleware.AdminMiddleware()) // Require admin privileges
	{
		admin.POST("/bundles", h.CreateBundle)
		admin.POST("/products/:id/variants", h.CreateVariant)
	}
}
