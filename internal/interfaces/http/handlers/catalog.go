// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

// CatalogHandler exposes palette and bundle endpoints plus the admin writes
type CatalogHandler struct {
	catalogService *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GetProductPalette handles GET /products/:id/palette
func (h *CatalogHandler) GetProductPalette(c *gin.Context) {
	productID := c.Param("id")

	palette, err := h.catalogService.ProductPalette(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"product_id": productID,
			"colors":     palette,
		},
	})
}

// ListBundles handles GET /bundles?event_type_id=&theme_style_id=&category_id=
func (h *CatalogHandler) ListBundles(c *gin.Context) {
	filter := catalog.BundleFilter{
		EventTypeID:  c.Query("event_type_id"),
		ThemeStyleID: c.Query("theme_style_id"),
		CategoryID:   c.Query("category_id"),
	}

	bundles, err := h.catalogService.ListActiveBundles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundles retrieved successfully",
		"data":    bundles,
		"count":   len(bundles),
	})
}

// ResolveBundle handles GET /bundles/:id/resolve
func (h *CatalogHandler) ResolveBundle(c *gin.Context) {
	resolved, err := h.catalogService.ResolveBundle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resolved,
	})
}

// CreateBundle handles POST /admin/bundles
func (h *CatalogHandler) CreateBundle(c *gin.Context) {
	var req catalog.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bundle, err := h.catalogService.CreateBundle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bundle created successfully",
		"data":    bundle,
	})
}

// CreateVariant handles POST /admin/products/:id/variants
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	var req catalog.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := h.catalogService.CreateVariant(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Variant created successfully",
		"data":    variant,
	})
}
