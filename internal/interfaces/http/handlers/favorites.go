// internal/interfaces/http/handlers/favorites.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/favorites"
)

// FavoritesHandler handles favorites endpoints
type FavoritesHandler struct {
	favoritesService *favorites.Service
}

// NewFavoritesHandler creates a new favorites handler
func NewFavoritesHandler(favoritesService *favorites.Service) *FavoritesHandler {
	return &FavoritesHandler{
		favoritesService: favoritesService,
	}
}

// GetFavorites handles GET /favorites
func (h *FavoritesHandler) GetFavorites(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// Parse query parameters
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	response, err := h.favoritesService.List(c.Request.Context(), userID, page, limit, c.Query("sort_by"), c.Query("sort_order"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Favorites retrieved successfully",
		"data":    response,
	})
}

// GetFavoritesCount handles GET /favorites/count
func (h *FavoritesHandler) GetFavoritesCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.favoritesService.GetCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"count": count},
	})
}

// ToggleFavorite handles POST /favorites/toggle
func (h *FavoritesHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req favorites.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.favoritesService.Toggle(c.Request.Context(), userID, req.ProductID, req.VariantID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Removed from favorites"
	if result.Favored {
		message = "Added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}

// CheckFavorite handles GET /favorites/check?product_id=&variant_id=
func (h *FavoritesHandler) CheckFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	productID := c.Query("product_id")
	if productID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "product_id is required",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	favored, err := h.favoritesService.IsFavorite(c.Request.Context(), userID, productID, optionalQuery(c, "variant_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"product_id": productID,
			"favored":    favored,
		},
	})
}
