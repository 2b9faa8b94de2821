// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// BatchAddRequest is the body of POST /cart/items/batch
type BatchAddRequest struct {
	Items []cart.AddToCartRequest `json:"items" binding:"required,min=1,dive"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cartResponse, err := h.cartService.ListCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse,
	})
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.cartService.GetCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"count": count},
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.cartService.AddProduct(c.Request.Context(), userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Item added to cart successfully"
	if result.StockWarning {
		message = "Item added to cart; requested quantity exceeds available stock"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}

// AddManyToCart handles POST /cart/items/batch
func (h *CartHandler) AddManyToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req BatchAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	results, err := h.cartService.AddMany(c.Request.Context(), userID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	// 207 when only part of the batch went in
	status := http.StatusOK
	if succeeded < len(results) {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"message":   "Batch processed",
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"data":      results,
	})
}

// UpdateCartItem handles PUT /cart/items/:productId?variant_id=
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.cartService.UpdateItemQuantity(c.Request.Context(), userID, c.Param("productId"), optionalQuery(c, "variant_id"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Cart item updated successfully"
	if result.Removed {
		message = "Item removed from cart"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id. The id may be a cart item
// or a bundle line; unknown ids are accepted.
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
	})
}

// AddBundle handles POST /cart/bundles
func (h *CartHandler) AddBundle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req cart.AddBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := h.cartService.AddBundle(c.Request.Context(), userID, req.BundleID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle added to cart successfully",
		"data":    line,
	})
}

// UpdateBundle handles PUT /cart/bundles/:id
func (h *CartHandler) UpdateBundle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	line, err := h.cartService.UpdateBundleQuantity(c.Request.Context(), userID, c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	if line == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Bundle removed from cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle updated successfully",
		"data":    line,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}
