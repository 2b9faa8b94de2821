package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// ItemView is a cart item joined with current catalog data
type ItemView struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	VariantID    *string         `json:"variant_id,omitempty"`
	Quantity     int             `json:"quantity"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Image        string          `json:"image,omitempty"`
	VariantLabel string          `json:"variant_label,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Available    bool            `json:"available"`
}

// BundleItemView is a snapshot item with navigation data from the live product
type BundleItemView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image,omitempty"`
}

// BundleLineView is a bundle line. Price and quantities come from the snapshot.
type BundleLineView struct {
	ID        string           `json:"id"`
	BundleID  string           `json:"bundle_id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Image     string           `json:"image,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Items     []BundleItemView `json:"items"`
}

// CartResponse represents a shopping cart with items, bundles and totals
type CartResponse struct {
	UserID  string           `json:"user_id"`
	Items   []ItemView       `json:"items"`
	Bundles []BundleLineView `json:"bundles"`
	Totals  CartTotals       `json:"totals"`
}

// ListCart returns the user's cart for display
func (s *Service) ListCart(ctx context.Context, userID string) (*CartResponse, error) {
	var items []CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cart items: %w", err)
	}

	var lines []CartBundleLine
	err = s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve bundle lines: %w", err)
	}

	productIDs, variantIDs, bundleIDs := collectIDs(items, lines)

	products, err := s.catalog.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	variants, err := s.catalog.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	bundles, err := s.catalog.GetBundlesByIDs(ctx, bundleIDs)
	if err != nil {
		return nil, err
	}

	resp := &CartResponse{
		UserID:  userID,
		Items:   make([]ItemView, 0, len(items)),
		Bundles: make([]BundleLineView, 0, len(lines)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, buildItemView(item, products, variants))
	}
	for _, line := range lines {
		resp.Bundles = append(resp.Bundles, buildBundleLineView(line, bundles, products))
	}
	resp.Totals = calculateTotals(resp)

	return resp, nil
}

func collectIDs(items []CartItem, lines []CartBundleLine) (productIDs, variantIDs, bundleIDs []string) {
	seen := make(map[*[]string]map[string]bool)
	add := func(dst *[]string, id string) {
		if seen[dst] == nil {
			seen[dst] = make(map[string]bool)
		}
		if id == "" || seen[dst][id] {
			return
		}
		seen[dst][id] = true
		*dst = append(*dst, id)
	}

	for _, item := range items {
		add(&productIDs, item.ProductID)
		if item.VariantID != nil {
			add(&variantIDs, *item.VariantID)
		}
	}
	for _, line := range lines {
		add(&bundleIDs, line.BundleID)
		for _, it := range line.Items {
			add(&productIDs, it.ProductID)
		}
	}
	return productIDs, variantIDs, bundleIDs
}

func buildItemView(item CartItem, products map[string]*catalog.Product, variants map[string]*catalog.ProductVariant) ItemView {
	view := ItemView{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		UnitPrice: decimal.Zero,
		Subtotal:  decimal.Zero,
	}

	product, ok := products[item.ProductID]
	if !ok {
		return view
	}

	var variant *catalog.ProductVariant
	if item.VariantID != nil {
		variant = variants[*item.VariantID]
	}

	view.Name = product.Name
	view.Slug = product.Slug
	view.VariantLabel = product.VariantLabel(variant)
	if img := product.ImageFor(variant); img != nil {
		view.Image = img.URL
	}
	view.UnitPrice = product.UnitPrice(variant)
	view.Subtotal = view.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	view.Available = product.IsActive && (item.VariantID == nil || (variant != nil && variant.IsActive))
	return view
}

func buildBundleLineView(line CartBundleLine, bundles map[string]*catalog.Bundle, products map[string]*catalog.Product) BundleLineView {
	view := BundleLineView{
		ID:        line.ID,
		BundleID:  line.BundleID,
		Quantity:  line.Quantity,
		UnitPrice: line.Price,
		Subtotal:  line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		Items:     make([]BundleItemView, 0, len(line.Items)),
	}

	if bundle, ok := bundles[line.BundleID]; ok {
		view.Name = bundle.Name
		view.Slug = bundle.Slug
		view.Image = bundle.Image
	}

	for _, it := range line.Items {
		item := BundleItemView{ProductID: it.ProductID, Quantity: it.Quantity}
		if product, ok := products[it.ProductID]; ok {
			item.Name = product.Name
			item.Slug = product.Slug
			if img := product.PrimaryImage(); img != nil {
				item.Image = img.URL
			}
		}
		view.Items = append(view.Items, item)
	}
	return view
}

func calculateTotals(resp *CartResponse) CartTotals {
	totals := CartTotals{
		ItemCount:       len(resp.Items) + len(resp.Bundles),
		ItemsSubtotal:   decimal.Zero,
		BundlesSubtotal: decimal.Zero,
	}

	for _, item := range resp.Items {
		totals.TotalQuantity += item.Quantity
		totals.ItemsSubtotal = totals.ItemsSubtotal.Add(item.Subtotal)
	}
	for _, line := range resp.Bundles {
		totals.TotalQuantity += line.Quantity
		totals.BundlesSubtotal = totals.BundlesSubtotal.Add(line.Subtotal)
	}

	totals.TotalAmount = totals.ItemsSubtotal.Add(totals.BundlesSubtotal)
	return totals
}
