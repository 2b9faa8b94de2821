// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product (or product variant) line in a user's cart.
// (UserID, ProductID, VariantKey) is unique; repeated adds collapse into it.
type CartItem struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"not null;size:64;index;uniqueIndex:idx_cart_items_key" json:"user_id"`
	ProductID  string    `gorm:"not null;size:36;uniqueIndex:idx_cart_items_key" json:"product_id"`
	VariantID  *string   `gorm:"size:36" json:"variant_id,omitempty"`
	VariantKey string    `gorm:"not null;size:36;uniqueIndex:idx_cart_items_key" json:"-"` // VariantID or "" so the key never holds NULL
	Quantity   int       `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CartBundleLine is a bundle in the cart. Items and Price are a snapshot
// taken when the line was first created and are never recomputed.
type CartBundleLine struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    string          `gorm:"not null;size:64;index;uniqueIndex:idx_cart_bundle_lines_key" json:"user_id"`
	BundleID  string          `gorm:"not null;size:36;uniqueIndex:idx_cart_bundle_lines_key" json:"bundle_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"` // per bundle unit
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Items []CartBundleLineItem `gorm:"foreignKey:LineID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartBundleLineItem is one frozen entry of a bundle line's snapshot
type CartBundleLineItem struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	LineID    string `gorm:"not null;size:36;index" json:"line_id"`
	ProductID string `gorm:"not null;size:36" json:"product_id"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	SortOrder int    `gorm:"not null" json:"sort_order"`
}

// TableName overrides
func (CartItem) TableName() string           { return "cart_items" }
func (CartBundleLine) TableName() string     { return "cart_bundle_lines" }
func (CartBundleLineItem) TableName() string { return "cart_bundle_line_items" }

// Models lists the cart tables for migrations
func Models() []interface{} {
	return []interface{}{&CartItem{}, &CartBundleLine{}, &CartBundleLineItem{}}
}

// variantKey maps an optional variant id onto the non-null key column
func variantKey(variantID *string) string {
	if variantID == nil {
		return ""
	}
	return *variantID
}

// normalizeVariantID treats an empty variant id as absent
func normalizeVariantID(variantID *string) *string {
	if variantID == nil || *variantID == "" {
		return nil
	}
	v := *variantID
	return &v
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount       int             `json:"item_count"`     // Number of product and bundle lines
	TotalQuantity   int             `json:"total_quantity"` // Badge count
	ItemsSubtotal   decimal.Decimal `json:"items_subtotal"`
	BundlesSubtotal decimal.Decimal `json:"bundles_subtotal"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}
