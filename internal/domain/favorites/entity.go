package favorites

import (
	"time"
)

// FavoriteItem represents a favorited product or product variant.
// (UserID, ProductID, VariantKey) is unique.
type FavoriteItem struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"not null;size:64;index;uniqueIndex:idx_favorite_items_key" json:"user_id"`
	ProductID  string    `gorm:"not null;size:36;uniqueIndex:idx_favorite_items_key" json:"product_id"`
	VariantID  *string   `gorm:"size:36" json:"variant_id,omitempty"`
	VariantKey string    `gorm:"not null;size:36;uniqueIndex:idx_favorite_items_key" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the table name
func (FavoriteItem) TableName() string {
	return "favorite_items"
}

// Models lists the favorites tables for migrations
func Models() []interface{} {
	return []interface{}{&FavoriteItem{}}
}
