// internal/domain/catalog/entity.go
package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable catalog product
type Product struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
	TrackStock  bool            `gorm:"not null" json:"track_stock"`
	IsActive    bool            `gorm:"not null;index" json:"is_active"`
	CategoryID  *string         `gorm:"size:36;index" json:"category_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relationships
	Options  []ProductOption  `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"options,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductOption is one option axis of a product, e.g. "color" or "size"
type ProductOption struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProductID string `gorm:"not null;size:36;index" json:"product_id"`
	Name      string `gorm:"not null;size:100" json:"name"`
	SortOrder int    `gorm:"not null" json:"sort_order"`

	Values []ProductOptionValue `gorm:"foreignKey:OptionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"values,omitempty"`
}

// ProductOptionValue is a selectable value on an option axis
type ProductOptionValue struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	OptionID  string  `gorm:"not null;size:36;index" json:"option_id"`
	Value     string  `gorm:"not null;size:100" json:"value"`
	Label     string  `gorm:"size:255" json:"label"`
	ColorHex  *string `gorm:"size:16" json:"color_hex,omitempty"`
	SortOrder int     `gorm:"not null" json:"sort_order"`
}

// ProductImage represents product images. VariantID narrows an image to one variant.
type ProductImage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID string    `gorm:"not null;size:36;index" json:"product_id"`
	VariantID *string   `gorm:"size:36;index" json:"variant_id,omitempty"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"not null" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductVariant is one purchasable option combination of a product
type ProductVariant struct {
	ID         string              `gorm:"primaryKey;size:36" json:"id"`
	ProductID  string              `gorm:"not null;size:36;index" json:"product_id"`
	SKU        *string             `gorm:"size:100;uniqueIndex" json:"sku,omitempty"`
	Price      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"` // overrides product price when valid
	Stock      *int                `json:"stock,omitempty"`                 // overrides product stock when set
	BadgeColor *string             `gorm:"size:16" json:"badge_color,omitempty"`
	IsActive   bool                `gorm:"not null" json:"is_active"`
	SortOrder  int                 `gorm:"not null" json:"sort_order"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`

	OptionValues []VariantOptionValue `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"option_values,omitempty"`
}

// VariantOptionValue records which value a variant selects on one axis
type VariantOptionValue struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	VariantID string `gorm:"not null;size:36;uniqueIndex:idx_variant_option_axis" json:"variant_id"`
	OptionID  string `gorm:"not null;size:36;uniqueIndex:idx_variant_option_axis" json:"option_id"`
	ValueID   string `gorm:"not null;size:36" json:"value_id"`
	SortOrder int    `gorm:"not null" json:"sort_order"`
}

// Bundle is a curated group of 2-3 products sold as one unit
type Bundle struct {
	ID           string              `gorm:"primaryKey;size:36" json:"id"`
	Name         string              `gorm:"not null;size:255" json:"name"`
	Slug         string              `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description  string              `gorm:"type:text" json:"description"`
	Image        string              `gorm:"size:500" json:"image"`
	EventTypeID  string              `gorm:"not null;size:36;index" json:"event_type_id"`
	ThemeStyleID string              `gorm:"not null;size:36;index" json:"theme_style_id"`
	CategoryID   *string             `gorm:"size:36;index" json:"category_id,omitempty"`
	BundlePrice  decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"bundle_price"`
	IsActive     bool                `gorm:"not null;index" json:"is_active"`
	SortOrder    int                 `gorm:"not null" json:"sort_order"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	Items []BundleItem `gorm:"foreignKey:BundleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// BundleItem is one entry in a bundle definition
type BundleItem struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	BundleID  string `gorm:"not null;size:36;index" json:"bundle_id"`
	ProductID string `gorm:"not null;size:36;index" json:"product_id"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	SortOrder int    `gorm:"not null" json:"sort_order"`
}

// TableName overrides
func (Product) TableName() string            { return "products" }
func (ProductOption) TableName() string      { return "product_options" }
func (ProductOptionValue) TableName() string { return "product_option_values" }
func (ProductImage) TableName() string       { return "product_images" }
func (ProductVariant) TableName() string     { return "product_variants" }
func (VariantOptionValue) TableName() string { return "variant_option_values" }
func (Bundle) TableName() string             { return "bundles" }
func (BundleItem) TableName() string         { return "bundle_items" }

// Business methods for Product

// UnitPrice returns the price of the product, or the variant's override when it has one
func (p *Product) UnitPrice(v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price.Valid {
		return v.Price.Decimal
	}
	return p.Price
}

// AvailableStock returns the stock that applies to a product/variant pair
func (p *Product) AvailableStock(v *ProductVariant) int {
	if v != nil && v.Stock != nil {
		return *v.Stock
	}
	return p.Stock
}

// PrimaryImage returns the first product-level image by sort order, if any
func (p *Product) PrimaryImage() *ProductImage {
	var primary *ProductImage
	for i := range p.Images {
		img := &p.Images[i]
		if img.VariantID != nil {
			continue
		}
		if primary == nil || img.SortOrder < primary.SortOrder {
			primary = img
		}
	}
	return primary
}

// ImageFor returns the first image of the variant, falling back to the product's primary image
func (p *Product) ImageFor(v *ProductVariant) *ProductImage {
	if v != nil {
		var match *ProductImage
		for i := range p.Images {
			img := &p.Images[i]
			if img.VariantID != nil && *img.VariantID == v.ID {
				if match == nil || img.SortOrder < match.SortOrder {
					match = img
				}
			}
		}
		if match != nil {
			return match
		}
	}
	return p.PrimaryImage()
}

// optionValue looks up an option value by id across all axes
func (p *Product) optionValue(valueID string) (*ProductOption, *ProductOptionValue) {
	for i := range p.Options {
		opt := &p.Options[i]
		for j := range opt.Values {
			if opt.Values[j].ID == valueID {
				return opt, &opt.Values[j]
			}
		}
	}
	return nil, nil
}

// VariantLabel renders the variant's selections as "Red / M"
func (p *Product) VariantLabel(v *ProductVariant) string {
	if v == nil || len(v.OptionValues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v.OptionValues))
	for _, sel := range v.OptionValues {
		text := sel.ValueID
		if _, val := p.optionValue(sel.ValueID); val != nil {
			text = val.Label
			if text == "" {
				text = val.Value
			}
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " / ")
}

// ID assignment hooks

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (p *Product) BeforeCreate(tx *gorm.DB) error            { newID(&p.ID); return nil }
func (o *ProductOption) BeforeCreate(tx *gorm.DB) error      { newID(&o.ID); return nil }
func (v *ProductOptionValue) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
func (i *ProductImage) BeforeCreate(tx *gorm.DB) error       { newID(&i.ID); return nil }
func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error     { newID(&v.ID); return nil }
func (v *VariantOptionValue) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
func (b *Bundle) BeforeCreate(tx *gorm.DB) error             { newID(&b.ID); return nil }
func (i *BundleItem) BeforeCreate(tx *gorm.DB) error         { newID(&i.ID); return nil }

// Models lists the catalog tables for migrations
func Models() []interface{} {
	return []interface{}{
		&Product{},
		&ProductOption{},
		&ProductOptionValue{},
		&ProductImage{},
		&ProductVariant{},
		&VariantOptionValue{},
		&Bundle{},
		&BundleItem{},
	}
}
