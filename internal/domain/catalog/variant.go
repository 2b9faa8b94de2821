package catalog

import (
	"context"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// Reader is the read side of the catalog used by the cart engine.
// Implementations return apperror.ErrProductNotFound, ErrVariantNotFound or
// ErrBundleNotFound for missing rows.
type Reader interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
	GetVariant(ctx context.Context, variantID string) (*ProductVariant, error)
	GetBundle(ctx context.Context, bundleID string) (*Bundle, error)
}

// Selection is a validated product, optionally narrowed to one variant
type Selection struct {
	Product *Product
	Variant *ProductVariant
}

// VariantMatcher validates product/variant references coming from clients
type VariantMatcher struct {
	catalog Reader
}

// NewVariantMatcher creates a new variant matcher
func NewVariantMatcher(catalog Reader) *VariantMatcher {
	return &VariantMatcher{catalog: catalog}
}

// ResolveVariant checks that variantID exists, belongs to productID and is purchasable
func (m *VariantMatcher) ResolveVariant(ctx context.Context, productID, variantID string) (*Selection, error) {
	variant, err := m.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	// Stale or spoofed client state can pair a variant with the wrong product
	if variant.ProductID != productID {
		return nil, apperror.ErrVariantProductMismatch.WithMessage(
			"variant %s does not belong to product %s", variantID, productID)
	}

	product, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperror.ErrProductInactive
	}
	if !variant.IsActive {
		return nil, apperror.ErrVariantInactive
	}

	return &Selection{Product: product, Variant: variant}, nil
}

// Resolve validates a product reference with an optional variant
func (m *VariantMatcher) Resolve(ctx context.Context, productID string, variantID *string) (*Selection, error) {
	if variantID != nil && *variantID != "" {
		return m.ResolveVariant(ctx, productID, *variantID)
	}

	product, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperror.ErrProductInactive
	}
	return &Selection{Product: product}, nil
}

// ValidateVariantOptions checks that selections cover exactly the product's
// option axes: one value per axis, no duplicates, nothing outside the product.
func ValidateVariantOptions(product *Product, selections []VariantOptionValue) error {
	if len(selections) != len(product.Options) {
		return apperror.ErrVariantOptionsInvalid.WithMessage(
			"variant selects %d option values but product %s defines %d axes",
			len(selections), product.ID, len(product.Options))
	}

	seen := make(map[string]bool, len(selections))
	for _, sel := range selections {
		if seen[sel.OptionID] {
			return apperror.ErrVariantOptionsInvalid.WithMessage("option %s selected more than once", sel.OptionID)
		}
		seen[sel.OptionID] = true

		opt, val := product.optionValue(sel.ValueID)
		if opt == nil || val == nil {
			return apperror.ErrVariantOptionsInvalid.WithMessage("option value %s is not defined on product %s", sel.ValueID, product.ID)
		}
		if opt.ID != sel.OptionID {
			return apperror.ErrVariantOptionsInvalid.WithMessage("option value %s does not belong to option %s", sel.ValueID, sel.OptionID)
		}
	}

	return nil
}
