package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// Bundle definitions hold between MinBundleItems and MaxBundleItems entries
const (
	MinBundleItems = 2
	MaxBundleItems = 3
)

// ResolvedItem is one frozen (product, quantity) pair of a resolved bundle
type ResolvedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ResolvedBundle is a bundle expanded at add-time
type ResolvedBundle struct {
	BundleID string          `json:"bundle_id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Items    []ResolvedItem  `json:"items"`
	Price    decimal.Decimal `json:"price"`
}

// BundleResolver expands bundle ids into validated, priced item lists
type BundleResolver struct {
	catalog Reader
}

// NewBundleResolver creates a new bundle resolver
func NewBundleResolver(catalog Reader) *BundleResolver {
	return &BundleResolver{catalog: catalog}
}

// Resolve loads a bundle, validates it is active and well formed, and prices it.
// The bundle's override price wins; otherwise the price is the sum of the
// current product unit prices times quantities.
func (r *BundleResolver) Resolve(ctx context.Context, bundleID string) (*ResolvedBundle, error) {
	bundle, err := r.catalog.GetBundle(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.IsActive {
		return nil, apperror.ErrBundleInactive
	}
	if err := ValidateBundleItems(bundle.Items); err != nil {
		return nil, err
	}

	items := make([]BundleItem, len(bundle.Items))
	copy(items, bundle.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })

	resolved := &ResolvedBundle{
		BundleID: bundle.ID,
		Name:     bundle.Name,
		Slug:     bundle.Slug,
		Items:    make([]ResolvedItem, 0, len(items)),
	}

	sum := decimal.Zero
	for _, item := range items {
		product, err := r.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperror.ErrProductNotFound) {
				return nil, apperror.ErrBundleMalformed.WithMessage(
					"bundle %s references missing product %s", bundle.ID, item.ProductID)
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, apperror.ErrBundleMalformed.WithMessage(
				"bundle %s references inactive product %s", bundle.ID, item.ProductID)
		}

		sum = sum.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		resolved.Items = append(resolved.Items, ResolvedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if bundle.BundlePrice.Valid {
		resolved.Price = bundle.BundlePrice.Decimal
	} else {
		resolved.Price = sum
	}

	return resolved, nil
}

// ValidateBundleItems enforces the bundle shape rules: 2-3 items, each with a
// product reference and a positive quantity.
func ValidateBundleItems(items []BundleItem) error {
	if len(items) < MinBundleItems || len(items) > MaxBundleItems {
		return apperror.ErrBundleMalformed.WithMessage(
			"bundle must contain between %d and %d items, got %d", MinBundleItems, MaxBundleItems, len(items))
	}
	for _, item := range items {
		if item.ProductID == "" {
			return apperror.ErrBundleMalformed.WithMessage("bundle item is missing a product")
		}
		if item.Quantity < 1 {
			return apperror.ErrBundleMalformed.WithMessage(
				"bundle item for product %s has quantity %d", item.ProductID, item.Quantity)
		}
	}
	return nil
}
