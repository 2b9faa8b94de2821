package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Repository is the gorm-backed catalog store
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func preloadProductGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Options", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Preload("Options.Values", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") })
}

// GetProduct loads a product with its option axes and images
func (r *Repository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	err := preloadProductGraph(r.db.WithContext(ctx)).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProductNotFound.WithMessage("product %s not found", productID)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return &product, nil
}

// GetProductWithVariants loads a product including its variants and their selections
func (r *Repository) GetProductWithVariants(ctx context.Context, productID string) (*Product, error) {
	var product Product
	err := preloadProductGraph(r.db.WithContext(ctx)).
		Preload("Variants", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Preload("Variants.OptionValues", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProductNotFound.WithMessage("product %s not found", productID)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return &product, nil
}

// GetProductsByIDs loads display data for a set of products keyed by id.
// Missing ids are simply absent from the result.
func (r *Repository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*Product, error) {
	result := make(map[string]*Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []Product
	err := preloadProductGraph(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// GetVariant loads a variant with its option selections
func (r *Repository) GetVariant(ctx context.Context, variantID string) (*ProductVariant, error) {
	var variant ProductVariant
	err := r.db.WithContext(ctx).
		Preload("OptionValues", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("id = ?", variantID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrVariantNotFound.WithMessage("variant %s not found", variantID)
		}
		return nil, fmt.Errorf("failed to load variant %s: %w", variantID, err)
	}
	return &variant, nil
}

// GetVariantsByIDs loads variants keyed by id
func (r *Repository) GetVariantsByIDs(ctx context.Context, ids []string) (map[string]*ProductVariant, error) {
	result := make(map[string]*ProductVariant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var variants []ProductVariant
	err := r.db.WithContext(ctx).
		Preload("OptionValues", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("id IN ?", ids).
		Find(&variants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	for i := range variants {
		result[variants[i].ID] = &variants[i]
	}
	return result, nil
}

// GetBundle loads a bundle with its definition items
func (r *Repository) GetBundle(ctx context.Context, bundleID string) (*Bundle, error) {
	var bundle Bundle
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("id = ?", bundleID).
		First(&bundle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrBundleNotFound.WithMessage("bundle %s not found", bundleID)
		}
		return nil, fmt.Errorf("failed to load bundle %s: %w", bundleID, err)
	}
	return &bundle, nil
}

// GetBundlesByIDs loads bundle headers (without items) keyed by id
func (r *Repository) GetBundlesByIDs(ctx context.Context, ids []string) (map[string]*Bundle, error) {
	result := make(map[string]*Bundle, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var bundles []Bundle
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&bundles).Error; err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}

	for i := range bundles {
		result[bundles[i].ID] = &bundles[i]
	}
	return result, nil
}

// BundleFilter narrows ListActiveBundles
type BundleFilter struct {
	EventTypeID  string
	ThemeStyleID string
	CategoryID   string
}

// ListActiveBundles returns active bundles ordered for display
func (r *Repository) ListActiveBundles(ctx context.Context, filter BundleFilter) ([]Bundle, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("is_active = ?", true)

	if filter.EventTypeID != "" {
		query = query.Where("event_type_id = ?", filter.EventTypeID)
	}
	if filter.ThemeStyleID != "" {
		query = query.Where("theme_style_id = ?", filter.ThemeStyleID)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}

	var bundles []Bundle
	if err := query.Order("sort_order ASC").Order("name ASC").Find(&bundles).Error; err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	return bundles, nil
}

// BundleSlugExists reports whether a bundle already uses slug
func (r *Repository) BundleSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Bundle{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check bundle slug: %w", err)
	}
	return count > 0, nil
}

// CreateProduct persists a product and its nested options/images
func (r *Repository) CreateProduct(ctx context.Context, product *Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CreateVariant persists a variant and its option selections
func (r *Repository) CreateVariant(ctx context.Context, variant *ProductVariant) error {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

// CreateBundle persists a bundle and its definition items
// CreateBundle persists a bundle with its items. A slug collision is
// reported as ErrBundleSlugTaken.
func (r *Repository) CreateBundle(ctx context.Context, bundle *Bundle) error {
	if err := r.db.WithContext(ctx).Create(bundle).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.ErrBundleSlugTaken.WithMessage("bundle slug %q is already taken", bundle.Slug)
		}
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	return nil
}

var _ Reader = (*Repository)(nil)
