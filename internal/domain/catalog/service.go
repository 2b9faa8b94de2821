package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/slug"
)

// Service handles catalog administration and storefront reads
type Service struct {
	repo     *Repository
	resolver *BundleResolver
	logger   *logrus.Logger
}

// NewService creates a new catalog service
func NewService(repo *Repository, logger *logrus.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: NewBundleResolver(repo),
		logger:   logger,
	}
}

// CreateBundleItemRequest is one entry of a bundle definition
type CreateBundleItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	SortOrder int    `json:"sort_order"`
}

// CreateBundleRequest represents an admin bundle creation request
type CreateBundleRequest struct {
	Name         string                    `json:"name" binding:"required,min=2,max=255"`
	Description  string                    `json:"description"`
	Image        string                    `json:"image"`
	EventTypeID  string                    `json:"event_type_id" binding:"required"`
	ThemeStyleID string                    `json:"theme_style_id" binding:"required"`
	CategoryID   *string                   `json:"category_id"`
	BundlePrice  *decimal.Decimal          `json:"bundle_price"`
	IsActive     *bool                     `json:"is_active"`
	SortOrder    int                       `json:"sort_order"`
	Items        []CreateBundleItemRequest `json:"items" binding:"required,dive"`
}

// VariantOptionSelection picks one value on one option axis
type VariantOptionSelection struct {
	OptionID string `json:"option_id" binding:"required"`
	ValueID  string `json:"value_id" binding:"required"`
}

// CreateVariantRequest represents an admin variant creation request
type CreateVariantRequest struct {
	SKU        *string                  `json:"sku"`
	Price      *decimal.Decimal         `json:"price"`
	Stock      *int                     `json:"stock" binding:"omitempty,min=0"`
	BadgeColor *string                  `json:"badge_color"`
	IsActive   *bool                    `json:"is_active"`
	SortOrder  int                      `json:"sort_order"`
	Options    []VariantOptionSelection `json:"options"`
}

// CreateBundle validates a definition and persists it under a unique slug
func (s *Service) CreateBundle(ctx context.Context, req *CreateBundleRequest) (*Bundle, error) {
	items := make([]BundleItem, len(req.Items))
	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		items[i] = BundleItem{ProductID: it.ProductID, Quantity: it.Quantity, SortOrder: it.SortOrder}
		ids[i] = it.ProductID
	}
	if err := ValidateBundleItems(items); err != nil {
		return nil, err
	}
	if req.BundlePrice != nil && req.BundlePrice.IsNegative() {
		return nil, apperror.ErrBundleMalformed.WithMessage("bundle price cannot be negative")
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, apperror.ErrBundleMalformed.WithMessage("bundle references missing product %s", id)
		}
	}

	bundle := &Bundle{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		EventTypeID:  req.EventTypeID,
		ThemeStyleID: req.ThemeStyleID,
		CategoryID:   req.CategoryID,
		IsActive:     true,
		SortOrder:    req.SortOrder,
		Items:        items,
	}
	if req.BundlePrice != nil {
		bundle.BundlePrice = decimal.NewNullDecimal(*req.BundlePrice)
	}
	if req.IsActive != nil {
		bundle.IsActive = *req.IsActive
	}

	// Another create can claim the slug between the lookup and the insert
	for attempt := 1; ; attempt++ {
		bundle.Slug, err = s.uniqueBundleSlug(ctx, req.Name)
		if err != nil {
			return nil, err
		}

		err = s.repo.CreateBundle(ctx, bundle)
		if err == nil {
			break
		}
		if errors.Is(err, apperror.ErrBundleSlugTaken) && attempt < maxSlugAttempts {
			s.logger.WithFields(logrus.Fields{"slug": bundle.Slug, "attempt": attempt}).Debug("Bundle slug taken, retrying")
			continue
		}
		s.logger.WithError(err).WithField("slug", bundle.Slug).Error("Failed to create bundle")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bundle_id": bundle.ID,
		"slug":      bundle.Slug,
		"items":     len(bundle.Items),
	}).Info("Bundle created")

	return bundle, nil
}

const maxSlugAttempts = 3

func (s *Service) uniqueBundleSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", apperror.ErrBundleMalformed.WithMessage("bundle name %q does not produce a usable slug", name)
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := s.repo.BundleSlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateVariant adds a variant to a product after checking its option selections
func (s *Service) CreateVariant(ctx context.Context, productID string, req *CreateVariantRequest) (*ProductVariant, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	selections := make([]VariantOptionValue, len(req.Options))
	for i, opt := range req.Options {
		selections[i] = VariantOptionValue{OptionID: opt.OptionID, ValueID: opt.ValueID, SortOrder: i}
	}
	if err := ValidateVariantOptions(product, selections); err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"error":      err.Error(),
		}).Warn("Rejected variant option selections")
		return nil, err
	}

	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperror.ErrVariantOptionsInvalid.WithMessage("variant price cannot be negative")
	}

	variant := &ProductVariant{
		ProductID:    productID,
		SKU:          req.SKU,
		Stock:        req.Stock,
		IsActive:     true,
		SortOrder:    req.SortOrder,
		OptionValues: selections,
	}
	if req.Price != nil {
		variant.Price = decimal.NewNullDecimal(*req.Price)
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}
	if req.BadgeColor != nil {
		if color, ok := NormalizeColor(*req.BadgeColor); ok {
			variant.BadgeColor = &color
		}
	}

	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Error("Failed to create variant")
		return nil, err
	}

	return variant, nil
}

// ProductPalette returns the merged swatch palette of a product
func (s *Service) ProductPalette(ctx context.Context, productID string) ([]string, error) {
	product, err := s.repo.GetProductWithVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product.Palette(), nil
}

// ListActiveBundles returns the active bundles matching filter
func (s *Service) ListActiveBundles(ctx context.Context, filter BundleFilter) ([]Bundle, error) {
	return s.repo.ListActiveBundles(ctx, filter)
}

// ResolveBundle expands and prices a bundle the way the cart would at add-time
func (s *Service) ResolveBundle(ctx context.Context, bundleID string) (*ResolvedBundle, error) {
	return s.resolver.Resolve(ctx, bundleID)
}
