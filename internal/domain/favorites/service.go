package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog is what favorites need from the catalog store
type Catalog interface {
	catalog.Reader
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
	GetVariantsByIDs(ctx context.Context, ids []string) (map[string]*catalog.ProductVariant, error)
}

// Service handles favorites business logic
type Service struct {
	db        *gorm.DB
	catalog   Catalog
	matcher   *catalog.VariantMatcher
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewService creates a new favorites service
func NewService(db *gorm.DB, cat Catalog, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		catalog:   cat,
		matcher:   catalog.NewVariantMatcher(cat),
		publisher: publisher,
		logger:    logger,
	}
}

// ToggleRequest represents a favorite toggle request
type ToggleRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	VariantID *string `json:"variant_id"`
}

// ToggleResult reports the state after a toggle
type ToggleResult struct {
	Favored bool `json:"favored"`
}

// FavoriteItemResponse represents a favorite with product details
type FavoriteItemResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	VariantID    *string         `json:"variant_id,omitempty"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Image        string          `json:"image,omitempty"`
	VariantLabel string          `json:"variant_label,omitempty"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	IsAvailable  bool            `json:"is_available"`
	AddedAt      time.Time       `json:"added_at"`
}

// FavoritesResponse represents favorites with pagination
type FavoritesResponse struct {
	Items      []FavoriteItemResponse `json:"items"`
	Count      int                    `json:"count"`
	Pagination Pagination             `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Toggle flips the favorite state of (product, variant) for the user.
// Delete and insert are each guarded by the unique key; when the insert
// loses a race it is retried once as a delete.
func (s *Service) Toggle(ctx context.Context, userID, productID string, variantID *string) (*ToggleResult, error) {
	variantID = normalizeVariantID(variantID)
	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"variant_id": variantKey(variantID),
	})
	log.Debug("Toggling favorite")

	// Removal never consults the catalog; deactivated products stay removable
	removed, err := s.deleteByKey(ctx, userID, productID, variantID)
	if err != nil {
		return nil, err
	}
	if removed {
		s.notify(ctx, userID)
		return &ToggleResult{Favored: false}, nil
	}

	if _, err := s.matcher.Resolve(ctx, productID, variantID); err != nil {
		log.WithError(err).Warn("Rejected favorite toggle")
		return nil, err
	}

	item := FavoriteItem{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProductID:  productID,
		VariantID:  variantID,
		VariantKey: variantKey(variantID),
		CreatedAt:  time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&item)
	if res.Error != nil {
		log.WithError(res.Error).Error("Failed to add favorite")
		return nil, fmt.Errorf("failed to add favorite: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		s.notify(ctx, userID)
		return &ToggleResult{Favored: true}, nil
	}

	// A concurrent toggle created the row first; this call becomes the removal
	removed, err = s.deleteByKey(ctx, userID, productID, variantID)
	if err != nil {
		return nil, err
	}
	if removed {
		s.notify(ctx, userID)
		return &ToggleResult{Favored: false}, nil
	}

	log.Warn("Favorite toggle lost the race twice")
	return nil, apperror.ErrFavoriteConflict
}

// IsFavorite reports whether the user has favorited (product, variant)
func (s *Service) IsFavorite(ctx context.Context, userID, productID string, variantID *string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FavoriteItem{}).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, variantKey(normalizeVariantID(variantID))).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}

// GetCount returns the number of favorites of the user
func (s *Service) GetCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FavoriteItem{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites: %w", err)
	}
	return count, nil
}

// List retrieves favorites for a user with pagination, newest first by default
func (s *Service) List(ctx context.Context, userID string, page, limit int, sortBy, sortOrder string) (*FavoritesResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&FavoriteItem{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}

	var items []FavoriteItem
	err := query.Order(buildOrderClause(sortBy, sortOrder)).Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve favorites: %w", err)
	}

	responses, err := s.loadProductDetails(ctx, items)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &FavoritesResponse{
		Items: responses,
		Count: len(responses),
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      int(total),
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

func (s *Service) deleteByKey(ctx context.Context, userID, productID string, variantID *string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, variantKey(variantID)).
		Delete(&FavoriteItem{})
	if res.Error != nil {
		s.logger.WithError(res.Error).WithField("user_id", userID).Error("Failed to remove favorite")
		return false, fmt.Errorf("failed to remove favorite: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) loadProductDetails(ctx context.Context, items []FavoriteItem) ([]FavoriteItemResponse, error) {
	productIDs := make([]string, 0, len(items))
	variantIDs := make([]string, 0)
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
		if item.VariantID != nil {
			variantIDs = append(variantIDs, *item.VariantID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	variants, err := s.catalog.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]FavoriteItemResponse, len(items))
	for i, item := range items {
		resp := FavoriteItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			AddedAt:      item.CreatedAt,
			CurrentPrice: decimal.Zero,
		}

		if product, ok := products[item.ProductID]; ok {
			var variant *catalog.ProductVariant
			if item.VariantID != nil {
				variant = variants[*item.VariantID]
			}
			resp.Name = product.Name
			resp.Slug = product.Slug
			resp.VariantLabel = product.VariantLabel(variant)
			resp.CurrentPrice = product.UnitPrice(variant)
			if img := product.ImageFor(variant); img != nil {
				resp.Image = img.URL
			}
			resp.IsAvailable = product.IsActive && (item.VariantID == nil || (variant != nil && variant.IsActive))
		}
		responses[i] = resp
	}
	return responses, nil
}

func (s *Service) notify(ctx context.Context, userID string) {
	s.publisher.Publish(ctx, events.New(events.FavoritesChanged, userID))
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"product_id": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

func variantKey(variantID *string) string {
	if variantID == nil {
		return ""
	}
	return *variantID
}

func normalizeVariantID(variantID *string) *string {
	if variantID == nil || *variantID == "" {
		return nil
	}
	v := *variantID
	return &v
}
