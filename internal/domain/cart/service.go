// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog is what the cart needs from the catalog store
type Catalog interface {
	catalog.Reader
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
	GetVariantsByIDs(ctx context.Context, ids []string) (map[string]*catalog.ProductVariant, error)
	GetBundlesByIDs(ctx context.Context, ids []string) (map[string]*catalog.Bundle, error)
}

// Service handles cart business logic
type Service struct {
	db        *gorm.DB
	catalog   Catalog
	matcher   *catalog.VariantMatcher
	resolver  *catalog.BundleResolver
	publisher events.Publisher
	config    config.CartConfig
	logger    *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cat Catalog, publisher events.Publisher, cfg config.CartConfig, logger *logrus.Logger) *Service {
	if cfg.StockPolicy == "" {
		cfg.StockPolicy = config.StockPolicySoft
	}
	return &Service{
		db:        db,
		catalog:   cat,
		matcher:   catalog.NewVariantMatcher(cat),
		resolver:  catalog.NewBundleResolver(cat),
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	VariantID *string `json:"variant_id"`
	Quantity  int     `json:"quantity"`
}

// AddBundleRequest represents add bundle to cart request
type AddBundleRequest struct {
	BundleID string `json:"bundle_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// UpdateQuantityRequest sets an absolute quantity; zero or less removes the line
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ItemResult is the outcome of a product add or quantity change
type ItemResult struct {
	Item         *CartItem `json:"item,omitempty"`
	Removed      bool      `json:"removed,omitempty"`
	StockWarning bool      `json:"stock_warning"`
	Available    *int      `json:"available,omitempty"`
}

// BatchResult is the outcome of one entry of AddMany
type BatchResult struct {
	ProductID string      `json:"product_id"`
	VariantID *string     `json:"variant_id,omitempty"`
	Success   bool        `json:"success"`
	Result    *ItemResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
}

// AddProduct adds quantity units of a product (or variant) to the user's cart,
// collapsing into the existing line for the same (product, variant).
func (s *Service) AddProduct(ctx context.Context, userID, productID string, variantID *string, quantity int) (*ItemResult, error) {
	result, err := s.addProduct(ctx, userID, productID, variantID, quantity)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, userID)
	return result, nil
}

func (s *Service) addProduct(ctx context.Context, userID, productID string, variantID *string, quantity int) (*ItemResult, error) {
	variantID = normalizeVariantID(variantID)
	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"variant_id": variantKey(variantID),
		"quantity":   quantity,
	})
	log.Debug("Adding product to cart")

	if quantity < 1 {
		return nil, apperror.ErrInvalidQuantity
	}

	sel, err := s.matcher.Resolve(ctx, productID, variantID)
	if err != nil {
		log.WithError(err).Warn("Rejected cart add")
		return nil, err
	}

	result := &ItemResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		item := CartItem{
			ID:         uuid.NewString(),
			UserID:     userID,
			ProductID:  productID,
			VariantID:  variantID,
			VariantKey: variantKey(variantID),
			Quantity:   quantity,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		// Single statement increment so concurrent adds never lose an update
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "variant_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&item).Error
		if err != nil {
			return fmt.Errorf("failed to upsert cart item: %w", err)
		}

		var stored CartItem
		err = tx.Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, variantKey(variantID)).
			First(&stored).Error
		if err != nil {
			return fmt.Errorf("failed to reload cart item: %w", err)
		}

		warning, available, err := s.checkStock(sel, stored.Quantity)
		if err != nil {
			return err
		}

		result.Item = &stored
		result.StockWarning = warning
		result.Available = available
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) != "" {
			log.WithError(err).Warn("Rejected cart add")
		} else {
			log.WithError(err).Error("Failed to add product to cart")
		}
		return nil, err
	}

	return result, nil
}

// AddMany adds several products in order. Each entry succeeds or fails on its
// own; one change notification is emitted if anything was added.
func (s *Service) AddMany(ctx context.Context, userID string, reqs []AddToCartRequest) ([]BatchResult, error) {
	if s.config.MaxBatchAdd > 0 && len(reqs) > s.config.MaxBatchAdd {
		return nil, apperror.ErrBatchTooLarge.WithMessage("at most %d items can be added at once", s.config.MaxBatchAdd)
	}

	results := make([]BatchResult, 0, len(reqs))
	added := 0
	for _, req := range reqs {
		quantity := req.Quantity
		if quantity == 0 {
			quantity = 1
		}

		entry := BatchResult{ProductID: req.ProductID, VariantID: req.VariantID}
		res, err := s.addProduct(ctx, userID, req.ProductID, req.VariantID, quantity)
		if err != nil {
			entry.Error = err.Error()
			if appErr, ok := apperror.As(err); ok {
				entry.Code = appErr.Code
			}
		} else {
			entry.Success = true
			entry.Result = res
			added++
		}
		results = append(results, entry)
	}

	if added > 0 {
		s.notify(ctx, userID)
	}
	return results, nil
}

// AddBundle adds a bundle to the cart. A user holds at most one line per
// bundle: the first add snapshots the resolved items and price, later adds
// only increase the quantity.
func (s *Service) AddBundle(ctx context.Context, userID, bundleID string, quantity int) (*CartBundleLine, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"bundle_id": bundleID,
		"quantity":  quantity,
	})
	log.Debug("Adding bundle to cart")

	if quantity < 1 {
		return nil, apperror.ErrInvalidQuantity
	}

	resolved, err := s.resolver.Resolve(ctx, bundleID)
	if err != nil {
		log.WithError(err).Warn("Rejected bundle add")
		return nil, err
	}

	var line CartBundleLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		candidate := CartBundleLine{
			ID:        uuid.NewString(),
			UserID:    userID,
			BundleID:  bundleID,
			Quantity:  quantity,
			Price:     resolved.Price,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "bundle_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_bundle_lines.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&candidate).Error
		if err != nil {
			return fmt.Errorf("failed to upsert bundle line: %w", err)
		}

		if err := tx.Where("user_id = ? AND bundle_id = ?", userID, bundleID).First(&line).Error; err != nil {
			return fmt.Errorf("failed to reload bundle line: %w", err)
		}

		// The conflict branch keeps the existing id, so a matching id means this call inserted the line
		if line.ID == candidate.ID {
			items := make([]CartBundleLineItem, len(resolved.Items))
			for i, it := range resolved.Items {
				items[i] = CartBundleLineItem{
					ID:        uuid.NewString(),
					LineID:    line.ID,
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
					SortOrder: i,
				}
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to snapshot bundle items: %w", err)
			}
		}

		return tx.Where("line_id = ?", line.ID).Order("sort_order ASC").Find(&line.Items).Error
	})
	if err != nil {
		log.WithError(err).Error("Failed to add bundle to cart")
		return nil, err
	}

	s.notify(ctx, userID)
	return &line, nil
}

// RemoveItem deletes a cart item or a bundle line by id. Unknown ids are a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, id string) error {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&CartItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove cart item: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			removed = true
			return nil
		}

		n, err := deleteBundleLines(tx, "id = ? AND user_id = ?", id, userID)
		removed = n > 0
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to remove cart entry")
		return err
	}

	if removed {
		s.notify(ctx, userID)
	}
	return nil
}

// UpdateItemQuantity sets the quantity of a product line. Zero or less removes it.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, variantID *string, quantity int) (*ItemResult, error) {
	variantID = normalizeVariantID(variantID)
	key := variantKey(variantID)

	if quantity <= 0 {
		res := s.db.WithContext(ctx).
			Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, key).
			Delete(&CartItem{})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperror.ErrCartItemNotFound
		}
		s.notify(ctx, userID)
		return &ItemResult{Removed: true}, nil
	}

	var item CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, productID, key).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	sel := &catalog.Selection{}
	sel.Product, err = s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if variantID != nil {
		if sel.Variant, err = s.catalog.GetVariant(ctx, *variantID); err != nil {
			return nil, err
		}
	}

	warning, available, err := s.checkStock(sel, quantity)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("id = ? AND user_id = ?", item.ID, userID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.ErrCartItemNotFound
	}
	item.Quantity = quantity

	s.notify(ctx, userID)
	return &ItemResult{Item: &item, StockWarning: warning, Available: available}, nil
}

// UpdateBundleQuantity sets the quantity of a bundle line. Zero or less removes it.
// The snapshot is left untouched.
func (s *Service) UpdateBundleQuantity(ctx context.Context, userID, lineID string, quantity int) (*CartBundleLine, error) {
	if quantity <= 0 {
		var n int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			n, err = deleteBundleLines(tx, "id = ? AND user_id = ?", lineID, userID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperror.ErrCartItemNotFound
		}
		s.notify(ctx, userID)
		return nil, nil
	}

	res := s.db.WithContext(ctx).Model(&CartBundleLine{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update bundle line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.ErrCartItemNotFound
	}

	var line CartBundleLine
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Where("id = ?", lineID).
		First(&line).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reload bundle line: %w", err)
	}

	s.notify(ctx, userID)
	return &line, nil
}

// Clear removes every product and bundle line of the user
func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		_, err := deleteBundleLines(tx, "user_id = ?", userID)
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to clear cart")
		return err
	}

	s.notify(ctx, userID)
	return nil
}

// GetCount returns the badge count: product quantities plus bundle line
// quantities, a bundle counting once per unit regardless of its contents.
func (s *Service) GetCount(ctx context.Context, userID string) (int, error) {
	var items, bundles int64

	err := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&items).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&CartBundleLine{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&bundles).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count bundle lines: %w", err)
	}

	return int(items + bundles), nil
}

// checkStock applies the configured stock policy to a resulting line quantity
func (s *Service) checkStock(sel *catalog.Selection, quantity int) (bool, *int, error) {
	if s.config.StockPolicy == config.StockPolicyOff || sel == nil || sel.Product == nil || !sel.Product.TrackStock {
		return false, nil, nil
	}

	available := sel.Product.AvailableStock(sel.Variant)
	if quantity <= available {
		return false, nil, nil
	}

	if s.config.StockPolicy == config.StockPolicyHard {
		return false, nil, apperror.ErrOutOfStock.WithMessage(
			"only %d units of %s available", available, sel.Product.Name)
	}
	return true, &available, nil
}

func (s *Service) notify(ctx context.Context, userID string) {
	s.publisher.Publish(ctx, events.New(events.CartChanged, userID))
}

// deleteBundleLines removes matching lines together with their snapshot items
func deleteBundleLines(tx *gorm.DB, query string, args ...interface{}) (int64, error) {
	var ids []string
	if err := tx.Model(&CartBundleLine{}).Where(query, args...).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to find bundle lines: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := tx.Where("line_id IN ?", ids).Delete(&CartBundleLineItem{}).Error; err != nil {
		return 0, fmt.Errorf("failed to remove bundle line items: %w", err)
	}
	res := tx.Where("id IN ?", ids).Delete(&CartBundleLine{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to remove bundle lines: %w", res.Error)
	}
	return res.RowsAffected, nil
}
