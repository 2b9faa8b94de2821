// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/favorites"
	"gorm.io/gorm"
)

// Seed rows are recognisable by this slug prefix so CleanupTestData can find them
const seedSlugPrefix = "dev-"

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	models := catalog.Models()
	models = append(models, cart.Models()...)
	models = append(models, favorites.Models()...)
	return models
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the hot read paths
func (m *Migration) CreateIndexes() error {
	m.logger.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_options_product_sort ON product_options(product_id, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_product_option_values_option_sort ON product_option_values(option_id, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_images_product_sort ON product_images(product_id, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_bundles_active_sort ON bundles(is_active, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_bundles_event_theme ON bundles(event_type_id, theme_style_id)",
		"CREATE INDEX IF NOT EXISTS idx_bundle_items_bundle_sort ON bundle_items(bundle_id, sort_order)",

		// Cart
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_created ON cart_items(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_cart_bundle_lines_user_created ON cart_bundle_lines(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_cart_bundle_line_items_line_sort ON cart_bundle_line_items(line_id, sort_order)",

		// Favorites
		"CREATE INDEX IF NOT EXISTS idx_favorite_items_user_created ON favorite_items(user_id, created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts a small development catalog
func (m *Migration) SeedInitialData() error {
	m.logger.Info("🌱 Seeding initial data...")

	products, err := m.seedProducts()
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedBundles(products); err != nil {
		return fmt.Errorf("failed to seed bundles: %w", err)
	}

	m.logger.Info("✅ Initial data seeded successfully")
	return nil
}

type seedVariant struct {
	sku   string
	color string
	size  string
	stock int
	price string
	badge string
}

type seedProduct struct {
	name       string
	slug       string
	price      string
	stock      int
	trackStock bool
	colors     map[string]string // value -> hex
	sizes      []string
	variants   []seedVariant
}

var devProducts = []seedProduct{
	{
		name: "Linen Party Dress", slug: seedSlugPrefix + "linen-party-dress", price: "89.90", stock: 40, trackStock: true,
		colors: map[string]string{"red": "#FF0000", "blue": "#0000FF"},
		sizes:  []string{"S", "M"},
		variants: []seedVariant{
			{sku: "DEV-DRESS-RED-S", color: "red", size: "S", stock: 5},
			{sku: "DEV-DRESS-RED-M", color: "red", size: "M", stock: 3},
			{sku: "DEV-DRESS-BLUE-M", color: "blue", size: "M", stock: 0, price: "79.90"},
			{sku: "DEV-DRESS-GOLD-S", color: "blue", size: "S", stock: 2, badge: "gold"},
		},
	},
	{name: "Paper Lantern Set", slug: seedSlugPrefix + "paper-lantern-set", price: "24.50", stock: 120, trackStock: true},
	{name: "Scented Candle", slug: seedSlugPrefix + "scented-candle", price: "12.00", stock: 0, trackStock: false},
}

// seedProducts creates products with option axes and variants, skipping slugs already present
func (m *Migration) seedProducts() (map[string]*catalog.Product, error) {
	m.logger.Info("🛍️ Seeding products...")

	out := make(map[string]*catalog.Product, len(devProducts))
	for _, sp := range devProducts {
		var existing catalog.Product
		err := m.db.Where("slug = ?", sp.slug).First(&existing).Error
		if err == nil {
			m.logger.Debugf("⏭️ Product already exists: %s", sp.name)
			out[sp.slug] = &existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		product := buildSeedProduct(sp)
		if err := m.db.Create(product).Error; err != nil {
			return nil, err
		}
		m.logger.Infof("✅ Created product: %s (%d variants)", product.Name, len(product.Variants))
		out[sp.slug] = product
	}
	return out, nil
}

func buildSeedProduct(sp seedProduct) *catalog.Product {
	product := &catalog.Product{
		ID:         uuid.NewString(),
		Name:       sp.name,
		Slug:       sp.slug,
		Price:      decimal.RequireFromString(sp.price),
		Stock:      sp.stock,
		TrackStock: sp.trackStock,
		IsActive:   true,
	}
	if len(sp.variants) == 0 {
		return product
	}

	color := catalog.ProductOption{ID: uuid.NewString(), ProductID: product.ID, Name: "color", SortOrder: 0}
	size := catalog.ProductOption{ID: uuid.NewString(), ProductID: product.ID, Name: "size", SortOrder: 1}

	colorValues := make(map[string]string)
	i := 0
	for _, name := range []string{"red", "blue"} {
		hex, ok := sp.colors[name]
		if !ok {
			continue
		}
		h := hex
		v := catalog.ProductOptionValue{ID: uuid.NewString(), OptionID: color.ID, Value: name, Label: name, ColorHex: &h, SortOrder: i}
		color.Values = append(color.Values, v)
		colorValues[name] = v.ID
		i++
	}
	sizeValues := make(map[string]string)
	for i, name := range sp.sizes {
		v := catalog.ProductOptionValue{ID: uuid.NewString(), OptionID: size.ID, Value: name, Label: name, SortOrder: i}
		size.Values = append(size.Values, v)
		sizeValues[name] = v.ID
	}
	product.Options = []catalog.ProductOption{color, size}

	for i, sv := range sp.variants {
		sku := sv.sku
		stock := sv.stock
		variant := catalog.ProductVariant{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			SKU:       &sku,
			Stock:     &stock,
			IsActive:  true,
			SortOrder: i,
			OptionValues: []catalog.VariantOptionValue{
				{OptionID: color.ID, ValueID: colorValues[sv.color], SortOrder: 0},
				{OptionID: size.ID, ValueID: sizeValues[sv.size], SortOrder: 1},
			},
		}
		if sv.price != "" {
			variant.Price = decimal.NewNullDecimal(decimal.RequireFromString(sv.price))
		}
		if sv.badge != "" {
			badge := sv.badge
			variant.BadgeColor = &badge
		}
		product.Variants = append(product.Variants, variant)
	}
	return product
}

// seedBundles creates one bundle out of the seeded products
func (m *Migration) seedBundles(products map[string]*catalog.Product) error {
	m.logger.Info("🎁 Seeding bundles...")

	slug := seedSlugPrefix + "garden-party-bundle"
	var count int64
	if err := m.db.Model(&catalog.Bundle{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.Debug("⏭️ Bundle already exists")
		return nil
	}

	lantern := products[seedSlugPrefix+"paper-lantern-set"]
	candle := products[seedSlugPrefix+"scented-candle"]
	if lantern == nil || candle == nil {
		return fmt.Errorf("bundle products were not seeded")
	}

	bundle := &catalog.Bundle{
		Name:         "Garden Party Bundle",
		Slug:         slug,
		Description:  "Lanterns and candles for an evening outdoors",
		EventTypeID:  "garden-party",
		ThemeStyleID: "rustic",
		BundlePrice:  decimal.NewNullDecimal(decimal.RequireFromString("55.00")),
		IsActive:     true,
		Items: []catalog.BundleItem{
			{ProductID: lantern.ID, Quantity: 1, SortOrder: 0},
			{ProductID: candle.ID, Quantity: 3, SortOrder: 1},
		},
	}
	if err := m.db.Create(bundle).Error; err != nil {
		return err
	}
	m.logger.Infof("✅ Created bundle: %s", bundle.Name)
	return nil
}

// DropAllTables drops every application table, children first. It backs
// DB_RESET_ON_START in development.
func (m *Migration) DropAllTables() error {
	m.logger.Warn("⚠️ Dropping all database tables...")

	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
		m.logger.Debugf("🗑️ Dropped table for %T", models[i])
	}

	m.logger.WithField("tables", len(models)).Info("✅ All tables dropped")
	return nil
}

// GetTableInfo logs row counts for every application table and returns them
func (m *Migration) GetTableInfo() (map[string]int64, error) {
	counts := make(map[string]int64)
	totalRecords := int64(0)

	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return nil, err
		}
		table := stmt.Schema.Table

		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
		totalRecords += count

		m.logger.WithFields(logrus.Fields{"table": table, "records": count}).Info("📊 Table info")
	}

	m.logger.Infof("📈 Total records across %d tables: %d", len(counts), totalRecords)
	return counts, nil
}

// CleanupTestData removes the seeded development catalog
func (m *Migration) CleanupTestData() error {
	m.logger.Info("🧹 Cleaning up test data...")

	return m.db.Transaction(func(tx *gorm.DB) error {
		var bundleIDs []string
		if err := tx.Model(&catalog.Bundle{}).Where("slug LIKE ?", seedSlugPrefix+"%").Pluck("id", &bundleIDs).Error; err != nil {
			return err
		}
		if len(bundleIDs) > 0 {
			if err := tx.Where("bundle_id IN ?", bundleIDs).Delete(&catalog.BundleItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", bundleIDs).Delete(&catalog.Bundle{}).Error; err != nil {
				return err
			}
		}
		m.logger.Infof("🗑️ Removed %d test bundles", len(bundleIDs))

		var ids []string
		if err := tx.Model(&catalog.Product{}).Where("slug LIKE ?", seedSlugPrefix+"%").Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		var variantIDs []string
		if err := tx.Model(&catalog.ProductVariant{}).Where("product_id IN ?", ids).Pluck("id", &variantIDs).Error; err != nil {
			return err
		}
		if len(variantIDs) > 0 {
			if err := tx.Where("variant_id IN ?", variantIDs).Delete(&catalog.VariantOptionValue{}).Error; err != nil {
				return err
			}
		}
		var optionIDs []string
		if err := tx.Model(&catalog.ProductOption{}).Where("product_id IN ?", ids).Pluck("id", &optionIDs).Error; err != nil {
			return err
		}
		if len(optionIDs) > 0 {
			if err := tx.Where("option_id IN ?", optionIDs).Delete(&catalog.ProductOptionValue{}).Error; err != nil {
				return err
			}
		}
		for _, model := range []interface{}{&catalog.ProductVariant{}, &catalog.ProductOption{}, &catalog.ProductImage{}} {
			if err := tx.Where("product_id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id IN ?", ids).Delete(&catalog.Product{})
		if result.Error != nil {
			return result.Error
		}
		m.logger.Infof("🗑️ Removed %d test products", result.RowsAffected)
		return nil
	})
}
