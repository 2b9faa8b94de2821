package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testdb"
)

func TestMigration_SeedIsIdempotent(t *testing.T) {
	db := testdb.New(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.SeedInitialData())

	counts, err := m.GetTableInfo()
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts["products"])
	assert.EqualValues(t, 4, counts["product_variants"])
	assert.EqualValues(t, 8, counts["variant_option_values"])
	assert.EqualValues(t, 1, counts["bundles"])
	assert.EqualValues(t, 2, counts["bundle_items"])
	assert.Zero(t, counts["cart_items"])
}

func TestMigration_SeededCatalogResolves(t *testing.T) {
	db := testdb.New(t)
	m := NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	repo := catalog.NewRepository(db)
	var bundle catalog.Bundle
	require.NoError(t, db.Where("slug = ?", seedSlugPrefix+"garden-party-bundle").First(&bundle).Error)

	resolved, err := catalog.NewBundleResolver(repo).Resolve(context.Background(), bundle.ID)
	require.NoError(t, err)
	assert.Equal(t, "55", resolved.Price.String())
	assert.Len(t, resolved.Items, 2)
}

func TestMigration_CleanupTestData(t *testing.T) {
	db := testdb.New(t)
	m := NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	require.NoError(t, m.CleanupTestData())

	counts, err := m.GetTableInfo()
	require.NoError(t, err)
	for table, n := range counts {
		assert.Zerof(t, n, "table %s", table)
	}
}

func TestMigration_DropAllTablesThenRemigrate(t *testing.T) {
	db := testdb.New(t)
	m := NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	require.NoError(t, m.DropAllTables())
	for _, model := range Models() {
		assert.Falsef(t, db.Migrator().HasTable(model), "%T still present", model)
	}

	require.NoError(t, m.RunAutoMigrations())
	counts, err := m.GetTableInfo()
	require.NoError(t, err)
	assert.Zero(t, counts["products"])
}

func TestDB_Health(t *testing.T) {
	db := testdb.New(t)
	conn := NewDB(db)
	require.NoError(t, conn.Health(context.Background()))

	require.NoError(t, conn.Close())
	assert.Error(t, conn.Health(context.Background()))
}
