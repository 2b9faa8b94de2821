package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testdb"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *Repository) {
	db := testdb.New(t, Models()...)
	repo := NewRepository(db)
	return NewService(repo, logger.Discard()), repo
}

func seedShirt(t *testing.T, repo *Repository) *Product {
	product := &Product{
		Name:     "Party Shirt",
		Slug:     "party-shirt",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    10,
		IsActive: true,
		Options: []ProductOption{
			{Name: "color", SortOrder: 0, Values: []ProductOptionValue{
				{Value: "red", Label: "Red", ColorHex: strPtr("#f00"), SortOrder: 0},
				{Value: "blue", Label: "Blue", ColorHex: strPtr("#00F"), SortOrder: 1},
			}},
			{Name: "size", SortOrder: 1, Values: []ProductOptionValue{
				{Value: "M", SortOrder: 0},
			}},
		},
	}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

func seedSimple(t *testing.T, repo *Repository, slug, price string) *Product {
	product := &Product{Name: slug, Slug: slug, Price: decimal.RequireFromString(price), IsActive: true}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

func TestRepository_ProductGraph(t *testing.T) {
	_, repo := setupService(t)
	shirt := seedShirt(t, repo)

	loaded, err := repo.GetProduct(context.Background(), shirt.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Options, 2)
	assert.Equal(t, "color", loaded.Options[0].Name)
	require.Len(t, loaded.Options[0].Values, 2)
	assert.Equal(t, "red", loaded.Options[0].Values[0].Value)
	assert.True(t, decimal.RequireFromString("25").Equal(loaded.Price))

	_, err = repo.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
	_, err = repo.GetVariant(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrVariantNotFound)
	_, err = repo.GetBundle(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrBundleNotFound)
}

func TestService_CreateVariant(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService(t)
	shirt := seedShirt(t, repo)
	color, size := shirt.Options[0], shirt.Options[1]

	price := decimal.RequireFromString("27.50")
	variant, err := svc.CreateVariant(ctx, shirt.ID, &CreateVariantRequest{
		Price:      &price,
		BadgeColor: strPtr("#abc"),
		Options: []VariantOptionSelection{
			{OptionID: color.ID, ValueID: color.Values[1].ID},
			{OptionID: size.ID, ValueID: size.Values[0].ID},
		},
	})
	require.NoError(t, err)
	assert.True(t, variant.IsActive)
	require.NotNil(t, variant.BadgeColor)
	assert.Equal(t, "#AABBCC", *variant.BadgeColor)

	loaded, err := repo.GetVariant(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, shirt.ID, loaded.ProductID)
	assert.Len(t, loaded.OptionValues, 2)
	assert.True(t, price.Equal(loaded.Price.Decimal))

	_, err = svc.CreateVariant(ctx, shirt.ID, &CreateVariantRequest{
		Options: []VariantOptionSelection{{OptionID: color.ID, ValueID: color.Values[0].ID}},
	})
	assert.ErrorIs(t, err, apperror.ErrVariantOptionsInvalid)

	_, err = svc.CreateVariant(ctx, "missing", &CreateVariantRequest{})
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
}

func TestService_ProductPalette(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService(t)
	shirt := seedShirt(t, repo)
	color, size := shirt.Options[0], shirt.Options[1]

	_, err := svc.CreateVariant(ctx, shirt.ID, &CreateVariantRequest{
		BadgeColor: strPtr("#FF0000"),
		Options: []VariantOptionSelection{
			{OptionID: color.ID, ValueID: color.Values[0].ID},
			{OptionID: size.ID, ValueID: size.Values[0].ID},
		},
	})
	require.NoError(t, err)
	_, err = svc.CreateVariant(ctx, shirt.ID, &CreateVariantRequest{
		BadgeColor: strPtr("gold"),
		Options: []VariantOptionSelection{
			{OptionID: color.ID, ValueID: color.Values[1].ID},
			{OptionID: size.ID, ValueID: size.Values[0].ID},
		},
	})
	require.NoError(t, err)

	palette, err := svc.ProductPalette(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"#FF0000", "#0000FF", "gold"}, palette)
}

func TestService_CreateBundle(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService(t)
	a := seedSimple(t, repo, "cake-topper", "4.00")
	b := seedSimple(t, repo, "candles", "3.00")

	req := &CreateBundleRequest{
		Name:         "Doğum Günü Set",
		EventTypeID:  "birthday",
		ThemeStyleID: "pastel",
		Items: []CreateBundleItemRequest{
			{ProductID: a.ID, Quantity: 1, SortOrder: 0},
			{ProductID: b.ID, Quantity: 2, SortOrder: 1},
		},
	}

	first, err := svc.CreateBundle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "dogum-gunu-set", first.Slug)
	assert.True(t, first.IsActive)

	second, err := svc.CreateBundle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "dogum-gunu-set-2", second.Slug)

	resolved, err := svc.ResolveBundle(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(resolved.Price))
	require.Len(t, resolved.Items, 2)
	assert.Equal(t, b.ID, resolved.Items[1].ProductID)
}

func TestService_CreateBundleRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService(t)
	a := seedSimple(t, repo, "a", "1.00")

	_, err := svc.CreateBundle(ctx, &CreateBundleRequest{
		Name: "Too Small", EventTypeID: "e", ThemeStyleID: "t",
		Items: []CreateBundleItemRequest{{ProductID: a.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperror.ErrBundleMalformed)

	_, err = svc.CreateBundle(ctx, &CreateBundleRequest{
		Name: "Dangling", EventTypeID: "e", ThemeStyleID: "t",
		Items: []CreateBundleItemRequest{{ProductID: a.ID, Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperror.ErrBundleMalformed)
}

func TestService_ListActiveBundles(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService(t)
	a := seedSimple(t, repo, "a", "1.00")
	b := seedSimple(t, repo, "b", "1.00")
	items := []CreateBundleItemRequest{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
	inactive := false

	_, err := svc.CreateBundle(ctx, &CreateBundleRequest{Name: "Second", EventTypeID: "wedding", ThemeStyleID: "gold", SortOrder: 2, Items: items})
	require.NoError(t, err)
	_, err = svc.CreateBundle(ctx, &CreateBundleRequest{Name: "First", EventTypeID: "wedding", ThemeStyleID: "gold", SortOrder: 1, Items: items})
	require.NoError(t, err)
	_, err = svc.CreateBundle(ctx, &CreateBundleRequest{Name: "Hidden", EventTypeID: "wedding", ThemeStyleID: "gold", IsActive: &inactive, Items: items})
	require.NoError(t, err)
	_, err = svc.CreateBundle(ctx, &CreateBundleRequest{Name: "Other", EventTypeID: "birthday", ThemeStyleID: "gold", Items: items})
	require.NoError(t, err)

	bundles, err := svc.ListActiveBundles(ctx, BundleFilter{EventTypeID: "wedding"})
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "First", bundles[0].Name)
	assert.Equal(t, "Second", bundles[1].Name)
	assert.Len(t, bundles[0].Items, 2)
}

func TestRepository_CreateBundleReportsTakenSlug(t *testing.T) {
	ctx := context.Background()
	_, repo := setupService(t)
	a := seedSimple(t, repo, "flags", "2.00")
	b := seedSimple(t, repo, "banner", "6.00")

	items := func() []BundleItem {
		return []BundleItem{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1, SortOrder: 1}}
	}
	require.NoError(t, repo.CreateBundle(ctx, &Bundle{Name: "Flags", Slug: "flags-set", EventTypeID: "e", ThemeStyleID: "t", IsActive: true, Items: items()}))

	err := repo.CreateBundle(ctx, &Bundle{Name: "Flags", Slug: "flags-set", EventTypeID: "e", ThemeStyleID: "t", IsActive: true, Items: items()})
	assert.ErrorIs(t, err, apperror.ErrBundleSlugTaken)
	assert.Equal(t, apperror.KindConstraintViolation, apperror.KindOf(err))
}

func TestService_CreateBundleRetriesWhenSlugIsClaimed(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t, Models()...)
	repo := NewRepository(db)
	svc := NewService(repo, logger.Discard())
	a := seedSimple(t, repo, "lanterns", "4.00")
	b := seedSimple(t, repo, "garlands", "3.00")

	// Another admin takes the slug right after this create checked it
	var claimed atomic.Bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:claim_slug", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "bundles" || !claimed.CompareAndSwap(false, true) {
			return
		}
		now := time.Now().UTC()
		require.NoError(t, db.Exec(
			"INSERT INTO bundles (id, name, slug, event_type_id, theme_style_id, is_active, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			uuid.NewString(), "Garden Set", "garden-set", "e", "t", true, 0, now, now,
		).Error)
	}))

	bundle, err := svc.CreateBundle(ctx, &CreateBundleRequest{
		Name: "Garden Set", EventTypeID: "e", ThemeStyleID: "t",
		Items: []CreateBundleItemRequest{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2, SortOrder: 1},
		},
	})
	require.NoError(t, err)
	assert.True(t, claimed.Load())
	assert.Equal(t, "garden-set-2", bundle.Slug)

	var count int64
	require.NoError(t, db.Model(&Bundle{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	resolved, err := svc.ResolveBundle(ctx, bundle.ID)
	require.NoError(t, err)
	assert.Len(t, resolved.Items, 2)
}
