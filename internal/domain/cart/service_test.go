package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/testdb"
	"gorm.io/gorm"
)

const userID = "user-1"

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	db       *gorm.DB
	repo     *catalog.Repository
	svc      *Service
	recorder *eventRecorder
}

func setup(t *testing.T, policy string) *fixture {
	return newFixture(t, policy, testdb.New(t, append(catalog.Models(), Models()...)...))
}

// setupConcurrent backs the fixture with a multi-connection database so
// goroutines race on real overlapping transactions.
func setupConcurrent(t *testing.T, policy string) *fixture {
	return newFixture(t, policy, testdb.NewConcurrent(t, append(catalog.Models(), Models()...)...))
}

func newFixture(t *testing.T, policy string, db *gorm.DB) *fixture {
	repo := catalog.NewRepository(db)

	bus := events.NewBus(logger.Discard())
	recorder := &eventRecorder{}
	bus.Subscribe("", recorder.handle)

	svc := NewService(db, repo, bus, config.CartConfig{StockPolicy: policy, MaxBatchAdd: 5}, logger.Discard())
	return &fixture{db: db, repo: repo, svc: svc, recorder: recorder}
}

func (f *fixture) product(t *testing.T, slug, price string, stock int, track bool) *catalog.Product {
	p := &catalog.Product{
		Name:       slug,
		Slug:       slug,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		TrackStock: track,
		IsActive:   true,
	}
	require.NoError(t, f.repo.CreateProduct(context.Background(), p))
	return p
}

func (f *fixture) variant(t *testing.T, productID string, stock *int) *catalog.ProductVariant {
	v := &catalog.ProductVariant{ProductID: productID, Stock: stock, IsActive: true}
	require.NoError(t, f.repo.CreateVariant(context.Background(), v))
	return v
}

func (f *fixture) bundle(t *testing.T, slug string, items ...catalog.BundleItem) *catalog.Bundle {
	b := &catalog.Bundle{Name: slug, Slug: slug, EventTypeID: "birthday", ThemeStyleID: "pastel", IsActive: true, Items: items}
	require.NoError(t, f.repo.CreateBundle(context.Background(), b))
	return b
}

func (f *fixture) itemRows(t *testing.T, productID string) []CartItem {
	var rows []CartItem
	require.NoError(t, f.db.Where("user_id = ? AND product_id = ?", userID, productID).Find(&rows).Error)
	return rows
}

func TestAddProduct_CollapsesRepeatedAdds(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	p := f.product(t, "mug", "8.50", 0, false)

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
		require.NoError(t, err)
	}

	rows := f.itemRows(t, p.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Nil(t, rows[0].VariantID)
	assert.Equal(t, 3, f.recorder.count())
}

// race runs fn from workers goroutines released at the same moment
func race(t *testing.T, workers int, fn func() error) {
	t.Helper()
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- fn()
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestAddProduct_ConcurrentAddsSettleWithoutLostUpdate(t *testing.T) {
	f := setupConcurrent(t, config.StockPolicySoft)
	ctx := context.Background()
	p := f.product(t, "balloon", "1.00", 0, false)

	for round := 1; round <= 3; round++ {
		race(t, testdb.ConcurrentConns, func() error {
			_, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
			return err
		})

		rows := f.itemRows(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, round*testdb.ConcurrentConns, rows[0].Quantity)
	}
	assert.Equal(t, 3*testdb.ConcurrentConns, f.recorder.count())
}

func TestAddBundle_ConcurrentAddsShareOneLine(t *testing.T) {
	f := setupConcurrent(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "streamers", "3.00", 0, false)
	b := f.product(t, "confetti", "2.00", 0, false)
	bundle := f.bundle(t, "party-pack",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1, SortOrder: 0},
		catalog.BundleItem{ProductID: b.ID, Quantity: 2, SortOrder: 1},
	)

	race(t, testdb.ConcurrentConns, func() error {
		_, err := f.svc.AddBundle(ctx, userID, bundle.ID, 1)
		return err
	})

	var lines []CartBundleLine
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, testdb.ConcurrentConns, lines[0].Quantity)

	var snapshot int64
	require.NoError(t, f.db.Model(&CartBundleLineItem{}).Where("line_id = ?", lines[0].ID).Count(&snapshot).Error)
	assert.EqualValues(t, 2, snapshot)
}

func TestAddProduct_VariantsKeepSeparateLines(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	p := f.product(t, "shirt", "20.00", 0, false)
	v := f.variant(t, p.ID, nil)

	_, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, userID, p.ID, &v.ID, 2)
	require.NoError(t, err)
	res, err := f.svc.AddProduct(ctx, userID, p.ID, &v.ID, 1)
	require.NoError(t, err)

	require.NotNil(t, res.Item.VariantID)
	assert.Equal(t, v.ID, *res.Item.VariantID)
	assert.Equal(t, 3, res.Item.Quantity)
	assert.Len(t, f.itemRows(t, p.ID), 2)
}

func TestAddProduct_Rejections(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	shirt := f.product(t, "shirt", "20.00", 0, false)
	mug := f.product(t, "mug", "8.00", 0, false)
	shirtVariant := f.variant(t, shirt.ID, nil)

	_, err := f.svc.AddProduct(ctx, userID, mug.ID, &shirtVariant.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrVariantProductMismatch)

	_, err = f.svc.AddProduct(ctx, userID, mug.ID, nil, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	missing := "missing"
	_, err = f.svc.AddProduct(ctx, userID, mug.ID, &missing, 1)
	assert.ErrorIs(t, err, apperror.ErrVariantNotFound)

	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", mug.ID).Update("is_active", false).Error)
	_, err = f.svc.AddProduct(ctx, userID, mug.ID, nil, 1)
	assert.ErrorIs(t, err, apperror.ErrProductInactive)

	assert.Empty(t, f.itemRows(t, mug.ID))
	assert.Equal(t, 0, f.recorder.count())
}

func TestAddProduct_StockPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("soft warns", func(t *testing.T) {
		f := setup(t, config.StockPolicySoft)
		p := f.product(t, "vase", "30.00", 2, true)

		res, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 2)
		require.NoError(t, err)
		assert.False(t, res.StockWarning)

		res, err = f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
		require.NoError(t, err)
		assert.True(t, res.StockWarning)
		require.NotNil(t, res.Available)
		assert.Equal(t, 2, *res.Available)
		assert.Equal(t, 3, res.Item.Quantity)
	})

	t.Run("hard blocks and writes nothing", func(t *testing.T) {
		f := setup(t, config.StockPolicyHard)
		p := f.product(t, "vase", "30.00", 2, true)

		_, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 2)
		require.NoError(t, err)
		_, err = f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
		assert.ErrorIs(t, err, apperror.ErrOutOfStock)

		rows := f.itemRows(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].Quantity)
	})

	t.Run("hard uses variant stock override", func(t *testing.T) {
		f := setup(t, config.StockPolicyHard)
		p := f.product(t, "vase", "30.00", 100, true)
		one := 1
		v := f.variant(t, p.ID, &one)

		_, err := f.svc.AddProduct(ctx, userID, p.ID, &v.ID, 2)
		assert.ErrorIs(t, err, apperror.ErrOutOfStock)
	})

	t.Run("untracked products skip the check", func(t *testing.T) {
		f := setup(t, config.StockPolicyHard)
		p := f.product(t, "card", "3.00", 0, false)

		res, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 10)
		require.NoError(t, err)
		assert.False(t, res.StockWarning)
	})

	t.Run("off ignores stock", func(t *testing.T) {
		f := setup(t, config.StockPolicyOff)
		p := f.product(t, "vase", "30.00", 0, true)

		res, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 5)
		require.NoError(t, err)
		assert.False(t, res.StockWarning)
	})
}

func TestAddBundle_SnapshotIsImmutable(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "plates", "5.00", 0, false)
	b := f.product(t, "cups", "2.00", 0, false)
	c := f.product(t, "napkins", "1.00", 0, false)
	bundle := f.bundle(t, "tableware",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1, SortOrder: 0},
		catalog.BundleItem{ProductID: b.ID, Quantity: 3, SortOrder: 1},
	)

	line, err := f.svc.AddBundle(ctx, userID, bundle.ID, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("11.00").Equal(line.Price), "got %s", line.Price)
	require.Len(t, line.Items, 2)

	// Change the live definition: new price and an extra product
	require.NoError(t, f.db.Model(&catalog.Bundle{}).Where("id = ?", bundle.ID).
		Update("bundle_price", decimal.NewNullDecimal(decimal.RequireFromString("7.00"))).Error)
	require.NoError(t, f.db.Create(&catalog.BundleItem{BundleID: bundle.ID, ProductID: c.ID, Quantity: 1, SortOrder: 2}).Error)

	again, err := f.svc.AddBundle(ctx, userID, bundle.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, line.ID, again.ID)
	assert.Equal(t, 3, again.Quantity)
	assert.True(t, decimal.RequireFromString("11.00").Equal(again.Price))
	require.Len(t, again.Items, 2)
	assert.Equal(t, a.ID, again.Items[0].ProductID)
	assert.Equal(t, b.ID, again.Items[1].ProductID)
	assert.Equal(t, 3, again.Items[1].Quantity)

	var lines int64
	require.NoError(t, f.db.Model(&CartBundleLine{}).Where("user_id = ?", userID).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)
}

func TestAddBundle_RejectsMalformedAndInactive(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)

	single := f.bundle(t, "single", catalog.BundleItem{ProductID: a.ID, Quantity: 1})
	_, err := f.svc.AddBundle(ctx, userID, single.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrBundleMalformed)

	inactive := f.bundle(t, "inactive",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1},
		catalog.BundleItem{ProductID: b.ID, Quantity: 1},
	)
	require.NoError(t, f.db.Model(&catalog.Bundle{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	_, err = f.svc.AddBundle(ctx, userID, inactive.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrBundleInactive)

	_, err = f.svc.AddBundle(ctx, userID, "missing", 1)
	assert.ErrorIs(t, err, apperror.ErrBundleNotFound)

	var lines int64
	require.NoError(t, f.db.Model(&CartBundleLine{}).Count(&lines).Error)
	assert.Zero(t, lines)
	assert.Equal(t, 0, f.recorder.count())
}

func TestGetCount_BundleCountsOncePerUnit(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)
	c := f.product(t, "c", "1.00", 0, false)
	bundle := f.bundle(t, "trio",
		catalog.BundleItem{ProductID: a.ID, Quantity: 2},
		catalog.BundleItem{ProductID: b.ID, Quantity: 2},
		catalog.BundleItem{ProductID: c.ID, Quantity: 2},
	)

	_, err := f.svc.AddProduct(ctx, userID, a.ID, nil, 2)
	require.NoError(t, err)
	_, err = f.svc.AddBundle(ctx, userID, bundle.ID, 3)
	require.NoError(t, err)

	count, err := f.svc.GetCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	other, err := f.svc.GetCount(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 0, other)
}

func TestRemoveItem_IsIdempotent(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)
	bundle := f.bundle(t, "pair",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1},
		catalog.BundleItem{ProductID: b.ID, Quantity: 1},
	)

	res, err := f.svc.AddProduct(ctx, userID, a.ID, nil, 1)
	require.NoError(t, err)
	line, err := f.svc.AddBundle(ctx, userID, bundle.ID, 1)
	require.NoError(t, err)
	before := f.recorder.count()

	require.NoError(t, f.svc.RemoveItem(ctx, userID, res.Item.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, userID, res.Item.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, userID, line.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, userID, line.ID))
	require.NoError(t, f.svc.RemoveItem(ctx, userID, "never-existed"))

	assert.Equal(t, before+2, f.recorder.count())

	count, err := f.svc.GetCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	var snapshot int64
	require.NoError(t, f.db.Model(&CartBundleLineItem{}).Count(&snapshot).Error)
	assert.Zero(t, snapshot)
}

func TestRemoveItem_OtherUsersRowsAreUntouched(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	p := f.product(t, "a", "1.00", 0, false)

	res, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveItem(ctx, "intruder", res.Item.ID))

	assert.Len(t, f.itemRows(t, p.ID), 1)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := setup(t, config.StockPolicyHard)
	ctx := context.Background()
	p := f.product(t, "a", "4.00", 5, true)

	_, err := f.svc.AddProduct(ctx, userID, p.ID, nil, 1)
	require.NoError(t, err)

	res, err := f.svc.UpdateItemQuantity(ctx, userID, p.ID, nil, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Item.Quantity)

	_, err = f.svc.UpdateItemQuantity(ctx, userID, p.ID, nil, 6)
	assert.ErrorIs(t, err, apperror.ErrOutOfStock)

	res, err = f.svc.UpdateItemQuantity(ctx, userID, p.ID, nil, 0)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Empty(t, f.itemRows(t, p.ID))

	_, err = f.svc.UpdateItemQuantity(ctx, userID, p.ID, nil, 2)
	assert.ErrorIs(t, err, apperror.ErrCartItemNotFound)
	_, err = f.svc.UpdateItemQuantity(ctx, userID, p.ID, nil, 0)
	assert.ErrorIs(t, err, apperror.ErrCartItemNotFound)
}

func TestUpdateBundleQuantity(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)
	bundle := f.bundle(t, "pair",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1},
		catalog.BundleItem{ProductID: b.ID, Quantity: 1},
	)

	line, err := f.svc.AddBundle(ctx, userID, bundle.ID, 1)
	require.NoError(t, err)

	updated, err := f.svc.UpdateBundleQuantity(ctx, userID, line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.Len(t, updated.Items, 2)

	_, err = f.svc.UpdateBundleQuantity(ctx, "intruder", line.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrCartItemNotFound)

	removed, err := f.svc.UpdateBundleQuantity(ctx, userID, line.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, removed)

	_, err = f.svc.UpdateBundleQuantity(ctx, userID, line.ID, 0)
	assert.ErrorIs(t, err, apperror.ErrCartItemNotFound)
}

func TestAddMany(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)

	results, err := f.svc.AddMany(ctx, userID, []AddToCartRequest{
		{ProductID: a.ID},
		{ProductID: "missing", Quantity: 1},
		{ProductID: b.ID, Quantity: 2},
		{ProductID: a.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "PRODUCT_NOT_FOUND", results[1].Code)
	assert.True(t, results[2].Success)
	assert.Equal(t, 2, results[3].Result.Item.Quantity)

	assert.Equal(t, 1, f.recorder.count())

	_, err = f.svc.AddMany(ctx, userID, make([]AddToCartRequest, 6))
	assert.ErrorIs(t, err, apperror.ErrBatchTooLarge)
}

func TestClear(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	a := f.product(t, "a", "1.00", 0, false)
	b := f.product(t, "b", "1.00", 0, false)
	bundle := f.bundle(t, "pair",
		catalog.BundleItem{ProductID: a.ID, Quantity: 1},
		catalog.BundleItem{ProductID: b.ID, Quantity: 1},
	)

	_, err := f.svc.AddProduct(ctx, userID, a.ID, nil, 1)
	require.NoError(t, err)
	_, err = f.svc.AddBundle(ctx, userID, bundle.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, "other", a.ID, nil, 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, userID))

	count, err := f.svc.GetCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = f.svc.GetCount(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListCart(t *testing.T) {
	f := setup(t, config.StockPolicySoft)
	ctx := context.Background()
	shirt := f.product(t, "shirt", "20.00", 0, false)
	hat := f.product(t, "cap", "5.00", 0, false)
	variant := &catalog.ProductVariant{
		ProductID: shirt.ID,
		Price:     decimal.NewNullDecimal(decimal.RequireFromString("22.50")),
		IsActive:  true,
	}
	require.NoError(t, f.repo.CreateVariant(ctx, variant))
	bundle := f.bundle(t, "outfit",
		catalog.BundleItem{ProductID: shirt.ID, Quantity: 1, SortOrder: 0},
		catalog.BundleItem{ProductID: hat.ID, Quantity: 1, SortOrder: 1},
	)
	require.NoError(t, f.db.Model(&catalog.Bundle{}).Where("id = ?", bundle.ID).
		Update("bundle_price", decimal.NewNullDecimal(decimal.RequireFromString("21.00"))).Error)

	_, err := f.svc.AddProduct(ctx, userID, shirt.ID, &variant.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, userID, hat.ID, nil, 1)
	require.NoError(t, err)
	_, err = f.svc.AddBundle(ctx, userID, bundle.ID, 2)
	require.NoError(t, err)

	// Live price changes do not reach the bundle snapshot
	require.NoError(t, f.db.Model(&catalog.Bundle{}).Where("id = ?", bundle.ID).
		Update("bundle_price", decimal.NewNullDecimal(decimal.RequireFromString("99.00"))).Error)

	cart, err := f.svc.ListCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	require.Len(t, cart.Bundles, 1)

	shirtLine := cart.Items[0]
	assert.Equal(t, "shirt", shirtLine.Name)
	assert.True(t, shirtLine.Available)
	assert.True(t, decimal.RequireFromString("45.00").Equal(shirtLine.Subtotal))

	line := cart.Bundles[0]
	assert.Equal(t, "outfit", line.Slug)
	assert.True(t, decimal.RequireFromString("42.00").Equal(line.Subtotal))
	require.Len(t, line.Items, 2)
	assert.Equal(t, "cap", line.Items[1].Slug)

	assert.Equal(t, 3, cart.Totals.ItemCount)
	assert.Equal(t, 5, cart.Totals.TotalQuantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(cart.Totals.ItemsSubtotal))
	assert.True(t, decimal.RequireFromString("92.00").Equal(cart.Totals.TotalAmount))
}
