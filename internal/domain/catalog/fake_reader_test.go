package catalog

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

type fakeReader struct {
	mu       sync.Mutex
	products map[string]*Product
	variants map[string]*ProductVariant
	bundles  map[string]*Bundle
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		products: make(map[string]*Product),
		variants: make(map[string]*ProductVariant),
		bundles:  make(map[string]*Bundle),
	}
}

func (f *fakeReader) addProduct(id string, price string, active bool) *Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &Product{ID: id, Name: "Product " + id, Slug: id, Price: decimal.RequireFromString(price), IsActive: active}
	f.products[id] = p
	return p
}

func (f *fakeReader) addVariant(id, productID string, active bool) *ProductVariant {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &ProductVariant{ID: id, ProductID: productID, IsActive: active}
	f.variants[id] = v
	return v
}

func (f *fakeReader) addBundle(b *Bundle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles[b.ID] = b
}

func (f *fakeReader) GetProduct(_ context.Context, productID string) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.ErrProductNotFound
}

func (f *fakeReader) GetVariant(_ context.Context, variantID string) (*ProductVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.variants[variantID]; ok {
		return v, nil
	}
	return nil, apperror.ErrVariantNotFound
}

func (f *fakeReader) GetBundle(_ context.Context, bundleID string) (*Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bundles[bundleID]; ok {
		return b, nil
	}
	return nil, apperror.ErrBundleNotFound
}
