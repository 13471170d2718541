package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// stubRepo returns canned errors so the service's translation to the
// transport taxonomy can be exercised without a database.
type stubRepo struct {
	Repository
	err      error
	prefixes map[int64]string
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Product, error) {
	return Product{}, s.err
}

func (s *stubRepo) Create(ctx context.Context, product Product) (Product, error) {
	if s.err != nil {
		return Product{}, s.err
	}
	product.ID = 1
	return product, nil
}

func (s *stubRepo) CategoryPrefix(ctx context.Context, id int64) (string, error) {
	if prefix, ok := s.prefixes[id]; ok {
		return prefix, nil
	}
	return DefaultPrefix, nil
}

func validProduct() Product {
	return Product{Code: "SHIRT-01", Name: "Shirt", CategoryID: 1, Price: 10, Quantity: 5, IsActive: true}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&stubRepo{})

	cases := map[string]func(*Product){
		"missing code":      func(p *Product) { p.Code = "" },
		"missing name":      func(p *Product) { p.Name = "" },
		"missing category":  func(p *Product) { p.CategoryID = 0 },
		"negative price":    func(p *Product) { p.Price = -1 },
		"negative quantity": func(p *Product) { p.Quantity = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validProduct()
			mutate(&p)
			_, err := svc.Create(context.Background(), p)
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
}

func TestServiceMapsRepoErrors(t *testing.T) {
	svc := NewService(&stubRepo{err: ErrNotFound})
	_, err := svc.Get(context.Background(), 404)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	svc = NewService(&stubRepo{err: ErrDuplicate})
	_, err = svc.Create(context.Background(), validProduct())
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCategoryPrefixFallback(t *testing.T) {
	svc := NewService(&stubRepo{prefixes: map[int64]string{1: "SH"}})

	prefix, err := svc.CategoryPrefix(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "SH", prefix)

	prefix, err = svc.CategoryPrefix(context.Background(), 99)
	require.NoError(t, err)
	require.Equal(t, DefaultPrefix, prefix)
}

func TestValidateCategory(t *testing.T) {
	svc := NewService(&stubRepo{})
	_, err := svc.CreateCategory(context.Background(), Category{Prefix: "SH"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
