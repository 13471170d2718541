package catalog

import "context"

// Service exposes catalog operations to handlers and to the order core.
type Service struct {
	repo Repository
}

// NewService constructs the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	products, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return products, total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, mapError(err)
	}
	return p, nil
}

// FindByCode resolves a product by its unique code.
func (s *Service) FindByCode(ctx context.Context, code string) (Product, error) {
	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Product{}, mapError(err)
	}
	return p, nil
}

// FindByBarcodeColor resolves a product by barcode and color, the lookup
// used by tabular imports.
func (s *Service) FindByBarcodeColor(ctx context.Context, barcode, color string) (Product, error) {
	p, err := s.repo.FindByBarcodeColor(ctx, barcode, color)
	if err != nil {
		return Product{}, mapError(err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, mapError(err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

// CategoryPrefix returns the order-number prefix for a category.
func (s *Service) CategoryPrefix(ctx context.Context, id int64) (string, error) {
	return s.repo.CategoryPrefix(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	if err := validateCategory(category); err != nil {
		return Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return Category{}, mapError(err)
	}
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, category Category) error {
	if err := validateCategory(category); err != nil {
		return err
	}
	if err := s.repo.UpdateCategory(ctx, id, category); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}
