package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CatalogService проверяет входные данные перед записью в каталог. Каталог
// заполняется при старте; публично доступно только добавление отзывов.
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) CreateCollection(ctx context.Context, c domain.Collection) (*domain.Collection, error) {
	if strings.TrimSpace(c.Title) == "" {
		return nil, ErrInvalidInput
	}
	cp := c
	if err := s.repo.CreateCollection(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(p.Title) == "" || !validPrice(p.UnitPrice) || p.Inventory < 0 || p.CollectionID <= 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if cp.Slug == "" {
		cp.Slug = slugify(cp.Title)
	}
	if err := s.repo.CreateProduct(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetProduct(ctx, id)
}

// ChangePrice задаёт новую цену. Строки существующих заказов сохраняют свой снимок.
func (s *CatalogService) ChangePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	if id <= 0 || !validPrice(price) {
		return ErrInvalidInput
	}
	return s.repo.UpdatePrice(ctx, id, price)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *CatalogService) DeleteCollection(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.DeleteCollection(ctx, id)
}

// AddReview добавляет отзыв к товару productID
func (s *CatalogService) AddReview(ctx context.Context, productID int64, r domain.Review) (*domain.Review, error) {
	if productID <= 0 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: MsgBlank}
	}
	if strings.TrimSpace(r.Description) == "" {
		return nil, &ValidationError{Field: "description", Message: MsgBlank}
	}
	cp := r
	cp.ProductID = productID
	if err := s.repo.CreateReview(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// maxPrice fits NUMERIC(6, 2).
var maxPrice = decimal.RequireFromString("9999.99")

func validPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThanOrEqual(maxPrice) && p.Exponent() >= -2
}

func slugify(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
