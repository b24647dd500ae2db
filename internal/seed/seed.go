// Package seed загружает каталог с отзывами и справочник покупателей из YAML-файла.
// Рассчитан на пустое хранилище: коллекции и товары вставляются всегда,
// уже существующие покупатели пропускаются.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type File struct {
	Collections []Collection      `json:"collections"`
	Customers   []domain.Customer `json:"customers"`
}

type Collection struct {
	Title    string    `json:"title"`
	Products []Product `json:"products"`
}

type Product struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Inventory   int64           `json:"inventory"`
	Reviews     []Review        `json:"reviews"`
}

type Review struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Stats счётчики того, что вставил Apply
type Stats struct {
	Collections int
	Products    int
	Reviews     int
	Customers   int
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func Apply(ctx context.Context, f *File, catalog *service.CatalogService, customers *service.CustomerService, log *zap.Logger) (Stats, error) {
	var st Stats
	for _, c := range f.Collections {
		col, err := catalog.CreateCollection(ctx, domain.Collection{Title: c.Title})
		if err != nil {
			return st, fmt.Errorf("collection %q: %w", c.Title, err)
		}
		st.Collections++
		for _, p := range c.Products {
			prod, err := catalog.CreateProduct(ctx, domain.Product{
				Title:        p.Title,
				Slug:         p.Slug,
				Description:  p.Description,
				UnitPrice:    p.UnitPrice,
				Inventory:    p.Inventory,
				CollectionID: col.ID,
			})
			if err != nil {
				return st, fmt.Errorf("product %q: %w", p.Title, err)
			}
			st.Products++
			for _, r := range p.Reviews {
				if _, err := catalog.AddReview(ctx, prod.ID, domain.Review{Name: r.Name, Description: r.Description}); err != nil {
					return st, fmt.Errorf("review of %q: %w", p.Title, err)
				}
				st.Reviews++
			}
		}
	}
	for _, c := range f.Customers {
		if _, err := customers.Register(ctx, c); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				log.Info("seed customer exists, skipped", zap.String("user_id", c.UserID))
				continue
			}
			return st, fmt.Errorf("customer %q: %w", c.UserID, err)
		}
		st.Customers++
	}
	return st, nil
}
