package service

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CustomerService справочник покупателей: identity в запись покупателя
type CustomerService struct {
	repo repository.CustomerRepository
}

func NewCustomerService(repo repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// Register сохраняет торговый профиль identity
func (s *CustomerService) Register(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return nil, ErrInvalidInput
	}
	if c.Membership != "" && !c.Membership.Valid() {
		return nil, ErrInvalidInput
	}
	cp := c
	if err := s.repo.CreateCustomer(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Me находит покупателя аутентифицированной identity
func (s *CustomerService) Me(ctx context.Context, identity string) (*domain.Customer, error) {
	c, err := s.repo.ResolveCustomer(ctx, identity)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return c, err
}
