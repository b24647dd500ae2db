package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartCache кэш снимков корзин. Любая ошибка Get считается промахом.
// Version и SetIfVersion не дают записать снимок, если корзину успели
// изменить или оформить после чтения.
type CartCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	Version(ctx context.Context, id uuid.UUID) (int64, error)
	SetIfVersion(ctx context.Context, cart *domain.Cart, version int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*domain.Cart, error)    { return nil, repository.ErrNotFound }
func (noopCache) Version(context.Context, uuid.UUID) (int64, error)       { return 0, nil }
func (noopCache) SetIfVersion(context.Context, *domain.Cart, int64) error { return nil }
func (noopCache) Delete(context.Context, uuid.UUID) error                 { return nil }

// CartService управляет корзинами до оформления заказа
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	cache   CartCache
	log     *zap.Logger
	loads   singleflight.Group
}

func NewCartService(carts repository.CartRepository, catalog repository.CatalogRepository, cache CartCache, log *zap.Logger) *CartService {
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{carts: carts, catalog: catalog, cache: cache, log: log}
}

func (s *CartService) CreateCart(ctx context.Context) (*domain.Cart, error) {
	return s.carts.CreateCart(ctx)
}

// GetCart читает корзину через кэш. Кэш хранит состав корзины, цены товаров
// всегда берутся из каталога в момент чтения.
func (s *CartService) GetCart(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	// concurrent misses on one cart share a single store read
	v, err, _ := s.loads.Do(id.String(), func() (any, error) {
		return s.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *CartService) load(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	if cached, err := s.cache.Get(ctx, id); err == nil && cached != nil {
		cart, err := s.reprice(ctx, cached)
		if err == nil {
			return cart, nil
		}
		s.log.Warn("cart cache repricing failed", zap.String("cart_id", id.String()), zap.Error(err))
	}

	version, verr := s.cache.Version(ctx, id)
	cart, err := s.carts.GetCart(ctx, id)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		s.log.Warn("cart cache version read failed", zap.String("cart_id", id.String()), zap.Error(verr))
		return cart, nil
	}
	if err := s.cache.SetIfVersion(ctx, cart, version); err != nil {
		s.log.Debug("cart snapshot not cached", zap.String("cart_id", id.String()), zap.Error(err))
	}
	return cart, nil
}

// reprice подставляет текущие цены в снимок. Строки удалённых товаров
// отбрасываются: в хранилище они удалены каскадом.
func (s *CartService) reprice(ctx context.Context, cached *domain.Cart) (*domain.Cart, error) {
	out := &domain.Cart{ID: cached.ID, CreatedAt: cached.CreatedAt, Items: make([]domain.CartItem, 0, len(cached.Items))}
	dropped := false
	for _, it := range cached.Items {
		p, err := s.catalog.GetProduct(ctx, it.Product.ID)
		if errors.Is(err, repository.ErrNotFound) {
			dropped = true
			continue
		}
		if err != nil {
			return nil, err
		}
		it.Product = p.Ref()
		out.Items = append(out.Items, it)
	}
	if dropped {
		s.invalidate(ctx, cached.ID)
	}
	return out, nil
}

// AddItem кладёт quantity товара в корзину, увеличивая существующую строку
func (s *CartService) AddItem(ctx context.Context, cartID uuid.UUID, productID, quantity int64) (*domain.CartItem, error) {
	if ve := validateQuantity(quantity); ve != nil {
		return nil, ve
	}
	if ve, err := validateProduct(ctx, s.catalog, productID); err != nil {
		return nil, err
	} else if ve != nil {
		return nil, ve
	}
	item, err := s.carts.AddItem(ctx, cartID, productID, quantity)
	if errors.Is(err, repository.ErrQuantityLimit) {
		return nil, quantityTooLarge()
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cartID)
	return item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, cartID uuid.UUID, itemID, quantity int64) (*domain.CartItem, error) {
	if ve := validateQuantity(quantity); ve != nil {
		return nil, ve
	}
	item, err := s.carts.SetItemQuantity(ctx, cartID, itemID, quantity)
	if errors.Is(err, repository.ErrQuantityLimit) {
		return nil, quantityTooLarge()
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cartID)
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64) error {
	if err := s.carts.RemoveItem(ctx, cartID, itemID); err != nil {
		return err
	}
	s.invalidate(ctx, cartID)
	return nil
}

func (s *CartService) DeleteCart(ctx context.Context, id uuid.UUID) error {
	if err := s.carts.DeleteCart(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CartService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("cart cache invalidation failed", zap.String("cart_id", id.String()), zap.Error(err))
	}
}
