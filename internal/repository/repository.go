package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrProtected возвращается, когда удаление оставило бы зависимые записи без ссылки
	ErrProtected = errors.New("referenced by dependent records")
	// ErrConflict возвращается при нарушении уникальности или конфликте сериализации
	ErrConflict = errors.New("conflict")
	// ErrQuantityLimit возвращается, когда количество в строке корзины превысило бы domain.MaxQuantity
	ErrQuantityLimit = errors.New("quantity limit exceeded")
)

// CartLine строка корзины вместе с товаром на момент чтения
type CartLine struct {
	ItemID    int64
	ProductID int64
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// CatalogRepository интерфейс репозитория каталога: коллекции, товары, отзывы
type CatalogRepository interface {
	CreateCollection(ctx context.Context, c *domain.Collection) error
	DeleteCollection(ctx context.Context, id int64) error
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CurrentPrice(ctx context.Context, id int64) (decimal.Decimal, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error
	DeleteProduct(ctx context.Context, id int64) error
	// CreateReview добавляет отзыв к товару; ErrNotFound, если товара нет.
	CreateReview(ctx context.Context, r *domain.Review) error
}

// CustomerRepository сопоставляет пользователя и покупателя
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	ResolveCustomer(ctx context.Context, userID string) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

// CartRepository интерфейс репозитория корзин
type CartRepository interface {
	CreateCart(ctx context.Context) (*domain.Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	CountItems(ctx context.Context, id uuid.UUID) (int, error)
	// AddItem добавляет товар или увеличивает количество в существующей строке.
	// ErrQuantityLimit, если сумма превысила бы domain.MaxQuantity.
	AddItem(ctx context.Context, cartID uuid.UUID, productID, quantity int64) (*domain.CartItem, error)
	SetItemQuantity(ctx context.Context, cartID uuid.UUID, itemID, quantity int64) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64) error
	// LockCart блокирует строку корзины до конца текущей транзакции.
	LockCart(ctx context.Context, id uuid.UUID) error
	ListLines(ctx context.Context, id uuid.UUID) ([]CartLine, error)
	// DeleteCart удаляет корзину и её строки; ErrNotFound, если ничего не удалено.
	DeleteCart(ctx context.Context, id uuid.UUID) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	// CreateItems вставляет все строки заказа одним пакетом.
	CreateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error)
}

// TxManager абстракция транзакции: commit, если fn вернула nil, иначе rollback.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
