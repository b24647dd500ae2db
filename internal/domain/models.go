package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// taxRate множитель цены для price_with_tax
var taxRate = decimal.RequireFromString("1.1")

// MaxQuantity верхняя граница количества в строке корзины и заказа (smallint)
const MaxQuantity int64 = 32767

// Collection группа товаров каталога
type Collection struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	FeaturedProductID *int64 `json:"featured_product_id,omitempty"`
}

// Promotion скидка, которая может относиться к нескольким товарам
type Promotion struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Discount    float64 `json:"discount"`
}

// Product представляет товар каталога. Для оформления заказа только чтение.
type Product struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Inventory    int64           `json:"inventory"`
	CollectionID int64           `json:"collection"`
	PromotionIDs []int64         `json:"promotions,omitempty"`
	LastUpdate   time.Time       `json:"last_update"`
}

// Ref возвращает вложенное представление товара для корзин и заказов
func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Title: p.Title, UnitPrice: p.UnitPrice}
}

// ProductRef краткая форма товара: id, название и текущая цена
type ProductRef struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PriceWithTax текущая цена с налогом, округлённая до копеек
func (r ProductRef) PriceWithTax() decimal.Decimal {
	return r.UnitPrice.Mul(taxRate).Round(2)
}

// Review отзыв покупателя о товаре; удаляется вместе с товаром
type Review struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"-"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Membership уровень покупателя
type Membership string

const (
	MembershipBronze Membership = "bronze"
	MembershipSilver Membership = "silver"
	MembershipGold   Membership = "gold"
)

func (m Membership) Valid() bool {
	switch m {
	case MembershipBronze, MembershipSilver, MembershipGold:
		return true
	}
	return false
}

// Customer торговый профиль аутентифицированного пользователя
type Customer struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date"`
	Membership Membership `json:"membership"`
}

// Address адрес покупателя, удаляется вместе с ним
type Address struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
}

// CartItem строка корзины; одна на пару (корзина, товар)
type CartItem struct {
	ID       int64      `json:"id"`
	CartID   uuid.UUID  `json:"-"`
	Product  ProductRef `json:"product"`
	Quantity int64      `json:"quantity"`
}

// TotalPrice количество, умноженное на текущую цену товара
func (i CartItem) TotalPrice() decimal.Decimal {
	return i.Product.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Cart корзина покупателя до оформления, идентифицируется непрозрачным токеном
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []CartItem `json:"items"`
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.TotalPrice())
	}
	return total
}

// PaymentStatus статус оплаты заказа
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusComplete PaymentStatus = "complete"
	PaymentStatusFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusComplete, PaymentStatusFailed:
		return true
	}
	return false
}

// OrderItem строка заказа. UnitPrice снимок цены на момент оформления,
// последующие изменения цены товара его не меняют.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"-"`
	Product   ProductRef      `json:"product"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

// Order оформленный заказ
type Order struct {
	ID            int64         `json:"id"`
	CustomerID    int64         `json:"customer"`
	PlacedAt      time.Time     `json:"placed_at"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Items         []OrderItem   `json:"items"`
}

// Total сумма строк по зафиксированным ценам
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

// OrderCreated событие после фиксации транзакции оформления
type OrderCreated struct {
	Order      Order     `json:"order"`
	CartID     uuid.UUID `json:"cart_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
