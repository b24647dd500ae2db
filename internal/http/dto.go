package httpapi

import (
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Money amounts are rendered as fixed two decimal strings.

type productRefResp struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	UnitPrice    string `json:"unit_price"`
	PriceWithTax string `json:"price_with_tax"`
}

func newProductRef(p domain.ProductRef) productRefResp {
	return productRefResp{
		ID:           p.ID,
		Title:        p.Title,
		UnitPrice:    p.UnitPrice.StringFixed(2),
		PriceWithTax: p.PriceWithTax().StringFixed(2),
	}
}

type productResp struct {
	productRefResp
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Inventory   int64     `json:"inventory"`
	Collection  int64     `json:"collection"`
	LastUpdate  time.Time `json:"last_update"`
}

func newProduct(p *domain.Product) productResp {
	return productResp{
		productRefResp: newProductRef(p.Ref()),
		Slug:           p.Slug,
		Description:    p.Description,
		Inventory:      p.Inventory,
		Collection:     p.CollectionID,
		LastUpdate:     p.LastUpdate,
	}
}

type reviewResp struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

func newReview(r *domain.Review) reviewResp {
	return reviewResp{ID: r.ID, Date: r.Date, Name: r.Name, Description: r.Description}
}

type cartItemResp struct {
	ID         int64          `json:"id"`
	Product    productRefResp `json:"product"`
	Quantity   int64          `json:"quantity"`
	TotalPrice string         `json:"total_price"`
}

func newCartItem(it domain.CartItem) cartItemResp {
	return cartItemResp{
		ID:         it.ID,
		Product:    newProductRef(it.Product),
		Quantity:   it.Quantity,
		TotalPrice: it.TotalPrice().StringFixed(2),
	}
}

type cartResp struct {
	ID         uuid.UUID      `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []cartItemResp `json:"items"`
	TotalPrice string         `json:"total_price"`
}

func newCart(c *domain.Cart) cartResp {
	out := cartResp{
		ID:         c.ID,
		CreatedAt:  c.CreatedAt,
		Items:      make([]cartItemResp, 0, len(c.Items)),
		TotalPrice: c.TotalPrice().StringFixed(2),
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, newCartItem(it))
	}
	return out
}

type orderItemResp struct {
	ID        int64          `json:"id"`
	Product   productRefResp `json:"product"`
	UnitPrice string         `json:"unit_price"`
	Quantity  int64          `json:"quantity"`
}

type orderResp struct {
	ID            int64                `json:"id"`
	Customer      int64                `json:"customer"`
	PlacedAt      time.Time            `json:"placed_at"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Items         []orderItemResp      `json:"items"`
}

func newOrder(o *domain.Order) orderResp {
	out := orderResp{
		ID:            o.ID,
		Customer:      o.CustomerID,
		PlacedAt:      o.PlacedAt,
		PaymentStatus: o.PaymentStatus,
		Items:         make([]orderItemResp, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResp{
			ID:        it.ID,
			Product:   newProductRef(it.Product),
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
		})
	}
	return out
}
