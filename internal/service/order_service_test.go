package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type fixture struct {
	store    *repository.MemoryStore
	carts    *repository.MemoryCarts
	orders   *repository.MemoryOrders
	tx       *repository.MemoryTx
	catalog  *CatalogService
	cartSvc  *CartService
	orderSvc *OrderService
	notifier *Notifier

	productA *domain.Product
	productB *domain.Product
	customer *domain.Customer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: repository.NewMemoryStore()}
	f.carts = repository.NewMemoryCarts(f.store)
	f.orders = repository.NewMemoryOrders(f.store)
	f.tx = repository.NewMemoryTx(f.store)
	f.catalog = NewCatalogService(f.store)
	f.cartSvc = NewCartService(f.carts, f.store, nil, nil)
	f.notifier = NewNotifier(nil, 0)
	f.orderSvc = NewOrderService(f.store, f.carts, f.orders, f.tx, f.notifier, nil)

	col, err := f.catalog.CreateCollection(ctx, domain.Collection{Title: "Groceries"})
	require.NoError(t, err)
	f.productA, err = f.catalog.CreateProduct(ctx, domain.Product{
		Title: "Coffee", UnitPrice: decimal.RequireFromString("10.00"), Inventory: 10, CollectionID: col.ID,
	})
	require.NoError(t, err)
	f.productB, err = f.catalog.CreateProduct(ctx, domain.Product{
		Title: "Tea", UnitPrice: decimal.RequireFromString("5.00"), Inventory: 10, CollectionID: col.ID,
	})
	require.NoError(t, err)
	f.customer, err = NewCustomerService(f.store).Register(ctx, domain.Customer{UserID: "user-1", Email: "u1@example.com"})
	require.NoError(t, err)
	return f
}

// cartWith creates a cart holding A x2 and B x1.
func (f *fixture) cartWith(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	cart, err := f.cartSvc.CreateCart(ctx)
	require.NoError(t, err)
	_, err = f.cartSvc.AddItem(ctx, cart.ID, f.productA.ID, 2)
	require.NoError(t, err)
	_, err = f.cartSvc.AddItem(ctx, cart.ID, f.productB.ID, 1)
	require.NoError(t, err)
	return cart.ID
}

func itemFor(t *testing.T, o *domain.Order, productID int64) domain.OrderItem {
	t.Helper()
	for _, it := range o.Items {
		if it.Product.ID == productID {
			return it
		}
	}
	t.Fatalf("no order item for product %d", productID)
	return domain.OrderItem{}
}

func TestPlaceOrder_ConvertsCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)

	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, f.customer.ID, o.CustomerID)
	assert.False(t, o.PlacedAt.IsZero())
	require.Len(t, o.Items, 2)

	a := itemFor(t, o, f.productA.ID)
	assert.True(t, a.UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.EqualValues(t, 2, a.Quantity)
	b := itemFor(t, o, f.productB.ID)
	assert.True(t, b.UnitPrice.Equal(decimal.RequireFromString("5.00")))
	assert.EqualValues(t, 1, b.Quantity)
	assert.True(t, o.Total().Equal(decimal.RequireFromString("25.00")))

	// cart and its items are gone
	_, err = f.carts.GetCart(ctx, cartID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := f.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", f.cartWith(t))
	require.NoError(t, err)

	require.NoError(t, f.catalog.ChangePrice(ctx, f.productA.ID, decimal.RequireFromString("99.99")))

	stored, err := f.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	a := itemFor(t, stored, f.productA.ID)
	assert.True(t, a.UnitPrice.Equal(decimal.RequireFromString("10.00")), "snapshot moved to %s", a.UnitPrice)
	assert.True(t, a.Product.UnitPrice.Equal(decimal.RequireFromString("99.99")))
}

func TestPlaceOrder_AccumulatedQuantity(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cart, err := f.cartSvc.CreateCart(ctx)
	require.NoError(t, err)
	_, err = f.cartSvc.AddItem(ctx, cart.ID, f.productA.ID, 2)
	require.NoError(t, err)
	item, err := f.cartSvc.AddItem(ctx, cart.ID, f.productA.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, item.Quantity)

	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", cart.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.EqualValues(t, 5, o.Items[0].Quantity)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cart, err := f.cartSvc.CreateCart(ctx)
	require.NoError(t, err)

	_, err = f.orderSvc.PlaceOrder(ctx, "user-1", cart.ID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cart_id", ve.Field)
	assert.Equal(t, MsgCartEmpty, ve.Message)
	assert.ErrorIs(t, err, ErrCartEmpty)

	orders, err := f.orders.ListOrdersByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_MissingCart(t *testing.T) {
	f := setup(t)
	_, err := f.orderSvc.PlaceOrder(context.Background(), "user-1", uuid.New())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgCartNotFound, ve.Message)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestPlaceOrder_RetryAfterSuccessFails(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)

	_, err := f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
	require.NoError(t, err)
	_, err = f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	orders, err := f.orders.ListOrdersByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPlaceOrder_MissingCustomer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)

	_, err := f.orderSvc.PlaceOrder(ctx, "stranger", cartID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	n, err := f.carts.CountItems(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlaceOrder_ConcurrentSameCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCartNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, notFound)
	orders, err := f.orders.ListOrdersByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

var errBatch = errors.New("batch insert failed")

type failingItems struct{ repository.OrderRepository }

func (failingItems) CreateItems(context.Context, int64, []domain.OrderItem) error { return errBatch }

func TestPlaceOrder_RollsBackOnItemFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)
	svc := NewOrderService(f.store, f.carts, failingItems{f.orders}, f.tx, f.notifier, nil)

	_, err := svc.PlaceOrder(ctx, "user-1", cartID)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, errBatch)

	// the order row written before the failure is gone, the cart is untouched
	_, err = f.orders.GetOrder(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	cart, err := f.carts.GetCart(ctx, cartID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestPlaceOrder_CanceledContext(t *testing.T) {
	f := setup(t)
	cartID := f.cartWith(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
	assert.ErrorIs(t, err, context.Canceled)

	n, err := f.carts.CountItems(context.Background(), cartID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlaceOrder_NotifiesAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cartID := f.cartWith(t)

	var got []domain.OrderCreated
	f.notifier.Register("recorder", ReceiverFunc(func(ctx context.Context, ev domain.OrderCreated) error {
		// the cart must already be gone when receivers run
		_, err := f.carts.GetCart(ctx, ev.CartID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		got = append(got, ev)
		return nil
	}))
	f.notifier.Register("broken", ReceiverFunc(func(context.Context, domain.OrderCreated) error {
		return errors.New("smtp down")
	}))

	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", cartID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, o.ID, got[0].Order.ID)
	assert.Equal(t, cartID, got[0].CartID)
}

func TestGetOrder_OtherCustomer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", f.cartWith(t))
	require.NoError(t, err)

	_, err = NewCustomerService(f.store).Register(ctx, domain.Customer{UserID: "user-2"})
	require.NoError(t, err)

	got, err := f.orderSvc.GetOrder(ctx, "user-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.orderSvc.GetOrder(ctx, "user-2", o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := f.orderSvc.ListOrders(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := f.orderSvc.PlaceOrder(ctx, "user-1", f.cartWith(t))
	require.NoError(t, err)

	updated, err := f.orderSvc.UpdatePaymentStatus(ctx, o.ID, domain.PaymentStatusComplete)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusComplete, updated.PaymentStatus)
	assert.Len(t, updated.Items, 2)

	_, err = f.orderSvc.UpdatePaymentStatus(ctx, o.ID, "refunded")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "payment_status", ve.Field)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.orderSvc.UpdatePaymentStatus(ctx, 999, domain.PaymentStatusFailed)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
