package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type memCartItem struct {
	id        int64
	cartID    uuid.UUID
	productID int64
	quantity  int64
}

type memOrder struct {
	id         int64
	customerID int64
	placedAt   time.Time
	status     domain.PaymentStatus
}

type memOrderItem struct {
	id        int64
	orderID   int64
	productID int64
	unitPrice decimal.Decimal
	quantity  int64
}

// MemoryStore объединённое in-memory хранилище всех таблиц и простой генератор ID
type MemoryStore struct {
	mu     sync.RWMutex
	nextID map[string]int64

	collections map[int64]domain.Collection
	products    map[int64]domain.Product
	customers   map[int64]domain.Customer
	carts       map[uuid.UUID]time.Time
	cartItems   map[int64]memCartItem
	orders      map[int64]memOrder
	orderItems  map[int64]memOrderItem
	reviews     map[int64]domain.Review

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      make(map[string]int64),
		collections: make(map[int64]domain.Collection),
		products:    make(map[int64]domain.Product),
		customers:   make(map[int64]domain.Customer),
		carts:       make(map[uuid.UUID]time.Time),
		cartItems:   make(map[int64]memCartItem),
		orders:      make(map[int64]memOrder),
		orderItems:  make(map[int64]memOrderItem),
		reviews:     make(map[int64]domain.Review),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) id(table string) int64 {
	m.nextID[table]++
	return m.nextID[table]
}

// memTx журнал отмены текущей транзакции
type memTx struct {
	undo []func()
}

type txKey struct{}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if txFrom(ctx) == nil {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if txFrom(ctx) == nil {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if txFrom(ctx) == nil {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if txFrom(ctx) == nil {
		m.mu.Unlock()
	}
}

// journal запоминает, как откатить запись, сделанную внутри транзакции
func (m *MemoryStore) journal(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

var (
	_ CatalogRepository  = (*MemoryStore)(nil)
	_ CustomerRepository = (*MemoryStore)(nil)
)

// CatalogRepository implementation

func (m *MemoryStore) CreateCollection(ctx context.Context, c *domain.Collection) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	c.ID = m.id("collections")
	m.collections[c.ID] = *c
	id := c.ID
	m.journal(ctx, func() { delete(m.collections, id) })
	return nil
}

func (m *MemoryStore) DeleteCollection(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	c, ok := m.collections[id]
	if !ok {
		return ErrNotFound
	}
	for _, p := range m.products {
		if p.CollectionID == id {
			return fmt.Errorf("collection %d: %w", id, ErrProtected)
		}
	}
	delete(m.collections, id)
	m.journal(ctx, func() { m.collections[id] = c })
	return nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.collections[p.CollectionID]; !ok {
		return fmt.Errorf("collection %d: %w", p.CollectionID, ErrNotFound)
	}
	p.ID = m.id("products")
	p.LastUpdate = m.now()
	m.products[p.ID] = *p
	id := p.ID
	m.journal(ctx, func() { delete(m.products, id) })
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) CurrentPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	p, err := m.GetProduct(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return p.UnitPrice, nil
}

func (m *MemoryStore) ProductExists(ctx context.Context, id int64) (bool, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	_, ok := m.products[id]
	return ok, nil
}

func (m *MemoryStore) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	prev := p
	p.UnitPrice = price
	p.LastUpdate = m.now()
	m.products[id] = p
	m.journal(ctx, func() { m.products[id] = prev })
	return nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	for _, oi := range m.orderItems {
		if oi.productID == id {
			return fmt.Errorf("product %d: %w", id, ErrProtected)
		}
	}
	for itemID, ci := range m.cartItems {
		if ci.productID == id {
			delete(m.cartItems, itemID)
			removed := ci
			m.journal(ctx, func() { m.cartItems[removed.id] = removed })
		}
	}
	for reviewID, r := range m.reviews {
		if r.ProductID == id {
			delete(m.reviews, reviewID)
			removed := r
			m.journal(ctx, func() { m.reviews[removed.ID] = removed })
		}
	}
	delete(m.products, id)
	m.journal(ctx, func() { m.products[id] = p })
	return nil
}

func (m *MemoryStore) CreateReview(ctx context.Context, r *domain.Review) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.products[r.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", r.ProductID, ErrNotFound)
	}
	r.ID = m.id("reviews")
	r.Date = m.now()
	m.reviews[r.ID] = *r
	id := r.ID
	m.journal(ctx, func() { delete(m.reviews, id) })
	return nil
}

// CustomerRepository implementation

func (m *MemoryStore) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	for _, existing := range m.customers {
		if existing.UserID == c.UserID || (c.Email != "" && existing.Email == c.Email) {
			return fmt.Errorf("customer %q: %w", c.UserID, ErrConflict)
		}
	}
	if c.Membership == "" {
		c.Membership = domain.MembershipBronze
	}
	c.ID = m.id("customers")
	m.customers[c.ID] = *c
	id := c.ID
	m.journal(ctx, func() { delete(m.customers, id) })
	return nil
}

func (m *MemoryStore) ResolveCustomer(ctx context.Context, userID string) (*domain.Customer, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	for _, c := range m.customers {
		if c.UserID == userID {
			cp := c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteCustomer(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	for _, o := range m.orders {
		if o.customerID == id {
			return fmt.Errorf("customer %d: %w", id, ErrProtected)
		}
	}
	delete(m.customers, id)
	m.journal(ctx, func() { m.customers[id] = c })
	return nil
}

// CartRepository implementation on wrapper type
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

func (mc *MemoryCarts) CreateCart(ctx context.Context) (*domain.Cart, error) {
	s := mc.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	id := uuid.New()
	created := s.now()
	s.carts[id] = created
	s.journal(ctx, func() { delete(s.carts, id) })
	return &domain.Cart{ID: id, CreatedAt: created, Items: []domain.CartItem{}}, nil
}

func (mc *MemoryCarts) itemView(ci memCartItem) domain.CartItem {
	return domain.CartItem{
		ID:       ci.id,
		CartID:   ci.cartID,
		Product:  mc.store.products[ci.productID].Ref(),
		Quantity: ci.quantity,
	}
}

func (mc *MemoryCarts) itemsOf(id uuid.UUID) []memCartItem {
	out := make([]memCartItem, 0)
	for _, ci := range mc.store.cartItems {
		if ci.cartID == id {
			out = append(out, ci)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (mc *MemoryCarts) GetCart(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	s := mc.store
	s.rlock(ctx)
	defer s.runlock(ctx)
	created, ok := s.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cart := &domain.Cart{ID: id, CreatedAt: created, Items: []domain.CartItem{}}
	for _, ci := range mc.itemsOf(id) {
		cart.Items = append(cart.Items, mc.itemView(ci))
	}
	return cart, nil
}

func (mc *MemoryCarts) CountItems(ctx context.Context, id uuid.UUID) (int, error) {
	s := mc.store
	s.rlock(ctx)
	defer s.runlock(ctx)
	if _, ok := s.carts[id]; !ok {
		return 0, ErrNotFound
	}
	return len(mc.itemsOf(id)), nil
}

func (mc *MemoryCarts) AddItem(ctx context.Context, cartID uuid.UUID, productID, quantity int64) (*domain.CartItem, error) {
	s := mc.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	if _, ok := s.carts[cartID]; !ok {
		return nil, ErrNotFound
	}
	if _, ok := s.products[productID]; !ok {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	for _, ci := range mc.itemsOf(cartID) {
		if ci.productID == productID {
			if quantity > domain.MaxQuantity-ci.quantity {
				return nil, ErrQuantityLimit
			}
			prev := ci
			ci.quantity += quantity
			s.cartItems[ci.id] = ci
			s.journal(ctx, func() { s.cartItems[prev.id] = prev })
			item := mc.itemView(ci)
			return &item, nil
		}
	}
	if quantity > domain.MaxQuantity {
		return nil, ErrQuantityLimit
	}
	ci := memCartItem{id: s.id("cart_items"), cartID: cartID, productID: productID, quantity: quantity}
	s.cartItems[ci.id] = ci
	s.journal(ctx, func() { delete(s.cartItems, ci.id) })
	item := mc.itemView(ci)
	return &item, nil
}

func (mc *MemoryCarts) SetItemQuantity(ctx context.Context, cartID uuid.UUID, itemID, quantity int64) (*domain.CartItem, error) {
	s := mc.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	ci, ok := s.cartItems[itemID]
	if !ok || ci.cartID != cartID {
		return nil, ErrNotFound
	}
	if quantity > domain.MaxQuantity {
		return nil, ErrQuantityLimit
	}
	prev := ci
	ci.quantity = quantity
	s.cartItems[itemID] = ci
	s.journal(ctx, func() { s.cartItems[itemID] = prev })
	item := mc.itemView(ci)
	return &item, nil
}

func (mc *MemoryCarts) RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64) error {
	s := mc.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	ci, ok := s.cartItems[itemID]
	if !ok || ci.cartID != cartID {
		return ErrNotFound
	}
	delete(s.cartItems, itemID)
	s.journal(ctx, func() { s.cartItems[itemID] = ci })
	return nil
}

// LockCart только проверяет наличие: транзакция in-memory уже держит блокировку хранилища
func (mc *MemoryCarts) LockCart(ctx context.Context, id uuid.UUID) error {
	s := mc.store
	s.rlock(ctx)
	defer s.runlock(ctx)
	if _, ok := s.carts[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (mc *MemoryCarts) ListLines(ctx context.Context, id uuid.UUID) ([]CartLine, error) {
	s := mc.store
	s.rlock(ctx)
	defer s.runlock(ctx)
	if _, ok := s.carts[id]; !ok {
		return nil, ErrNotFound
	}
	items := mc.itemsOf(id)
	lines := make([]CartLine, 0, len(items))
	for _, ci := range items {
		p := s.products[ci.productID]
		lines = append(lines, CartLine{
			ItemID:    ci.id,
			ProductID: p.ID,
			Title:     p.Title,
			UnitPrice: p.UnitPrice,
			Quantity:  ci.quantity,
		})
	}
	return lines, nil
}

func (mc *MemoryCarts) DeleteCart(ctx context.Context, id uuid.UUID) error {
	s := mc.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	created, ok := s.carts[id]
	if !ok {
		return ErrNotFound
	}
	items := mc.itemsOf(id)
	for _, ci := range items {
		delete(s.cartItems, ci.id)
	}
	delete(s.carts, id)
	s.journal(ctx, func() {
		s.carts[id] = created
		for _, ci := range items {
			s.cartItems[ci.id] = ci
		}
	})
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) CreateOrder(ctx context.Context, o *domain.Order) error {
	s := mo.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	if _, ok := s.customers[o.CustomerID]; !ok {
		return fmt.Errorf("customer %d: %w", o.CustomerID, ErrNotFound)
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.PaymentStatusPending
	}
	o.ID = s.id("orders")
	o.PlacedAt = s.now()
	row := memOrder{id: o.ID, customerID: o.CustomerID, placedAt: o.PlacedAt, status: o.PaymentStatus}
	s.orders[o.ID] = row
	s.journal(ctx, func() { delete(s.orders, row.id) })
	return nil
}

func (mo *MemoryOrders) CreateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	s := mo.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	// сначала проверяем весь пакет: он применяется целиком или никак
	for _, it := range items {
		if _, ok := s.products[it.Product.ID]; !ok {
			return fmt.Errorf("product %d: %w", it.Product.ID, ErrNotFound)
		}
		if it.Quantity <= 0 || it.Quantity > domain.MaxQuantity {
			return fmt.Errorf("order item quantity %d: %w", it.Quantity, ErrConflict)
		}
	}
	ids := make([]int64, 0, len(items))
	for i := range items {
		row := memOrderItem{
			id:        s.id("order_items"),
			orderID:   orderID,
			productID: items[i].Product.ID,
			unitPrice: items[i].UnitPrice,
			quantity:  items[i].Quantity,
		}
		s.orderItems[row.id] = row
		items[i].ID = row.id
		items[i].OrderID = orderID
		ids = append(ids, row.id)
	}
	s.journal(ctx, func() {
		for _, id := range ids {
			delete(s.orderItems, id)
		}
	})
	return nil
}

func (mo *MemoryOrders) view(o memOrder) domain.Order {
	s := mo.store
	out := domain.Order{
		ID:            o.id,
		CustomerID:    o.customerID,
		PlacedAt:      o.placedAt,
		PaymentStatus: o.status,
		Items:         []domain.OrderItem{},
	}
	for _, oi := range s.orderItems {
		if oi.orderID != o.id {
			continue
		}
		out.Items = append(out.Items, domain.OrderItem{
			ID:        oi.id,
			OrderID:   oi.orderID,
			Product:   s.products[oi.productID].Ref(),
			UnitPrice: oi.unitPrice,
			Quantity:  oi.quantity,
		})
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ID < out.Items[j].ID })
	return out
}

func (mo *MemoryOrders) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := mo.view(o)
	return &out, nil
}

func (mo *MemoryOrders) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.orders {
		if o.customerID == customerID {
			out = append(out, mo.view(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (mo *MemoryOrders) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	s := mo.store
	s.wlock(ctx)
	defer s.wunlock(ctx)
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	prev := o
	o.status = status
	s.orders[id] = o
	s.journal(ctx, func() { s.orders[id] = prev })
	out := mo.view(o)
	return &out, nil
}

// MemoryTx выполняет единицу работы под блокировкой записи хранилища и
// проигрывает журнал отмены при ошибке.
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	// nested call joins the running transaction
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	state := &memTx{}
	defer func() {
		if p := recover(); p != nil {
			state.rollback()
			panic(p)
		}
		if err != nil {
			state.rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		return err
	}
	// a caller deadline that expired during the work aborts the commit
	return ctx.Err()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}
