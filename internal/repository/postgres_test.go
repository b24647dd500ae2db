package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/domain"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dsn))

	store, err := NewPostgresStore(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func seedPostgres(t *testing.T, s *PostgresStore) (domain.Product, domain.Product, domain.Customer) {
	t.Helper()
	ctx := context.Background()
	col := domain.Collection{Title: "Groceries"}
	require.NoError(t, s.CreateCollection(ctx, &col))
	a := domain.Product{Title: "Coffee", Slug: "coffee", UnitPrice: decimal.RequireFromString("10.00"), CollectionID: col.ID}
	require.NoError(t, s.CreateProduct(ctx, &a))
	b := domain.Product{Title: "Tea", Slug: "tea", UnitPrice: decimal.RequireFromString("5.00"), CollectionID: col.ID}
	require.NoError(t, s.CreateProduct(ctx, &b))
	c := domain.Customer{UserID: "user-1", Email: "u1@example.com"}
	require.NoError(t, s.CreateCustomer(ctx, &c))
	return a, b, c
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/shop", migrateURL("postgres://u:p@db:5432/shop"))
	assert.Equal(t, "pgx5://db/shop", migrateURL("postgresql://db/shop"))
	assert.Equal(t, "pgx5://db/shop", migrateURL("pgx5://db/shop"))
}

func TestPostgres_CartLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, b, _ := seedPostgres(t, s)

	cart, err := s.CreateCart(ctx)
	require.NoError(t, err)

	_, err = s.AddItem(ctx, cart.ID, a.ID, 2)
	require.NoError(t, err)
	merged, err := s.AddItem(ctx, cart.ID, a.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, merged.Quantity)
	_, err = s.AddItem(ctx, cart.ID, b.ID, 1)
	require.NoError(t, err)

	_, err = s.AddItem(ctx, cart.ID, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.True(t, got.TotalPrice().Equal(decimal.RequireFromString("55")))

	n, err := s.CountItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteCart(ctx, cart.ID))
	assert.ErrorIs(t, s.DeleteCart(ctx, cart.ID), ErrNotFound)
	_, err = s.CountItems(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_OrderSnapshotAndProtect(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, b, c := seedPostgres(t, s)

	o := domain.Order{CustomerID: c.ID}
	require.NoError(t, s.CreateOrder(ctx, &o))
	assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)

	items := []domain.OrderItem{
		{Product: a.Ref(), UnitPrice: a.UnitPrice, Quantity: 2},
		{Product: b.Ref(), UnitPrice: b.UnitPrice, Quantity: 1},
	}
	require.NoError(t, s.CreateItems(ctx, o.ID, items))
	assert.NotZero(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	require.NoError(t, s.UpdatePrice(ctx, a.ID, decimal.RequireFromString("99.99")))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Total().Equal(decimal.RequireFromString("25")))

	assert.ErrorIs(t, s.DeleteProduct(ctx, a.ID), ErrProtected)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, c.ID), ErrProtected)

	updated, err := s.UpdatePaymentStatus(ctx, o.ID, domain.PaymentStatusComplete)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusComplete, updated.PaymentStatus)

	list, err := s.ListOrdersByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgres_TransactionRollback(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, _, c := seedPostgres(t, s)

	cart, err := s.CreateCart(ctx)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, cart.ID, a.ID, 1)
	require.NoError(t, err)

	var orderID int64
	boom := errors.New("boom")
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		o := domain.Order{CustomerID: c.ID}
		if err := s.CreateOrder(ctx, &o); err != nil {
			return err
		}
		orderID = o.ID
		if err := s.DeleteCart(ctx, cart.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetOrder(ctx, orderID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.CountItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgres_ConcurrentCartLock(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, _, _ := seedPostgres(t, s)

	cart, err := s.CreateCart(ctx)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, cart.ID, a.ID, 1)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		notFound int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTransaction(ctx, func(ctx context.Context) error {
				if err := s.LockCart(ctx, cart.ID); err != nil {
					return err
				}
				return s.DeleteCart(ctx, cart.ID)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
	assert.Equal(t, 3, notFound)
}

func TestPostgres_QuantityLimit(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, _, _ := seedPostgres(t, s)

	cart, err := s.CreateCart(ctx)
	require.NoError(t, err)
	item, err := s.AddItem(ctx, cart.ID, a.ID, domain.MaxQuantity)
	require.NoError(t, err)

	_, err = s.AddItem(ctx, cart.ID, a.ID, 1)
	assert.ErrorIs(t, err, ErrQuantityLimit)
	_, err = s.SetItemQuantity(ctx, cart.ID, item.ID, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, ErrQuantityLimit)

	other, err := s.CreateCart(ctx)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, other.ID, a.ID, 1<<40)
	assert.ErrorIs(t, err, ErrQuantityLimit)

	got, err := s.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, domain.MaxQuantity, got.Items[0].Quantity)
}

func TestPostgres_ReviewsCascade(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, _, _ := seedPostgres(t, s)

	r := domain.Review{ProductID: a.ID, Name: "Ann", Description: "Strong"}
	require.NoError(t, s.CreateReview(ctx, &r))
	assert.NotZero(t, r.ID)
	assert.False(t, r.Date.IsZero())

	err := s.CreateReview(ctx, &domain.Review{ProductID: 404, Name: "x", Description: "y"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProduct(ctx, a.ID))
	var left int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM reviews`).Scan(&left))
	assert.Zero(t, left)
}
