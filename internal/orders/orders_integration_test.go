//go:build integration
// +build integration

package orders_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/cart"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/orders"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/payments"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.RunMigrations(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, 'x', 'Test User', 'CUSTOMER')
	`, id, id+"@example.com")
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, db *sql.DB, name string, price int64, stock int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO products (id, name, slug, description, price, stock)
		VALUES ($1, $2, $3, '', $4, $5)
	`, id, name, uuid.NewString(), price, stock)
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, db *sql.DB, productID string) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	return stock
}

func TestCreateOrderConcurrentStockRace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	conf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)

	userA := seedUser(t, db)
	userB := seedUser(t, db)
	productID := seedProduct(t, db, "Last Units", 1000, 5)

	items := []orders.NewItem{{ProductID: productID, Quantity: 3}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{userA, userB} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = conf.Create(ctx, userID, items, nil)
		}(i, userID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two racing orders must fail")
	assert.Equal(t, 2, stockOf(t, db, productID))
}

func TestCreateOrderAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	conf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)

	userID := seedUser(t, db)
	goodProduct := seedProduct(t, db, "In Stock", 500, 10)

	_, err = conf.Create(ctx, userID, []orders.NewItem{
		{ProductID: goodProduct, Quantity: 2},
		{ProductID: uuid.NewString(), Quantity: 1},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))

	// The valid line must not have moved any stock or left an order behind.
	assert.Equal(t, 10, stockOf(t, db, goodProduct))
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestCreateOrderDuplicateLines(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	conf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "Split Lines", 900, 5)

	// Two lines of 3 against stock 5: the combined quantity must be rejected
	// as insufficient stock, not slip past per-line validation.
	_, err = conf.Create(ctx, userID, []orders.NewItem{
		{ProductID: productID, Quantity: 3},
		{ProductID: productID, Quantity: 3},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))
	assert.Equal(t, 5, stockOf(t, db, productID))

	// A combined quantity within stock goes through as one line.
	order, err := conf.Create(ctx, userID, []orders.NewItem{
		{ProductID: productID, Quantity: 2},
		{ProductID: productID, Quantity: 2},
	}, nil)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 4, order.Items[0].Quantity)
	assert.Equal(t, int64(3600), order.TotalAmount)
	assert.Equal(t, 1, stockOf(t, db, productID))
}

func TestCancelRestoresStock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	conf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "Cancellable", 750, 8)

	order, err := conf.Create(ctx, userID, []orders.NewItem{{ProductID: productID, Quantity: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, db, productID))

	require.NoError(t, conf.Cancel(ctx, userID, order.ID))
	assert.Equal(t, 8, stockOf(t, db, productID))

	// A second cancel reports the distinct already-cancelled message.
	err = conf.Cancel(ctx, userID, order.ID)
	require.Error(t, err)
	assert.Equal(t, "order is already cancelled", apperror.Message(err))
	assert.Equal(t, 8, stockOf(t, db, productID), "stock must not be restored twice")

	// Cancelling someone else's order is unauthorized.
	other := seedUser(t, db)
	order2, err := conf.Create(ctx, userID, []orders.NewItem{{ProductID: productID, Quantity: 1}}, nil)
	require.NoError(t, err)
	err = conf.Cancel(ctx, other, order2.ID)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))
}

func TestExecutePaymentIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)
	payConf, err := payments.NewConf(db, nil, nil, "http://localhost:8080")
	require.NoError(t, err)

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "Payable", 2000, 4)

	order, err := orderConf.Create(ctx, userID, []orders.NewItem{{ProductID: productID, Quantity: 2}}, nil)
	require.NoError(t, err)

	checkout, err := payConf.Initiate(ctx, userID, order.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]payments.Payment, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = payConf.Execute(ctx, checkout.PaymentID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, payments.StatusSuccess, results[i].Status)
	}

	got, err := orderConf.GetForUser(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)

	// A paid order cannot be cancelled or re-initiated.
	err = orderConf.Cancel(ctx, userID, order.ID)
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))
	_, err = payConf.Initiate(ctx, userID, order.ID)
	assert.Equal(t, "order is already paid", apperror.Message(err))
}

func TestExecutePaymentAfterCancel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)
	payConf, err := payments.NewConf(db, nil, nil, "http://localhost:8080")
	require.NoError(t, err)

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "Abandoned", 1500, 6)

	order, err := orderConf.Create(ctx, userID, []orders.NewItem{{ProductID: productID, Quantity: 2}}, nil)
	require.NoError(t, err)
	checkout, err := payConf.Initiate(ctx, userID, order.ID)
	require.NoError(t, err)

	require.NoError(t, orderConf.Cancel(ctx, userID, order.ID))

	// A late success callback for the failed payment must not re-pay the
	// cancelled order.
	_, err = payConf.Execute(ctx, checkout.PaymentID)
	require.Error(t, err)
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))

	got, err := orderConf.GetForUser(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	payment, err := payConf.GetForOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, payment.Status)
	assert.Equal(t, 6, stockOf(t, db, productID), "restored stock must stay restored")
}

func TestCheckoutFromCart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	conf, err := orders.NewConf(db, cartConf, nil)
	require.NoError(t, err)

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "Cart Bound", 1200, 10)

	// Adding the same product twice merges quantities.
	_, err = cartConf.AddItem(ctx, userID, productID, 2)
	require.NoError(t, err)
	basket, err := cartConf.AddItem(ctx, userID, productID, 3)
	require.NoError(t, err)
	require.Len(t, basket.Items, 1)
	assert.Equal(t, 5, basket.Items[0].Quantity)
	assert.Equal(t, int64(6000), basket.Total)

	// Merging past the available stock is rejected.
	_, err = cartConf.AddItem(ctx, userID, productID, 6)
	require.Error(t, err)
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))

	order, err := conf.CreateFromCart(ctx, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), order.TotalAmount)
	assert.Equal(t, 5, stockOf(t, db, productID))

	basket, err = cartConf.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, basket.Items, "checkout must clear the cart")

	// An empty cart cannot be checked out again.
	_, err = conf.CreateFromCart(ctx, userID, nil)
	assert.Equal(t, "cart is empty", apperror.Message(err))
}
