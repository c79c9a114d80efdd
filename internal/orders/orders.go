// Package orders is the order/inventory transaction core. Every multi-entity
// mutation here runs as one transaction with row locks on the products it
// touches, so concurrent requests against the same stock serialize instead of
// double-selling. Notifications happen after commit and never fail an order.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/cart"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/email"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

type Conf struct {
	db     *sql.DB
	cart   *cart.Conf
	sender email.Sender
}

func NewConf(db *sql.DB, cartConf *cart.Conf, sender email.Sender) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db, cart: cartConf, sender: sender}, nil
}

// Create places an order for the given lines. Address check, stock
// validation, order + snapshot insert and stock decrement commit or roll back
// together. Product rows are locked first, so two orders racing for the last
// units cannot both pass validation.
func (c *Conf) Create(ctx context.Context, userID string, items []NewItem, shippingAddressID *string) (Order, error) {
	if len(items) == 0 {
		return Order{}, apperror.BadRequestf("order must contain at least one item")
	}
	items = mergeLines(items)

	order := Order{
		ID:                uuid.NewString(),
		UserID:            userID,
		Status:            StatusPending,
		ShippingAddressID: shippingAddressID,
	}

	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if shippingAddressID != nil {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`,
				*shippingAddressID, userID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check shipping address: %w", err)
			}
			if !exists {
				return apperror.NotFoundf("invalid shipping address")
			}
		}

		productIDs := make([]string, len(items))
		for i, it := range items {
			productIDs[i] = it.ProductID
		}

		// Lock the product rows up front. Ordering by id keeps lock
		// acquisition consistent across concurrent orders.
		type lockedProduct struct {
			name  string
			price int64
			stock int
		}
		locked := make(map[string]lockedProduct, len(items))
		query := `
			SELECT id, name, price, stock
			FROM products
			WHERE id = ANY($1)
			ORDER BY id
			FOR UPDATE
		`
		rows, err := tx.QueryContext(ctx, query, productIDs)
		if err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var p lockedProduct
			if err := rows.Scan(&id, &p.name, &p.price, &p.stock); err != nil {
				return fmt.Errorf("failed to scan product: %w", err)
			}
			locked[id] = p
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating products: %w", err)
		}

		order.TotalAmount = 0
		order.Items = order.Items[:0]
		for _, it := range items {
			p, ok := locked[it.ProductID]
			if !ok {
				return apperror.NotFoundf("product %s not found", it.ProductID)
			}
			if p.stock < it.Quantity {
				return apperror.BadRequestf("insufficient stock for %s: available %d, requested %d",
					p.name, p.stock, it.Quantity)
			}
			order.TotalAmount += lineTotal(p.price, it.Quantity)
			order.Items = append(order.Items, Item{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductID:   it.ProductID,
				ProductName: p.name,
				Quantity:    it.Quantity,
				UnitPrice:   p.price,
			})
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (id, user_id, status, total_amount, shipping_address_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`, order.ID, order.UserID, order.Status, order.TotalAmount, order.ShippingAddressID).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Items {
			it := &order.Items[i]
			err := tx.QueryRowContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at
			`, it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice).
				Scan(&it.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`,
				it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	c.notifyOrderConfirmed(ctx, order)
	return order, nil
}

// notifyOrderConfirmed dispatches the confirmation email. Failures are
// logged, never surfaced: the order is already committed.
func (c *Conf) notifyOrderConfirmed(ctx context.Context, order Order) {
	if c.sender == nil {
		return
	}
	var addr string
	if err := c.db.QueryRowContext(ctx,
		`SELECT email FROM users WHERE id = $1`, order.UserID).Scan(&addr); err != nil {
		slog.Error("looking up user email for confirmation",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	subject, body := email.OrderConfirmationBody(order.ID, order.TotalAmount)
	if err := c.sender.Send(addr, subject, body); err != nil {
		slog.Error("sending order confirmation",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}

// CreateFromCart places an order for everything in the user's cart and, only
// on success, empties the cart. Cart clearing is deliberately outside the
// order transaction; a failed clear leaves a stale basket, not a broken
// order.
func (c *Conf) CreateFromCart(ctx context.Context, userID string, shippingAddressID *string) (Order, error) {
	basket, err := c.cart.GetOrCreate(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if len(basket.Items) == 0 {
		return Order{}, apperror.BadRequestf("cart is empty")
	}

	items := make([]NewItem, len(basket.Items))
	for i, it := range basket.Items {
		items[i] = NewItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, err := c.Create(ctx, userID, items, shippingAddressID)
	if err != nil {
		return Order{}, err
	}

	if err := c.cart.Clear(ctx, userID); err != nil {
		slog.Error("clearing cart after checkout",
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
	}
	return order, nil
}

// Cancel reverses a pending order: status to CANCELLED, stock restored for
// every line, and any payment row marked FAILED — one transaction.
func (c *Conf) Cancel(ctx context.Context, userID, orderID string) error {
	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var ownerID, status string
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, status FROM orders WHERE id = $1 FOR UPDATE`, orderID).
			Scan(&ownerID, &status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("order not found")
			}
			return fmt.Errorf("failed to query order: %w", err)
		}
		if ownerID != userID {
			return apperror.Unauthorizedf("unauthorized")
		}
		if err := cancelGuard(status); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
			orderID, StatusCancelled); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		// Restore stock for every snapshot line.
		if _, err := tx.ExecContext(ctx, `
			UPDATE products p
			SET stock = p.stock + oi.quantity, updated_at = NOW()
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id
		`, orderID); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}

		// A PAID order never reaches this point, so any payment here is at
		// most PENDING; marking it FAILED keeps the records consistent.
		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = 'FAILED', updated_at = NOW() WHERE order_id = $1`,
			orderID); err != nil {
			return fmt.Errorf("failed to fail payment: %w", err)
		}
		return nil
	})
}

// UpdateStatus is the administrative overwrite. It never touches stock: the
// inventory moved at creation time and moves back only through Cancel.
func (c *Conf) UpdateStatus(ctx context.Context, orderID, status string, trackingNumber *string) (Order, error) {
	if !ValidStatus(status) {
		return Order{}, apperror.BadRequestf("unknown order status %q", status)
	}

	var order Order
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var estimated *time.Time
		err := tx.QueryRowContext(ctx,
			`SELECT estimated_delivery FROM orders WHERE id = $1 FOR UPDATE`, orderID).
			Scan(&estimated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("order not found")
			}
			return fmt.Errorf("failed to query order: %w", err)
		}

		if status == StatusShipped && estimated == nil {
			t := time.Now().Add(EstimatedDeliveryLead)
			estimated = &t
		}

		query := `
			UPDATE orders
			SET status = $2,
			    tracking_number = COALESCE($3, tracking_number),
			    estimated_delivery = $4,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, user_id, status, total_amount, shipping_address_id,
			          tracking_number, estimated_delivery, created_at, updated_at
		`
		err = tx.QueryRowContext(ctx, query, orderID, status, trackingNumber, estimated).
			Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.ShippingAddressID,
				&order.TrackingNumber, &order.EstimatedDelivery, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	items, err := c.itemsOf(ctx, order.ID)
	if err != nil {
		return Order{}, err
	}
	order.Items = items
	return order, nil
}

const orderColumns = `id, user_id, status, total_amount, shipping_address_id,
	tracking_number, estimated_delivery, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddressID,
		&o.TrackingNumber, &o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetForUser fetches one order for its owner. An order that exists under
// another account still reads as unauthorized, matching the cancel path.
func (c *Conf) GetForUser(ctx context.Context, userID, orderID string) (Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	o, err := scanOrder(c.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, apperror.NotFoundf("order not found")
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	if o.UserID != userID {
		return Order{}, apperror.Unauthorizedf("unauthorized")
	}

	items, err := c.itemsOf(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	return c.listWithItems(ctx, query, userID)
}

// ListAll is the admin listing with an optional status filter.
func (c *Conf) ListAll(ctx context.Context, status string, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := ""
	args := []any{}
	if status != "" {
		if !ValidStatus(status) {
			return nil, 0, apperror.BadRequestf("unknown order status %q", status)
		}
		args = append(args, status)
		where = "WHERE status = $1"
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	list, err := c.listWithItems(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (c *Conf) listWithItems(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range list {
		items, err := c.itemsOf(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Items = items
	}
	return list, nil
}

func (c *Conf) itemsOf(ctx context.Context, orderID string) ([]Item, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DashboardStats aggregates the figures shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers     int             `json:"total_users"`
	TotalProducts  int             `json:"total_products"`
	TotalOrders    int             `json:"total_orders"`
	TotalRevenue   int64           `json:"total_revenue"`
	OrdersByStatus map[string]int  `json:"orders_by_status"`
	LowStock       []LowStockAlert `json:"low_stock_products"`
}

type LowStockAlert struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Price     int64  `json:"price"`
}

// Dashboard computes admin statistics; revenue counts PAID and DELIVERED
// orders.
func (c *Conf) Dashboard(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{OrdersByStatus: map[string]int{}}

	err := c.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM products),
		       (SELECT COUNT(*) FROM orders),
		       COALESCE((SELECT SUM(total_amount) FROM orders WHERE status IN ('PAID', 'DELIVERED')), 0)
	`).Scan(&stats.TotalUsers, &stats.TotalProducts, &stats.TotalOrders, &stats.TotalRevenue)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("failed to query dashboard counters: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("failed to query order statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return DashboardStats{}, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.OrdersByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return DashboardStats{}, fmt.Errorf("error iterating statuses: %w", err)
	}

	low, err := c.db.QueryContext(ctx, `
		SELECT id, name, stock, price
		FROM products
		WHERE stock <= 10
		ORDER BY stock ASC
		LIMIT 10
	`)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("failed to query low stock: %w", err)
	}
	defer low.Close()
	for low.Next() {
		var a LowStockAlert
		if err := low.Scan(&a.ProductID, &a.Name, &a.Stock, &a.Price); err != nil {
			return DashboardStats{}, fmt.Errorf("failed to scan low stock row: %w", err)
		}
		stats.LowStock = append(stats.LowStock, a)
	}
	return stats, low.Err()
}
