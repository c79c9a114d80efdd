// Package cart owns the per-user basket. Stock checks here are advisory at
// write time; order placement re-validates under row locks, so a basket can
// legitimately hold more units than remain sellable by checkout time.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// ensureCart returns the user's cart id, creating the cart on first access.
func ensureCart(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var cartID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to query cart: %w", err)
	}

	cartID = uuid.NewString()
	_, err = tx.ExecContext(ctx, `INSERT INTO carts (id, user_id) VALUES ($1, $2)`, cartID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create cart: %w", err)
	}
	return cartID, nil
}

// GetOrCreate returns the user's cart with derived totals, creating an empty
// one on first access.
func (c *Conf) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	var cart Cart
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx,
			`SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1`, cartID).
			Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}

		query := `
			SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity, ci.created_at, ci.updated_at
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.created_at ASC
		`
		rows, err := tx.QueryContext(ctx, query, cartID)
		if err != nil {
			return fmt.Errorf("failed to query cart items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName,
				&it.UnitPrice, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			cart.Items = append(cart.Items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return Cart{}, err
	}
	cart.Derive()
	return cart, nil
}

// AddItem puts quantity units of a product into the user's cart, merging with
// an existing line for the same product.
func (c *Conf) AddItem(ctx context.Context, userID, productID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return Cart{}, apperror.BadRequestf("quantity must be positive")
	}

	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("product not found")
			}
			return fmt.Errorf("failed to query product: %w", err)
		}

		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		var itemID string
		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID).Scan(&itemID, &existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if quantity > stock {
				return apperror.BadRequestf("insufficient stock: requested %d, available %d", quantity, stock)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO cart_items (id, cart_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), cartID, productID, quantity)
			if err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to query cart item: %w", err)
		default:
			if existing+quantity > stock {
				return apperror.BadRequestf("cannot add %d more; only %d more available", quantity, stock-existing)
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`,
				itemID, existing+quantity)
			if err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Cart{}, err
	}
	return c.GetOrCreate(ctx, userID)
}

// UpdateItem overwrites a line's quantity; zero removes the line. An item in
// someone else's cart reads as absent.
func (c *Conf) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (Cart, error) {
	if quantity < 0 {
		return Cart{}, apperror.BadRequestf("quantity must not be negative")
	}

	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var stock int
		query := `
			SELECT p.stock
			FROM cart_items ci
			JOIN carts c ON c.id = ci.cart_id
			JOIN products p ON p.id = ci.product_id
			WHERE ci.id = $1 AND c.user_id = $2
		`
		err := tx.QueryRowContext(ctx, query, itemID, userID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("cart item not found")
			}
			return fmt.Errorf("failed to query cart item: %w", err)
		}

		if quantity == 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
			if err != nil {
				return fmt.Errorf("failed to delete cart item: %w", err)
			}
			return nil
		}
		if quantity > stock {
			return apperror.BadRequestf("only %d units available in stock", stock)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity)
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return Cart{}, err
	}
	return c.GetOrCreate(ctx, userID)
}

// RemoveItem deletes one owned line.
func (c *Conf) RemoveItem(ctx context.Context, userID, itemID string) error {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2
	`
	res, err := c.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFoundf("cart item not found")
	}
	return nil
}

// Clear empties the user's cart.
func (c *Conf) Clear(ctx context.Context, userID string) error {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1
	`
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
