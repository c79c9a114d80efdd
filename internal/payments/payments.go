// Package payments drives the simulated bkash checkout flow. Initiate
// reserves a payment record against a pending order; Execute settles it and
// flips the order to PAID in the same transaction, so a payment can never
// succeed against an order that stays unpaid.
package payments

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/email"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/kafka"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

type Conf struct {
	db      *sql.DB
	broker  *kafka.Conf
	sender  email.Sender
	baseURL string
}

// NewConf wires the payment flow. broker and sender may be nil; settlement
// then skips the corresponding notification.
func NewConf(db *sql.DB, broker *kafka.Conf, sender email.Sender, baseURL string) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db, broker: broker, sender: sender, baseURL: baseURL}, nil
}

// mintReference produces the provider-style payment reference. 64 random bits
// keep collisions out of reach; the unique index on transaction_id is the
// backstop.
func mintReference() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate payment reference: %w", err)
	}
	return "BKASH_" + hex.EncodeToString(buf), nil
}

// Initiate opens (or reopens) a checkout for the order. Re-initiating a
// pending or failed payment mints a fresh reference and resets the record to
// PENDING; a settled payment cannot be reopened.
func (c *Conf) Initiate(ctx context.Context, userID, orderID string) (Checkout, error) {
	reference, err := mintReference()
	if err != nil {
		return Checkout{}, err
	}

	err = postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var ownerID, status string
		var total int64
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, status, total_amount FROM orders WHERE id = $1 FOR UPDATE`, orderID).
			Scan(&ownerID, &status, &total)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("order not found")
			}
			return fmt.Errorf("failed to query order: %w", err)
		}
		if ownerID != userID {
			return apperror.Unauthorizedf("unauthorized")
		}
		switch status {
		case "PAID", "PROCESSING", "SHIPPED", "DELIVERED":
			return apperror.BadRequestf("order is already paid")
		case "CANCELLED":
			return apperror.BadRequestf("order is cancelled")
		}

		var current string
		err = tx.QueryRowContext(ctx,
			`SELECT status FROM payments WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// first checkout for this order
		case err != nil:
			return fmt.Errorf("failed to query payment: %w", err)
		case current == StatusSuccess:
			return apperror.BadRequestf("order is already paid")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, order_id, amount, transaction_id, status, provider)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (order_id) DO UPDATE
			SET transaction_id = EXCLUDED.transaction_id,
			    amount = EXCLUDED.amount,
			    status = EXCLUDED.status,
			    updated_at = NOW()
		`, uuid.NewString(), orderID, total, reference, StatusPending, Provider)
		if err != nil {
			return fmt.Errorf("failed to upsert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}

	return Checkout{
		PaymentID: reference,
		BkashURL:  fmt.Sprintf("%s/api/v1/payments/mock-bkash-page?paymentID=%s", c.baseURL, reference),
	}, nil
}

// Execute settles the payment identified by its provider reference. The
// idempotency check runs inside the transaction under a row lock: replaying a
// callback for an already-settled payment returns the record unchanged, and
// two concurrent callbacks cannot both observe PENDING.
func (c *Conf) Execute(ctx context.Context, reference string) (Payment, error) {
	var p Payment
	var settled bool

	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, order_id, amount, transaction_id, status, provider, created_at, updated_at
			FROM payments
			WHERE transaction_id = $1
			FOR UPDATE
		`, reference).Scan(&p.ID, &p.OrderID, &p.Amount, &p.TransactionID, &p.Status,
			&p.Provider, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("invalid payment reference")
			}
			return fmt.Errorf("failed to query payment: %w", err)
		}

		if p.Status == StatusSuccess {
			return nil
		}
		// Cancelling an order fails its payment; a late or replayed success
		// callback must not resurrect it and re-pay a cancelled order. A
		// genuine retry goes through Initiate, which mints a fresh reference.
		if p.Status == StatusFailed {
			return apperror.BadRequestf("payment is no longer valid")
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			p.ID, StatusSuccess).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to settle payment: %w", err)
		}
		p.Status = StatusSuccess

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = 'PAID', updated_at = NOW() WHERE id = $1`,
			p.OrderID); err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}

		settled = true
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	if settled {
		c.notifySettled(ctx, p)
	}
	return p, nil
}

// GetForOrder reads the payment attached to one of the user's orders.
func (c *Conf) GetForOrder(ctx context.Context, userID, orderID string) (Payment, error) {
	var p Payment
	err := c.db.QueryRowContext(ctx, `
		SELECT p.id, p.order_id, p.amount, p.transaction_id, p.status, p.provider,
		       p.created_at, p.updated_at
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE p.order_id = $1 AND o.user_id = $2
	`, orderID, userID).Scan(&p.ID, &p.OrderID, &p.Amount, &p.TransactionID, &p.Status,
		&p.Provider, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, apperror.NotFoundf("payment not found")
		}
		return Payment{}, fmt.Errorf("failed to query payment: %w", err)
	}
	return p, nil
}

// notifySettled runs after commit: one order-paid event per snapshot line for
// downstream consumers, plus the receipt email. Neither can undo the
// settlement, so failures are logged and dropped.
func (c *Conf) notifySettled(ctx context.Context, p Payment) {
	if c.broker != nil {
		rows, err := c.db.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, p.OrderID)
		if err != nil {
			slog.Error("querying order lines for order-paid events",
				slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
		} else {
			defer rows.Close()
			for rows.Next() {
				var productID string
				var quantity int
				if err := rows.Scan(&productID, &quantity); err != nil {
					slog.Error("scanning order line",
						slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
					break
				}
				event := kafka.OrderPaidEvent{
					OrderID:   p.OrderID,
					ProductID: productID,
					Quantity:  quantity,
					CreatedAt: time.Now(),
				}
				value, err := json.Marshal(event)
				if err != nil {
					slog.Error("marshalling order-paid event",
						slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
					continue
				}
				if err := c.broker.ProduceMessage(kafka.TopicOrderPaid, []byte(p.OrderID), value); err != nil {
					slog.Error("producing order-paid event",
						slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
				}
			}
			if err := rows.Err(); err != nil {
				slog.Error("iterating order lines",
					slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
			}
		}
	}

	if c.sender == nil {
		return
	}
	var addr string
	err := c.db.QueryRowContext(ctx, `
		SELECT u.email FROM users u JOIN orders o ON o.user_id = u.id WHERE o.id = $1
	`, p.OrderID).Scan(&addr)
	if err != nil {
		slog.Error("looking up user email for receipt",
			slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	subject, body := email.PaymentSuccessBody(p.OrderID, p.Amount)
	if err := c.sender.Send(addr, subject, body); err != nil {
		slog.Error("sending payment receipt",
			slog.String(logkey.OrderID, p.OrderID), slog.String(logkey.ERROR, err.Error()))
	}
}
