// Package addresses owns the per-user address book. At most one address per
// user carries the default flag; flipping it demotes the others inside the
// same transaction.
package addresses

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

const addressColumns = `id, user_id, label, line1, line2, city, postal_code, country, is_default, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Line1, &a.Line2, &a.City,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Insert adds an address for the user.
func (c *Conf) Insert(ctx context.Context, userID string, na NewAddress) (Address, error) {
	a := Address{
		ID:         uuid.NewString(),
		UserID:     userID,
		Label:      na.Label,
		Line1:      na.Line1,
		Line2:      na.Line2,
		City:       na.City,
		PostalCode: na.PostalCode,
		Country:    na.Country,
		IsDefault:  na.IsDefault,
	}
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if na.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE addresses SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
				return fmt.Errorf("failed to demote default addresses: %w", err)
			}
		}
		query := `
			INSERT INTO addresses (id, user_id, label, line1, line2, city, postal_code, country, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`
		return tx.QueryRowContext(ctx, query,
			a.ID, a.UserID, a.Label, a.Line1, a.Line2, a.City, a.PostalCode, a.Country, a.IsDefault).
			Scan(&a.CreatedAt, &a.UpdatedAt)
	})
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

// ListForUser returns the user's addresses, default first.
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]Address, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`, addressColumns)
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var list []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetForUser fetches one address scoped to its owner. A foreign address reads
// as absent.
func (c *Conf) GetForUser(ctx context.Context, userID, addressID string) (Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1 AND user_id = $2`, addressColumns)
	a, err := scanAddress(c.db.QueryRowContext(ctx, query, addressID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, apperror.NotFoundf("address not found")
		}
		return Address{}, fmt.Errorf("failed to query address: %w", err)
	}
	return a, nil
}

// Update overwrites an owned address.
func (c *Conf) Update(ctx context.Context, userID, addressID string, na NewAddress) (Address, error) {
	var a Address
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`,
			addressID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check address: %w", err)
		}
		if !exists {
			return apperror.NotFoundf("address not found")
		}

		if na.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND id <> $2`,
				userID, addressID); err != nil {
				return fmt.Errorf("failed to demote default addresses: %w", err)
			}
		}

		query := fmt.Sprintf(`
			UPDATE addresses
			SET label = $3, line1 = $4, line2 = $5, city = $6, postal_code = $7,
			    country = $8, is_default = $9, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING %s
		`, addressColumns)
		var err error
		a, err = scanAddress(tx.QueryRowContext(ctx, query,
			addressID, userID, na.Label, na.Line1, na.Line2, na.City, na.PostalCode, na.Country, na.IsDefault))
		if err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}
		return nil
	})
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

// Delete removes an owned address.
func (c *Conf) Delete(ctx context.Context, userID, addressID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.BadRequestf("address is referenced by existing orders")
		}
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFoundf("address not found")
	}
	return nil
}
