// Package reviews holds verified-purchase product reviews. A user gets one
// review per product and only after a DELIVERED order containing it; rating
// aggregates are derived from the live rows, never stored.
package reviews

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

// Create inserts a review after the purchase gate: the user must have a
// DELIVERED order containing the product. The unique index backs the one
// pre-checked duplicate rule against races.
func (c *Conf) Create(ctx context.Context, userID string, nr NewReview) (Review, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, nr.ProductID).Scan(&exists)
	if err != nil {
		return Review{}, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return Review{}, apperror.NotFoundf("product not found")
	}

	var reviewed bool
	err = c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`,
		nr.ProductID, userID).Scan(&reviewed)
	if err != nil {
		return Review{}, fmt.Errorf("failed to check existing review: %w", err)
	}
	if reviewed {
		return Review{}, apperror.BadRequestf("you have already reviewed this product")
	}

	var purchased bool
	err = c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = $1 AND o.user_id = $2 AND o.status = 'DELIVERED'
		)
	`, nr.ProductID, userID).Scan(&purchased)
	if err != nil {
		return Review{}, fmt.Errorf("failed to check purchase: %w", err)
	}
	if !purchased {
		return Review{}, apperror.BadRequestf("you can only review products you have purchased")
	}

	r := Review{
		ID:        uuid.NewString(),
		ProductID: nr.ProductID,
		UserID:    userID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
	}
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, r.ID, r.ProductID, r.UserID, r.Rating, r.Comment).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return Review{}, apperror.BadRequestf("you have already reviewed this product")
		}
		return Review{}, fmt.Errorf("failed to insert review: %w", err)
	}

	if err := c.db.QueryRowContext(ctx,
		`SELECT name FROM users WHERE id = $1`, userID).Scan(&r.UserName); err != nil {
		return Review{}, fmt.Errorf("failed to query reviewer: %w", err)
	}
	return r, nil
}

// ListForProduct pages the product's reviews newest first, optionally
// filtered by rating. Stats always cover the whole product, not the filtered
// page.
func (c *Conf) ListForProduct(ctx context.Context, productID string, page, limit int, rating *int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := `WHERE r.product_id = $1`
	args := []any{productID}
	if rating != nil {
		args = append(args, *rating)
		where += fmt.Sprintf(` AND r.rating = $%d`, len(args))
	}

	var total int
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews r `+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("failed to count reviews: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT r.id, r.product_id, r.user_id, u.name, r.rating, r.comment,
		       r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		%s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	result := Page{Page: page, Limit: limit, Total: total, Reviews: []Review{}}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.UserName,
			&r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return Page{}, fmt.Errorf("failed to scan review: %w", err)
		}
		result.Reviews = append(result.Reviews, r)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("error iterating reviews: %w", err)
	}
	result.TotalPages = (total + limit - 1) / limit

	stats, err := c.statsFor(ctx, productID)
	if err != nil {
		return Page{}, err
	}
	result.Stats = stats
	return result, nil
}

func (c *Conf) statsFor(ctx context.Context, productID string) (Stats, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE product_id = $1 GROUP BY rating`, productID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query rating counts: %w", err)
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan rating count: %w", err)
		}
		counts[rating] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("error iterating rating counts: %w", err)
	}
	return deriveStats(counts), nil
}

// GetByID reads one review with its reviewer and product context.
func (c *Conf) GetByID(ctx context.Context, reviewID string) (Review, error) {
	var r Review
	err := c.db.QueryRowContext(ctx, `
		SELECT r.id, r.product_id, r.user_id, u.name, r.rating, r.comment,
		       r.created_at, r.updated_at, p.name, p.slug
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		JOIN products p ON p.id = r.product_id
		WHERE r.id = $1
	`, reviewID).Scan(&r.ID, &r.ProductID, &r.UserID, &r.UserName, &r.Rating, &r.Comment,
		&r.CreatedAt, &r.UpdatedAt, &r.ProductName, &r.ProductSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, apperror.NotFoundf("review not found")
		}
		return Review{}, fmt.Errorf("failed to query review: %w", err)
	}
	return r, nil
}

// ListForUser returns everything the user has written, newest first.
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]Review, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT r.id, r.product_id, r.user_id, r.rating, r.comment,
		       r.created_at, r.updated_at, p.name, p.slug
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var list []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt, &r.ProductName, &r.ProductSlug); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// Update edits the user's own review; editing someone else's is forbidden,
// not hidden.
func (c *Conf) Update(ctx context.Context, userID, reviewID string, ur UpdateReview) (Review, error) {
	if err := c.ownerGate(ctx, userID, reviewID, "update"); err != nil {
		return Review{}, err
	}

	_, err := c.db.ExecContext(ctx, `
		UPDATE reviews
		SET rating = COALESCE($2, rating),
		    comment = COALESCE($3, comment),
		    updated_at = NOW()
		WHERE id = $1
	`, reviewID, ur.Rating, ur.Comment)
	if err != nil {
		return Review{}, fmt.Errorf("failed to update review: %w", err)
	}
	return c.GetByID(ctx, reviewID)
}

// Delete removes the user's own review.
func (c *Conf) Delete(ctx context.Context, userID, reviewID string) error {
	if err := c.ownerGate(ctx, userID, reviewID, "delete"); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

func (c *Conf) ownerGate(ctx context.Context, userID, reviewID, verb string) error {
	var ownerID string
	err := c.db.QueryRowContext(ctx,
		`SELECT user_id FROM reviews WHERE id = $1`, reviewID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFoundf("review not found")
		}
		return fmt.Errorf("failed to query review: %w", err)
	}
	if ownerID != userID {
		return apperror.Forbiddenf("you can only %s your own reviews", verb)
	}
	return nil
}
