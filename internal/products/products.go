// Package products owns the catalog: products, their images, slugs and
// derived rating figures. Stock is mutated here only through direct admin
// edits; order placement and cancellation adjust it inside the order store's
// transactions.
package products

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

// InsertProduct creates a product with a unique slug derived from its name.
func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	if np.CategoryID != nil {
		var exists bool
		err := c.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, *np.CategoryID).Scan(&exists)
		if err != nil {
			return Product{}, fmt.Errorf("failed to check category: %w", err)
		}
		if !exists {
			return Product{}, apperror.NotFoundf("category not found")
		}
	}

	slug, err := c.uniqueSlug(ctx, np.Name)
	if err != nil {
		return Product{}, err
	}

	p := Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Slug:        slug,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
		CategoryID:  np.CategoryID,
	}
	query := `
		INSERT INTO products (id, name, slug, description, price, stock, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return Product{}, apperror.Conflictf("product slug already exists")
		}
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

// uniqueSlug appends -N until the slug is free. The retry loop terminates in
// practice on the first or second attempt.
func (c *Conf) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "product"
	}
	slug := base
	for counter := 1; ; counter++ {
		var exists bool
		err := c.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`, slug).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.stock, p.category_id,
	p.created_at, p.updated_at,
	(SELECT ROUND(AVG(r.rating)::numeric, 1) FROM reviews r WHERE r.product_id = p.id),
	(SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id)`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.CategoryID,
		&p.CreatedAt, &p.UpdatedAt, &p.AverageRating, &p.ReviewCount)
	return p, err
}

// List returns a filtered, paginated product page plus the total match count.
func (c *Conf) List(ctx context.Context, f Filters) ([]Product, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	where := "WHERE 1=1"
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args))
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where += fmt.Sprintf(" AND p.price >= $%d", len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where += fmt.Sprintf(" AND p.price <= $%d", len(args))
	}
	if f.InStock {
		where += " AND p.stock > 0"
	}

	orderBy := "p.created_at DESC"
	switch f.SortBy {
	case "price_asc":
		orderBy = "p.price ASC"
	case "price_desc":
		orderBy = "p.price DESC"
	case "name":
		orderBy = "p.name ASC"
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`SELECT %s FROM products p %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	if err := c.attachImages(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetByID fetches one product with images and rating figures.
func (c *Conf) GetByID(ctx context.Context, id string) (Product, error) {
	return c.getOne(ctx, "p.id", id)
}

// GetBySlug fetches one product by its slug.
func (c *Conf) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return c.getOne(ctx, "p.slug", slug)
}

func (c *Conf) getOne(ctx context.Context, column, value string) (Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE %s = $1`, productColumns, column)
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperror.NotFoundf("product not found")
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	list := []Product{p}
	if err := c.attachImages(ctx, list); err != nil {
		return Product{}, err
	}
	return list[0], nil
}

func (c *Conf) attachImages(ctx context.Context, list []Product) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, p := range list {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query := `
		SELECT id, product_id, url, alt_text, is_primary, sort_order, created_at
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY sort_order ASC
	`
	rows, err := c.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.IsPrimary, &img.SortOrder, &img.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan image: %w", err)
		}
		i := index[img.ProductID]
		list[i].Images = append(list[i].Images, img)
	}
	return rows.Err()
}

// Update applies partial edits, re-slugging when the name changes.
func (c *Conf) Update(ctx context.Context, id string, up UpdateProduct) (Product, error) {
	current, err := c.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if up.CategoryID != nil {
		var exists bool
		err := c.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, *up.CategoryID).Scan(&exists)
		if err != nil {
			return Product{}, fmt.Errorf("failed to check category: %w", err)
		}
		if !exists {
			return Product{}, apperror.NotFoundf("category not found")
		}
	}

	slug := current.Slug
	if up.Name != nil && *up.Name != current.Name {
		slug, err = c.uniqueSlug(ctx, *up.Name)
		if err != nil {
			return Product{}, err
		}
	}

	query := `
		UPDATE products
		SET name        = COALESCE($2, name),
		    slug        = $3,
		    description = COALESCE($4, description),
		    price       = COALESCE($5, price),
		    stock       = COALESCE($6, stock),
		    category_id = COALESCE($7, category_id),
		    updated_at  = NOW()
		WHERE id = $1
	`
	if _, err := c.db.ExecContext(ctx, query,
		id, up.Name, slug, up.Description, up.Price, up.Stock, up.CategoryID); err != nil {
		// uniqueSlug ran outside this statement, so a concurrent rename can
		// still take the slug in between.
		if postgres.IsUniqueViolation(err) {
			return Product{}, apperror.Conflictf("product slug already exists")
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return c.GetByID(ctx, id)
}

// Delete removes a product. Products that appear on any order are kept for
// snapshot integrity; cart references are purged first.
func (c *Conf) Delete(ctx context.Context, id string) error {
	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return apperror.NotFoundf("product not found")
		}

		var ordered bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, id).Scan(&ordered); err != nil {
			return fmt.Errorf("failed to check order items: %w", err)
		}
		if ordered {
			return apperror.BadRequestf("cannot delete a product that has been ordered; set its stock to 0 instead")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to remove cart references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

// AddImage attaches an image; flagging it primary demotes any existing
// primary in the same transaction.
func (c *Conf) AddImage(ctx context.Context, productID string, ni NewImage) (Image, error) {
	img := Image{
		ID:        uuid.NewString(),
		ProductID: productID,
		URL:       ni.URL,
		AltText:   ni.AltText,
		IsPrimary: ni.IsPrimary,
		SortOrder: ni.SortOrder,
	}
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return apperror.NotFoundf("product not found")
		}

		if ni.IsPrimary {
			if _, err := tx.ExecContext(ctx,
				`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1`, productID); err != nil {
				return fmt.Errorf("failed to demote primary images: %w", err)
			}
		}
		query := `
			INSERT INTO product_images (id, product_id, url, alt_text, is_primary, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		return tx.QueryRowContext(ctx, query,
			img.ID, img.ProductID, img.URL, img.AltText, img.IsPrimary, img.SortOrder).
			Scan(&img.CreatedAt)
	})
	if err != nil {
		return Image{}, err
	}
	return img, nil
}

// DeleteImage removes one image.
func (c *Conf) DeleteImage(ctx context.Context, imageID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM product_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFoundf("image not found")
	}
	return nil
}

// SetPrimaryImage makes one image primary and demotes its siblings.
func (c *Conf) SetPrimaryImage(ctx context.Context, imageID string) (Image, error) {
	var img Image
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		query := `
			SELECT id, product_id, url, alt_text, is_primary, sort_order, created_at
			FROM product_images
			WHERE id = $1
			FOR UPDATE
		`
		err := tx.QueryRowContext(ctx, query, imageID).
			Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.IsPrimary, &img.SortOrder, &img.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundf("image not found")
			}
			return fmt.Errorf("failed to query image: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1`, img.ProductID); err != nil {
			return fmt.Errorf("failed to demote primary images: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_images SET is_primary = TRUE WHERE id = $1`, imageID); err != nil {
			return fmt.Errorf("failed to set primary image: %w", err)
		}
		img.IsPrimary = true
		return nil
	})
	if err != nil {
		return Image{}, err
	}
	return img, nil
}
