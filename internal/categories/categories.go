// Package categories owns the category tree. The self-parent guard only
// looks one level up, matching the behavior the catalog has always had.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/products"
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

// Insert creates a category under an optional parent.
func (c *Conf) Insert(ctx context.Context, nc NewCategory) (Category, error) {
	if nc.ParentID != nil {
		if _, err := c.GetByID(ctx, *nc.ParentID); err != nil {
			if apperror.KindOf(err) == apperror.NotFound {
				return Category{}, apperror.NotFoundf("parent category not found")
			}
			return Category{}, err
		}
	}

	slug, err := c.uniqueSlug(ctx, nc.Name)
	if err != nil {
		return Category{}, err
	}

	cat := Category{
		ID:          uuid.NewString(),
		Name:        nc.Name,
		Slug:        slug,
		Description: nc.Description,
		ParentID:    nc.ParentID,
	}
	query := `
		INSERT INTO categories (id, name, slug, description, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query, cat.ID, cat.Name, cat.Slug, cat.Description, cat.ParentID).
		Scan(&cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return Category{}, apperror.Conflictf("category slug already exists")
		}
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

func (c *Conf) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := products.Slugify(name)
	if base == "" {
		base = "category"
	}
	slug := base
	for counter := 1; ; counter++ {
		var exists bool
		err := c.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, slug).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

const categoryColumns = `c.id, c.name, c.slug, c.description, c.parent_id, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var cat Category
	err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.ParentID,
		&cat.CreatedAt, &cat.UpdatedAt, &cat.ProductCount)
	return cat, err
}

// GetByID fetches one category.
func (c *Conf) GetByID(ctx context.Context, id string) (Category, error) {
	return c.getOne(ctx, "c.id", id)
}

// GetBySlug fetches one category with its direct children.
func (c *Conf) GetBySlug(ctx context.Context, slug string) (Category, error) {
	cat, err := c.getOne(ctx, "c.slug", slug)
	if err != nil {
		return Category{}, err
	}
	children, err := c.childrenOf(ctx, cat.ID)
	if err != nil {
		return Category{}, err
	}
	cat.Children = children
	return cat, nil
}

func (c *Conf) getOne(ctx context.Context, column, value string) (Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories c WHERE %s = $1`, categoryColumns, column)
	cat, err := scanCategory(c.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, apperror.NotFoundf("category not found")
		}
		return Category{}, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// ListTree returns root categories with one level of children attached.
func (c *Conf) ListTree(ctx context.Context) ([]Category, error) {
	roots, err := c.list(ctx, `c.parent_id IS NULL`)
	if err != nil {
		return nil, err
	}
	for i := range roots {
		children, err := c.childrenOf(ctx, roots[i].ID)
		if err != nil {
			return nil, err
		}
		roots[i].Children = children
	}
	return roots, nil
}

func (c *Conf) childrenOf(ctx context.Context, parentID string) ([]Category, error) {
	return c.list(ctx, `c.parent_id = $1`, parentID)
}

func (c *Conf) list(ctx context.Context, cond string, args ...any) ([]Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories c WHERE %s ORDER BY c.name ASC`, categoryColumns, cond)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		list = append(list, cat)
	}
	return list, rows.Err()
}

// Update applies partial edits. A category may not be its own direct parent;
// deeper cycles are not checked here.
func (c *Conf) Update(ctx context.Context, id string, up UpdateCategory) (Category, error) {
	current, err := c.GetByID(ctx, id)
	if err != nil {
		return Category{}, err
	}

	if up.ParentID != nil {
		if *up.ParentID == id {
			return Category{}, apperror.BadRequestf("category cannot be its own parent")
		}
		if _, err := c.GetByID(ctx, *up.ParentID); err != nil {
			if apperror.KindOf(err) == apperror.NotFound {
				return Category{}, apperror.NotFoundf("parent category not found")
			}
			return Category{}, err
		}
	}

	slug := current.Slug
	if up.Name != nil && *up.Name != current.Name {
		slug, err = c.uniqueSlug(ctx, *up.Name)
		if err != nil {
			return Category{}, err
		}
	}

	query := `
		UPDATE categories
		SET name        = COALESCE($2, name),
		    slug        = $3,
		    description = COALESCE($4, description),
		    parent_id   = COALESCE($5, parent_id),
		    updated_at  = NOW()
		WHERE id = $1
	`
	if _, err := c.db.ExecContext(ctx, query, id, up.Name, slug, up.Description, up.ParentID); err != nil {
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return c.GetByID(ctx, id)
}

// Delete removes a childless, productless category.
func (c *Conf) Delete(ctx context.Context, id string) error {
	cat, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var childCount int
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&childCount); err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}
	if childCount > 0 {
		return apperror.BadRequestf("cannot delete category with subcategories; delete or move them first")
	}
	if cat.ProductCount > 0 {
		return apperror.BadRequestf("cannot delete category with %d products; move or delete them first", cat.ProductCount)
	}

	if _, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
