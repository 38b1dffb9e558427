package products

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"manualhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Serial     string // substring match (admin surface only)
	ManualCode string
	Limit      int
	Offset     int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const productColumns = `id, serial_number, manual_code, revision_code, notes, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ?
	`, id)

	p, err := scanProductRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// SerialExists reports whether any product row already carries the
// serial number; creation rejects duplicates with a conflict.
func (r *Repo) SerialExists(ctx context.Context, serial string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE serial_number = ?`, serial).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("serial exists: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	where, args := buildFilters(q)
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Product, error) {
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildFilters(q)
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0, limit)
	for rows.Next() {
		p, err := scanProductRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product rows: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, p models.Product) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO products (id, serial_number, manual_code, revision_code, notes)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.SerialNumber, nullable(p.ManualCode), nullable(p.RevisionCode), nullable(p.Notes))
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p models.Product) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE products
		SET serial_number = ?, manual_code = ?, revision_code = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, p.SerialNumber, nullable(p.ManualCode), nullable(p.RevisionCode), nullable(p.Notes),
		time.Now().UTC(), p.ID)
	if err != nil {
		return false, fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update product rows: %w", err)
	}
	return affected > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete product rows: %w", err)
	}
	return affected > 0, nil
}

func buildFilters(q ListQuery) (string, []any) {
	var where []string
	var args []any

	if s := strings.TrimSpace(q.Serial); s != "" {
		where = append(where, "serial_number LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if c := strings.TrimSpace(q.ManualCode); c != "" {
		where = append(where, "manual_code = ?")
		args = append(args, c)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanProductRow(scan func(dest ...any) error) (*models.Product, error) {
	var (
		p            models.Product
		manualCode   sql.NullString
		revisionCode sql.NullString
		notes        sql.NullString
	)
	if err := scan(&p.ID, &p.SerialNumber, &manualCode, &revisionCode, &notes,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ManualCode = manualCode.String
	p.RevisionCode = revisionCode.String
	p.Notes = notes.String
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
