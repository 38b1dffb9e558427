package manuals

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
	ManualCode string // substring match
	Language   string
	Revision   string
	Limit      int
	Offset     int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const manualColumns = `id, manual_code, name, description, language, revision_code, file_url, file_key, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Manual, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+manualColumns+`
		FROM manuals
		WHERE id = ?
	`, id)

	m, err := scanManualRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get manual: %w", err)
	}
	return m, nil
}

// VariantExists reports whether a row already covers the same
// code/language/revision combination.
func (r *Repo) VariantExists(ctx context.Context, manualCode, language, revision string) (bool, error) {
	query := `SELECT COUNT(*) FROM manuals WHERE manual_code = ? AND language = ?`
	args := []any{manualCode, language}
	if revision == "" {
		query += ` AND revision_code IS NULL`
	} else {
		query += ` AND revision_code = ?`
		args = append(args, revision)
	}

	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("variant exists: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	where, args := buildFilters(q)
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM manuals`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count manuals: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Manual, error) {
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
		SELECT `+manualColumns+`
		FROM manuals`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list manuals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Manual, 0, limit)
	for rows.Next() {
		m, err := scanManualRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan manual: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("manual rows: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, m models.Manual) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO manuals (id, manual_code, name, description, language, revision_code, file_url, file_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ManualCode, nullable(m.Name), nullable(m.Description), m.Language,
		nullable(m.RevisionCode), nullable(m.FileURL), nullable(m.FileKey))
	if err != nil {
		return fmt.Errorf("create manual: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m models.Manual) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE manuals
		SET manual_code = ?, name = ?, description = ?, language = ?, revision_code = ?, updated_at = ?
		WHERE id = ?
	`, m.ManualCode, nullable(m.Name), nullable(m.Description), m.Language,
		nullable(m.RevisionCode), time.Now().UTC(), m.ID)
	if err != nil {
		return false, fmt.Errorf("update manual: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update manual rows: %w", err)
	}
	return affected > 0, nil
}

// SetFile records the uploaded PDF's public URL and storage key.
func (r *Repo) SetFile(ctx context.Context, id, fileURL, fileKey string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE manuals
		SET file_url = ?, file_key = ?, updated_at = ?
		WHERE id = ?
	`, fileURL, fileKey, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("set manual file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set manual file rows: %w", err)
	}
	return affected > 0, nil
}

func (r *Repo) ClearFile(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE manuals
		SET file_url = NULL, file_key = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("clear manual file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear manual file rows: %w", err)
	}
	return affected > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM manuals WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete manual: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete manual rows: %w", err)
	}
	return affected > 0, nil
}

func buildFilters(q ListQuery) (string, []any) {
	var where []string
	var args []any

	if s := strings.TrimSpace(q.ManualCode); s != "" {
		where = append(where, "manual_code LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if l := strings.TrimSpace(q.Language); l != "" {
		where = append(where, "language = ?")
		args = append(args, strings.ToUpper(l))
	}
	if rev := strings.TrimSpace(q.Revision); rev != "" {
		where = append(where, "revision_code = ?")
		args = append(args, rev)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanManualRow(scan func(dest ...any) error) (*models.Manual, error) {
	var (
		m           models.Manual
		name        sql.NullString
		description sql.NullString
		revision    sql.NullString
		fileURL     sql.NullString
		fileKey     sql.NullString
	)
	if err := scan(&m.ID, &m.ManualCode, &name, &description, &m.Language, &revision,
		&fileURL, &fileKey, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Name = name.String
	m.Description = description.String
	m.RevisionCode = revision.String
	m.FileURL = fileURL.String
	m.FileKey = fileKey.String
	return &m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
