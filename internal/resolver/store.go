package resolver

import (
	"context"
	"database/sql"
	"fmt"

	"manualhub/pkg/models"
)

// SQLStore implements Store on the sqlite catalog. Row order is pinned
// (created_at DESC, then id) so that when duplicate rows exist — a
// data-quality anomaly — the pick stays deterministic.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) ProductsBySerial(ctx context.Context, serial string) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, serial_number, manual_code, revision_code
		FROM products
		WHERE serial_number = ?
		ORDER BY created_at DESC, id
	`, serial)
	if err != nil {
		return nil, fmt.Errorf("products by serial: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ProductBySerialAndCode(ctx context.Context, serial, manualCode string) (*models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, serial_number, manual_code, revision_code
		FROM products
		WHERE serial_number = ? AND manual_code = ?
		ORDER BY created_at DESC, id
		LIMIT 1
	`, serial, manualCode)
	if err != nil {
		return nil, fmt.Errorf("product by serial and code: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanProduct(rows)
	if err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (s *SQLStore) ManualsByCode(ctx context.Context, manualCode, revision string) ([]models.Manual, error) {
	query := `
		SELECT id, manual_code, name, description, language, revision_code, file_url
		FROM manuals
		WHERE manual_code = ?
	`
	args := []any{manualCode}
	if revision != "" {
		query += ` AND revision_code = ?`
		args = append(args, revision)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("manuals by code: %w", err)
	}
	defer rows.Close()

	var out []models.Manual
	for rows.Next() {
		m, err := scanManual(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("manuals rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ManualByCodeAndLanguage(ctx context.Context, manualCode, language, revision string) (*models.Manual, error) {
	query := `
		SELECT id, manual_code, name, description, language, revision_code, file_url
		FROM manuals
		WHERE manual_code = ? AND language = ?
	`
	args := []any{manualCode, language}
	if revision != "" {
		query += ` AND revision_code = ?`
		args = append(args, revision)
	}
	query += ` ORDER BY created_at DESC, id LIMIT 1`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("manual by code and language: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	m, err := scanManual(rows)
	if err != nil {
		return nil, err
	}
	return &m, rows.Err()
}

func scanProduct(rows *sql.Rows) (models.Product, error) {
	var (
		p            models.Product
		manualCode   sql.NullString
		revisionCode sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.SerialNumber, &manualCode, &revisionCode); err != nil {
		return p, fmt.Errorf("scan product: %w", err)
	}
	p.ManualCode = manualCode.String
	p.RevisionCode = revisionCode.String
	return p, nil
}

func scanManual(rows *sql.Rows) (models.Manual, error) {
	var (
		m            models.Manual
		name         sql.NullString
		description  sql.NullString
		revisionCode sql.NullString
		fileURL      sql.NullString
	)
	if err := rows.Scan(&m.ID, &m.ManualCode, &name, &description, &m.Language, &revisionCode, &fileURL); err != nil {
		return m, fmt.Errorf("scan manual: %w", err)
	}
	m.Name = name.String
	m.Description = description.String
	m.RevisionCode = revisionCode.String
	m.FileURL = fileURL.String
	return m, nil
}
