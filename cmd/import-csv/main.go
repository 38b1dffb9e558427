package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"manualhub/pkg/database"
)

func main() {
	var (
		productsIn = flag.String("products", "data/products.csv", "input CSV path for products")
		manualsIn  = flag.String("manuals", "data/manuals.csv", "input CSV path for manuals")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importProducts(ctx, db, *productsIn); err != nil {
		log.Fatalf("import products failed: %v", err)
	}
	if err := importManuals(ctx, db, *manualsIn); err != nil {
		log.Fatalf("import manuals failed: %v", err)
	}

	log.Printf("✅ imported products from %s and manuals from %s", *productsIn, *manualsIn)
}

func importProducts(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO products (id, serial_number, manual_code, revision_code, notes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(serial_number, manual_code, revision_code) DO UPDATE SET
		  notes = excluded.notes,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		serial := valueAt(header, row, "serial_number")
		if serial == "" {
			continue
		}

		id := valueAt(header, row, "id")
		if id == "" {
			id = uuid.NewString()
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			serial,
			nullString(valueAt(header, row, "manual_code")),
			nullString(valueAt(header, row, "revision_code")),
			nullString(valueAt(header, row, "notes")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importManuals(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO manuals (id, manual_code, name, description, language, revision_code, file_url, file_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(manual_code, language, revision_code) DO UPDATE SET
		  name = excluded.name,
		  description = excluded.description,
		  file_url = excluded.file_url,
		  file_key = excluded.file_key,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		code := valueAt(header, row, "manual_code")
		language := strings.ToUpper(valueAt(header, row, "language"))
		if code == "" || language == "" {
			continue
		}

		id := valueAt(header, row, "id")
		if id == "" {
			id = uuid.NewString()
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			code,
			nullString(valueAt(header, row, "name")),
			nullString(valueAt(header, row, "description")),
			language,
			nullString(valueAt(header, row, "revision_code")),
			nullString(valueAt(header, row, "file_url")),
			nullString(valueAt(header, row, "file_key")),
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
