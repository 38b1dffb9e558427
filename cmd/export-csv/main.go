package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"manualhub/pkg/database"
)

func main() {
	var (
		productsOut = flag.String("products", "data/products.csv", "output CSV path for products")
		manualsOut  = flag.String("manuals", "data/manuals.csv", "output CSV path for manuals")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportProducts(ctx, db, *productsOut); err != nil {
		log.Fatalf("export products failed: %v", err)
	}
	if err := exportManuals(ctx, db, *manualsOut); err != nil {
		log.Fatalf("export manuals failed: %v", err)
	}

	log.Printf("✅ exported products to %s and manuals to %s", *productsOut, *manualsOut)
}

func exportProducts(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "serial_number", "manual_code", "revision_code", "notes", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, serial_number, manual_code, revision_code, notes, created_at
        FROM products
        ORDER BY serial_number
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id           string
			serialNumber string
			manualCode   sql.NullString
			revisionCode sql.NullString
			notes        sql.NullString
			createdAt    sql.NullTime
		)

		if err := rows.Scan(&id, &serialNumber, &manualCode, &revisionCode, &notes, &createdAt); err != nil {
			return err
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			serialNumber,
			manualCode.String,
			revisionCode.String,
			notes.String,
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportManuals(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "manual_code", "name", "description", "language", "revision_code", "file_url", "file_key", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, manual_code, name, description, language, revision_code, file_url, file_key, created_at
        FROM manuals
        ORDER BY manual_code, language
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id           string
			manualCode   string
			name         sql.NullString
			description  sql.NullString
			language     string
			revisionCode sql.NullString
			fileURL      sql.NullString
			fileKey      sql.NullString
			createdAt    sql.NullTime
		)

		if err := rows.Scan(&id, &manualCode, &name, &description, &language, &revisionCode, &fileURL, &fileKey, &createdAt); err != nil {
			return err
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			manualCode,
			name.String,
			description.String,
			language,
			revisionCode.String,
			fileURL.String,
			fileKey.String,
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
