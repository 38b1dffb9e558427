package auditlog

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualhub/pkg/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func TestInsertAndListSearches(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertSearch(ctx, models.SearchLogEntry{
		SerialSearched: "2504485",
		Outcome:        models.SearchOutcomeSuccess,
		ProductsFound:  1,
		ManualsFound:   3,
		GroupsCount:    1,
		IPAddress:      "10.0.0.1",
	}))
	require.NoError(t, repo.InsertSearch(ctx, models.SearchLogEntry{
		SerialSearched: "UNKNOWN",
		Outcome:        models.SearchOutcomeNoProductFound,
	}))

	items, total, err := repo.ListSearches(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)

	// outcome filter
	items, total, err = repo.ListSearches(ctx, ListQuery{Outcome: models.SearchOutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "2504485", items[0].SerialSearched)
	assert.Equal(t, 3, items[0].ManualsFound)
	assert.Equal(t, "10.0.0.1", items[0].IPAddress)

	// serial substring filter
	_, total, err = repo.ListSearches(ctx, ListQuery{Serial: "250"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestInsertAndListDownloads(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertDownload(ctx, models.DownloadLogEntry{
		ManualID:     "m1",
		SerialNumber: "2504485",
		ManualCode:   "MVC_STD",
		Language:     "EN",
		RevisionCode: "001",
		Outcome:      models.DownloadOutcomeSuccess,
		FileURL:      "https://cdn.example.com/MVC_STD_EN_001.pdf",
		FileName:     "MVC_STD_EN_001.pdf",
	}))
	require.NoError(t, repo.InsertDownload(ctx, models.DownloadLogEntry{
		SerialNumber: "2504485",
		ManualCode:   "MVC_STD",
		Language:     "DE",
		Outcome:      models.DownloadOutcomeFileNotAvailable,
		ErrorMessage: "file not available",
	}))

	items, total, err := repo.ListDownloads(ctx, ListQuery{Outcome: models.DownloadOutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "m1", items[0].ManualID)
	assert.Equal(t, "MVC_STD_EN_001.pdf", items[0].FileName)

	// rows without a resolved manual keep the empty ManualID
	items, _, err = repo.ListDownloads(ctx, ListQuery{Outcome: models.DownloadOutcomeFileNotAvailable})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].ManualID)
	assert.Equal(t, "file not available", items[0].ErrorMessage)
}

func TestStats(t *testing.T) {
	db := testDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO products (id, serial_number, manual_code) VALUES ('p1', '2504485', 'MVC_STD')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO manuals (id, manual_code, language) VALUES ('m1', 'MVC_STD', 'IT')`)
	require.NoError(t, err)

	require.NoError(t, repo.InsertSearch(ctx, models.SearchLogEntry{
		SerialSearched: "2504485",
		Outcome:        models.SearchOutcomeSuccess,
	}))
	require.NoError(t, repo.InsertDownload(ctx, models.DownloadLogEntry{
		SerialNumber: "2504485",
		ManualCode:   "MVC_STD",
		Language:     "IT",
		Outcome:      models.DownloadOutcomeManualNotFound,
	}))

	s, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Products)
	assert.Equal(t, 1, s.Manuals)
	assert.Equal(t, 1, s.Searches)
	assert.Equal(t, 1, s.Downloads)
	assert.Equal(t, 1, s.SearchesWeek)
	assert.Equal(t, 1, s.SearchOutcomes[models.SearchOutcomeSuccess])
	assert.Equal(t, 1, s.DownloadFailing[models.DownloadOutcomeManualNotFound])
}
