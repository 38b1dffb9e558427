// Package auditlog persists and serves the search/download audit
// trail. Entries use fixed, typed columns (one outcome kind per row)
// rather than open-ended payload blobs, so staff queries and the
// dashboard can filter on them directly.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"manualhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) InsertSearch(ctx context.Context, e models.SearchLogEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO search_logs
			(serial_searched, outcome, products_found, manuals_found, groups_count, error_message, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SerialSearched, e.Outcome, e.ProductsFound, e.ManualsFound, e.GroupsCount,
		nullable(e.ErrorMessage), nullable(e.IPAddress), nullable(e.UserAgent))
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

func (r *Repo) InsertDownload(ctx context.Context, e models.DownloadLogEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO download_logs
			(manual_id, serial_number, manual_code, language, revision_code, outcome, file_url, file_name, error_message, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullable(e.ManualID), e.SerialNumber, e.ManualCode, e.Language, nullable(e.RevisionCode),
		e.Outcome, nullable(e.FileURL), nullable(e.FileName), nullable(e.ErrorMessage),
		nullable(e.IPAddress), nullable(e.UserAgent))
	if err != nil {
		return fmt.Errorf("insert download log: %w", err)
	}
	return nil
}

type ListQuery struct {
	Outcome string
	Serial  string // substring match, staff-only surface
	Limit   int
	Offset  int
}

func (q ListQuery) normalized() ListQuery {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func (r *Repo) ListSearches(ctx context.Context, q ListQuery) ([]models.SearchLogEntry, int, error) {
	q = q.normalized()

	where, args := searchFilters(q)
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search logs: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, serial_searched, outcome, products_found, manuals_found, groups_count,
		       error_message, ip_address, user_agent, created_at
		FROM search_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list search logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.SearchLogEntry, 0, q.Limit)
	for rows.Next() {
		var (
			e        models.SearchLogEntry
			errMsg   sql.NullString
			ip       sql.NullString
			ua       sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SerialSearched, &e.Outcome, &e.ProductsFound,
			&e.ManualsFound, &e.GroupsCount, &errMsg, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan search log: %w", err)
		}
		e.ErrorMessage = errMsg.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search log rows: %w", err)
	}
	return out, total, nil
}

func (r *Repo) ListDownloads(ctx context.Context, q ListQuery) ([]models.DownloadLogEntry, int, error) {
	q = q.normalized()

	where, args := downloadFilters(q)
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM download_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count download logs: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, manual_id, serial_number, manual_code, language, revision_code, outcome,
		       file_url, file_name, error_message, ip_address, user_agent, created_at
		FROM download_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list download logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.DownloadLogEntry, 0, q.Limit)
	for rows.Next() {
		var (
			e        models.DownloadLogEntry
			manualID sql.NullString
			revision sql.NullString
			fileURL  sql.NullString
			fileName sql.NullString
			errMsg   sql.NullString
			ip       sql.NullString
			ua       sql.NullString
		)
		if err := rows.Scan(&e.ID, &manualID, &e.SerialNumber, &e.ManualCode, &e.Language,
			&revision, &e.Outcome, &fileURL, &fileName, &errMsg, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan download log: %w", err)
		}
		e.ManualID = manualID.String
		e.RevisionCode = revision.String
		e.FileURL = fileURL.String
		e.FileName = fileName.String
		e.ErrorMessage = errMsg.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("download log rows: %w", err)
	}
	return out, total, nil
}

// Stats feeds the admin dashboard counters.
type Stats struct {
	Products        int            `json:"products"`
	Manuals         int            `json:"manuals"`
	Searches        int            `json:"searches"`
	Downloads       int            `json:"downloads"`
	SearchesWeek    int            `json:"searches_last_7_days"`
	DownloadsWeek   int            `json:"downloads_last_7_days"`
	SearchOutcomes  map[string]int `json:"search_outcomes"`
	DownloadFailing map[string]int `json:"download_failures"`
}

func (r *Repo) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		SearchOutcomes:  make(map[string]int),
		DownloadFailing: make(map[string]int),
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM products`, &s.Products},
		{`SELECT COUNT(*) FROM manuals`, &s.Manuals},
		{`SELECT COUNT(*) FROM search_logs`, &s.Searches},
		{`SELECT COUNT(*) FROM download_logs`, &s.Downloads},
		{`SELECT COUNT(*) FROM search_logs WHERE created_at >= datetime('now', '-7 days')`, &s.SearchesWeek},
		{`SELECT COUNT(*) FROM download_logs WHERE created_at >= datetime('now', '-7 days')`, &s.DownloadsWeek},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats count: %w", err)
		}
	}

	if err := r.outcomeBreakdown(ctx, `search_logs`, s.SearchOutcomes); err != nil {
		return nil, err
	}
	if err := r.outcomeBreakdown(ctx, `download_logs`, s.DownloadFailing); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repo) outcomeBreakdown(ctx context.Context, table string, dst map[string]int) error {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM `+table+` GROUP BY outcome`)
	if err != nil {
		return fmt.Errorf("outcome breakdown %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return fmt.Errorf("scan outcome breakdown: %w", err)
		}
		dst[outcome] = n
	}
	return rows.Err()
}

func searchFilters(q ListQuery) (string, []any) {
	var where []string
	var args []any
	if q.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, q.Outcome)
	}
	if s := strings.TrimSpace(q.Serial); s != "" {
		where = append(where, "serial_searched LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func downloadFilters(q ListQuery) (string, []any) {
	var where []string
	var args []any
	if q.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, q.Outcome)
	}
	if s := strings.TrimSpace(q.Serial); s != "" {
		where = append(where, "serial_number LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
