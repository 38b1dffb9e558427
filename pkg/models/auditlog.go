package models

import "time"

// Outcome classifications recorded on audit log rows. Each value maps
// one-to-one onto a resolver result so staff can tell a typo'd serial
// from a missing manual from a file that was never uploaded.
const (
	SearchOutcomeSuccess        = "success"
	SearchOutcomeNoProductFound = "no_product_found"
	SearchOutcomeError          = "error"

	DownloadOutcomeSuccess          = "success"
	DownloadOutcomeProductNotFound  = "product_not_found"
	DownloadOutcomeManualNotFound   = "manual_not_found"
	DownloadOutcomeFileNotAvailable = "file_not_available"
	DownloadOutcomeError            = "error"
)

// SearchLogEntry records one public serial-number search.
type SearchLogEntry struct {
	ID             int64     `json:"id"`
	SerialSearched string    `json:"serial_searched"`
	Outcome        string    `json:"outcome"`
	ProductsFound  int       `json:"products_found"`
	ManualsFound   int       `json:"manuals_found"`
	GroupsCount    int       `json:"groups_count"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DownloadLogEntry records one public download attempt, successful or
// not. ManualID is set only when a manual row was actually resolved.
type DownloadLogEntry struct {
	ID           int64     `json:"id"`
	ManualID     string    `json:"manual_id,omitempty"`
	SerialNumber string    `json:"serial_number"`
	ManualCode   string    `json:"manual_code"`
	Language     string    `json:"language"`
	RevisionCode string    `json:"revision_code,omitempty"`
	Outcome      string    `json:"outcome"`
	FileURL      string    `json:"file_url,omitempty"`
	FileName     string    `json:"file_name,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
