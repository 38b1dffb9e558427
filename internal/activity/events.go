package activity

import "time"

// Events mirror the audit-log outcome kinds so dashboard clients can
// switch on Type/Outcome without parsing free-form payloads.

type SearchEvent struct {
	Type          string    `json:"type"` // "search"
	SerialNumber  string    `json:"serial_number"`
	Outcome       string    `json:"outcome"`
	ProductsFound int       `json:"products_found"`
	GroupsCount   int       `json:"groups_count"`
	At            time.Time `json:"at"`
}

type DownloadEvent struct {
	Type         string    `json:"type"` // "download"
	SerialNumber string    `json:"serial_number"`
	ManualCode   string    `json:"manual_code"`
	Language     string    `json:"language"`
	Outcome      string    `json:"outcome"`
	FileName     string    `json:"file_name,omitempty"`
	At           time.Time `json:"at"`
}
