package models

import "time"

// Product is one physical unit identified by the serial number printed
// on it. ManualCode links it to the documentation set; RevisionCode
// (3-digit zero-padded, e.g. "001") pins the edition. Empty string
// means the column is NULL in the store.
type Product struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serial_number"`
	ManualCode   string    `json:"manual_code,omitempty"`
	RevisionCode string    `json:"revision_code,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
