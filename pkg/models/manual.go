package models

import "time"

// Manual is a single language/revision variant of one logical
// document. FileURL empty means the PDF has not been uploaded yet;
// FileKey is the object-storage key behind FileURL.
type Manual struct {
	ID           string    `json:"id"`
	ManualCode   string    `json:"manual_code"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Language     string    `json:"language"`
	RevisionCode string    `json:"revision_code,omitempty"`
	FileURL      string    `json:"file_url,omitempty"`
	FileKey      string    `json:"file_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
