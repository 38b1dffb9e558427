package models

// GroupedManual aggregates every language variant of one manual code
// matched for a searched serial number. It is built fresh per request
// and never persisted.
//
// Languages preserves first-seen row order and holds no duplicates. A
// language may appear without an entry in FileURLs: the variant is
// known but its PDF has not been uploaded.
type GroupedManual struct {
	SerialNumber string            `json:"serial_number"`
	ManualCode   string            `json:"manual_code"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Descriptions map[string]string `json:"descriptions"`
	Revision     string            `json:"revision"`
	Languages    []string          `json:"languages"`
	FileURLs     map[string]string `json:"file_urls"`
}
