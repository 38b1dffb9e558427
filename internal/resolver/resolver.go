// Package resolver maps a caller-supplied serial number (and, for
// downloads, a manual code + language) to the manual records that
// apply, grouping multi-language variants of the same logical manual
// and enforcing revision consistency. It only reads from the store;
// audit logging belongs to the calling handler.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"manualhub/pkg/models"
)

// Store is the query capability the resolver needs. An empty revision
// argument means "any revision". Implementations return nil (not an
// error) when nothing matches.
type Store interface {
	ProductsBySerial(ctx context.Context, serial string) ([]models.Product, error)
	ProductBySerialAndCode(ctx context.Context, serial, manualCode string) (*models.Product, error)
	ManualsByCode(ctx context.Context, manualCode, revision string) ([]models.Manual, error)
	ManualByCodeAndLanguage(ctx context.Context, manualCode, language, revision string) (*models.Manual, error)
}

type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// SearchResult carries the grouped manuals plus the raw rows the
// caller needs for its audit log entry.
type SearchResult struct {
	SerialNumber string                 `json:"serial_number"`
	Groups       []models.GroupedManual `json:"groups"`
	Products     []models.Product       `json:"-"`
	ManualsFound int                    `json:"-"`
}

// SearchBySerial resolves every manual group available for the given
// serial number. Zero matching products is a valid outcome: the result
// is empty and the error nil.
func (r *Resolver) SearchBySerial(ctx context.Context, serial string) (*SearchResult, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, fmt.Errorf("serial number: %w", ErrValidation)
	}

	products, err := r.store.ProductsBySerial(ctx, serial)
	if err != nil {
		return nil, &StoreError{Op: "products by serial", Err: err}
	}

	res := &SearchResult{
		SerialNumber: serial,
		Groups:       []models.GroupedManual{},
		Products:     products,
	}

	for _, p := range products {
		if p.ManualCode == "" {
			continue
		}

		// Strict revision isolation: a product pinned to a revision
		// only ever sees manuals of that exact revision.
		manuals, err := r.store.ManualsByCode(ctx, p.ManualCode, p.RevisionCode)
		if err != nil {
			return nil, &StoreError{Op: "manuals by code", Err: err}
		}
		if len(manuals) == 0 {
			continue
		}

		res.ManualsFound += len(manuals)
		res.Groups = append(res.Groups, groupManuals(serial, p, manuals)...)
	}

	return res, nil
}

// Download is a resolved download: the opaque file URL, a stable
// suggested file name, and the rows used so the caller can log them.
type Download struct {
	FileURL  string         `json:"download_url"`
	FileName string         `json:"file_name"`
	Product  models.Product `json:"product"`
	Manual   models.Manual  `json:"manual"`
}

// ResolveDownload finds the single manual file matching serial number,
// manual code and language. Each stage that can come up empty fails
// with its own sentinel so the caller can log which stage it was.
func (r *Resolver) ResolveDownload(ctx context.Context, serial, manualCode, language string) (*Download, error) {
	serial = strings.TrimSpace(serial)
	manualCode = strings.TrimSpace(manualCode)
	language = strings.TrimSpace(language)
	if serial == "" || manualCode == "" || language == "" {
		return nil, fmt.Errorf("serial number, manual code and language: %w", ErrValidation)
	}

	product, err := r.store.ProductBySerialAndCode(ctx, serial, manualCode)
	if err != nil {
		return nil, &StoreError{Op: "product by serial and code", Err: err}
	}
	if product == nil {
		return nil, fmt.Errorf("serial %q code %q: %w", serial, manualCode, ErrProductNotFound)
	}

	manual, err := r.store.ManualByCodeAndLanguage(ctx, manualCode, language, product.RevisionCode)
	if err != nil {
		return nil, &StoreError{Op: "manual by code and language", Err: err}
	}
	if manual == nil {
		return nil, fmt.Errorf("code %q language %q revision %q: %w",
			manualCode, language, product.RevisionCode, ErrManualNotFound)
	}

	if manual.FileURL == "" {
		return nil, fmt.Errorf("manual %s: %w", manual.ID, ErrFileNotAvailable)
	}

	rev := product.RevisionCode
	if rev == "" {
		rev = defaultRevisionToken
	}

	return &Download{
		FileURL:  manual.FileURL,
		FileName: fmt.Sprintf("%s_%s_%s.pdf", manualCode, language, rev),
		Product:  *product,
		Manual:   *manual,
	}, nil
}

// groupManuals buckets manual rows by manual code. Normally one group
// per product (the code is already fixed), but the key tolerates
// multiple product rows sharing a code.
func groupManuals(serial string, p models.Product, manuals []models.Manual) []models.GroupedManual {
	var order []string
	byCode := make(map[string]*models.GroupedManual)

	for _, m := range manuals {
		key := m.ManualCode
		if key == "" {
			key = "unknown"
		}

		g, ok := byCode[key]
		if !ok {
			rev := m.RevisionCode
			if rev == "" {
				rev = p.RevisionCode
			}
			if rev == "" {
				rev = defaultRevision
			}
			g = &models.GroupedManual{
				SerialNumber: serial,
				ManualCode:   m.ManualCode,
				Revision:     rev,
				Descriptions: make(map[string]string),
				Languages:    []string{},
				FileURLs:     make(map[string]string),
			}
			byCode[key] = g
			order = append(order, key)
		}

		if g.Name == "" && strings.TrimSpace(m.Name) != "" {
			g.Name = strings.TrimSpace(m.Name)
		}

		if m.Language == "" || hasLanguage(g.Languages, m.Language) {
			continue
		}
		g.Languages = append(g.Languages, m.Language)
		if m.FileURL != "" {
			g.FileURLs[m.Language] = m.FileURL
		}
		if m.Description != "" {
			g.Descriptions[m.Language] = m.Description
		} else {
			g.Descriptions[m.Language] = DefaultDescription(m.ManualCode)
		}
	}

	out := make([]models.GroupedManual, 0, len(order))
	for _, key := range order {
		g := byCode[key]
		g.Name = ResolveName(g.ManualCode, g.Name)
		g.Description = BestDescription(g.Descriptions, g.Languages)
		out = append(out, *g)
	}
	return out
}

func hasLanguage(langs []string, lang string) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
