package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualhub/pkg/models"
)

// fakeStore serves canned rows and honours the same matching contract
// as SQLStore: exact equality, empty revision means any.
type fakeStore struct {
	products []models.Product
	manuals  []models.Manual
	failWith error
}

func (f *fakeStore) ProductsBySerial(_ context.Context, serial string) ([]models.Product, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.Product
	for _, p := range f.products {
		if p.SerialNumber == serial {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProductBySerialAndCode(_ context.Context, serial, code string) (*models.Product, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, p := range f.products {
		if p.SerialNumber == serial && p.ManualCode == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ManualsByCode(_ context.Context, code, revision string) ([]models.Manual, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.Manual
	for _, m := range f.manuals {
		if m.ManualCode != code {
			continue
		}
		if revision != "" && m.RevisionCode != revision {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) ManualByCodeAndLanguage(_ context.Context, code, language, revision string) (*models.Manual, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, m := range f.manuals {
		if m.ManualCode != code || m.Language != language {
			continue
		}
		if revision != "" && m.RevisionCode != revision {
			continue
		}
		cp := m
		return &cp, nil
	}
	return nil, nil
}

func TestSearchGroupsLanguagesWithoutDuplicates(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN1", ManualCode: "MVC_STD", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", FileURL: "url-it-a"},
			{ID: "m2", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", FileURL: "url-it-b"},
			{ID: "m3", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "001", FileURL: "url-en"},
			{ID: "m4", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "001"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)

	g := res.Groups[0]
	assert.Equal(t, []string{"IT", "EN"}, g.Languages)
	// first row per language wins
	assert.Equal(t, "url-it-a", g.FileURLs["IT"])
	assert.Equal(t, "url-en", g.FileURLs["EN"])
}

func TestSearchRevisionIsolation(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN2", ManualCode: "MVC_STD", RevisionCode: "002"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", FileURL: "old-it"},
			{ID: "m2", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "003", FileURL: "new-en"},
			{ID: "m3", ManualCode: "MVC_STD", Language: "DE", RevisionCode: "002", FileURL: "cur-de"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "SN2")
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)

	g := res.Groups[0]
	assert.Equal(t, []string{"DE"}, g.Languages)
	assert.Equal(t, "002", g.Revision)
}

func TestSearchNoProductIsEmptyNotError(t *testing.T) {
	r := New(&fakeStore{})

	res, err := r.SearchBySerial(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Products)
}

func TestSearchProductWithoutManualCodeIsSkipped(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN3"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "SN3")
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Len(t, res.Products, 1)
}

func TestSearchRevisionMismatchEmitsNoGroup(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN4", ManualCode: "ROLLOUT", RevisionCode: "002"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "ROLLOUT", Language: "IT", RevisionCode: "001", FileURL: "url"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "SN4")
	require.NoError(t, err)
	assert.Empty(t, res.Groups)

	// and the corresponding download is a manual-not-found, not a
	// product-not-found
	_, err = r.ResolveDownload(context.Background(), "SN4", "ROLLOUT", "IT")
	assert.ErrorIs(t, err, ErrManualNotFound)
}

func TestSearchValidation(t *testing.T) {
	r := New(&fakeStore{})

	_, err := r.SearchBySerial(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchStoreFailureSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	r := New(&fakeStore{failWith: boom})

	_, err := r.SearchBySerial(context.Background(), "SN1")
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, boom)
}

func TestSearchScenarioGroupsAndDescription(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "2504485", ManualCode: "MVC_STD", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", Description: "Manuale IT", FileURL: "url-it"},
			{ID: "m2", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "001", FileURL: "url-en"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "2504485")
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)

	g := res.Groups[0]
	assert.Equal(t, "2504485", g.SerialNumber)
	assert.Equal(t, "MVC_STD", g.ManualCode)
	assert.Equal(t, []string{"IT", "EN"}, g.Languages)
	assert.Equal(t, "Manuale IT", g.Description)
	assert.Equal(t, "001", g.Revision)
	assert.Equal(t, map[string]string{"IT": "url-it", "EN": "url-en"}, g.FileURLs)
	assert.Equal(t, "Manuale Ventilatore Standard", g.Name)
	assert.Equal(t, 2, res.ManualsFound)
}

func TestDownloadScenarioSuccess(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "2504485", ManualCode: "MVC_STD", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", FileURL: "url-it"},
			{ID: "m2", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "001", FileURL: "url-en"},
		},
	}
	r := New(store)

	dl, err := r.ResolveDownload(context.Background(), "2504485", "MVC_STD", "EN")
	require.NoError(t, err)
	assert.Equal(t, "url-en", dl.FileURL)
	assert.Equal(t, "MVC_STD_EN_001.pdf", dl.FileName)
	assert.Equal(t, "p1", dl.Product.ID)
	assert.Equal(t, "m2", dl.Manual.ID)
}

func TestDownloadFileNameDefaultsRevisionToken(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN5", ManualCode: "TECHNICAL"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "TECHNICAL", Language: "IT", RevisionCode: "004", FileURL: "url"},
		},
	}
	r := New(store)

	dl, err := r.ResolveDownload(context.Background(), "SN5", "TECHNICAL", "IT")
	require.NoError(t, err)
	assert.Equal(t, "TECHNICAL_IT_Rev001.pdf", dl.FileName)
}

func TestDownloadFailureStages(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN6", ManualCode: "MVC_STD", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "DE", RevisionCode: "001"},
		},
	}
	r := New(store)
	ctx := context.Background()

	_, err := r.ResolveDownload(ctx, "X", "Y", "IT")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, models.DownloadOutcomeProductNotFound, DownloadOutcome(err))

	_, err = r.ResolveDownload(ctx, "SN6", "MVC_STD", "IT")
	assert.ErrorIs(t, err, ErrManualNotFound)
	assert.Equal(t, models.DownloadOutcomeManualNotFound, DownloadOutcome(err))

	_, err = r.ResolveDownload(ctx, "SN6", "MVC_STD", "DE")
	assert.ErrorIs(t, err, ErrFileNotAvailable)
	assert.Equal(t, models.DownloadOutcomeFileNotAvailable, DownloadOutcome(err))

	_, err = r.ResolveDownload(ctx, "", "MVC_STD", "DE")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDownloadStoreFailure(t *testing.T) {
	boom := errors.New("disk error")
	r := New(&fakeStore{failWith: boom})

	_, err := r.ResolveDownload(context.Background(), "SN1", "MVC_STD", "IT")
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, models.DownloadOutcomeError, DownloadOutcome(err))
}

func TestSearchMultipleProductsConcatenateInOrder(t *testing.T) {
	store := &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "SN7", ManualCode: "MVC_STD", RevisionCode: "001"},
			{ID: "p2", SerialNumber: "SN7", ManualCode: "MAINTENANCE", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", FileURL: "a"},
			{ID: "m2", ManualCode: "MAINTENANCE", Language: "IT", RevisionCode: "001", FileURL: "b"},
		},
	}
	r := New(store)

	res, err := r.SearchBySerial(context.Background(), "SN7")
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "MVC_STD", res.Groups[0].ManualCode)
	assert.Equal(t, "MAINTENANCE", res.Groups[1].ManualCode)
}
