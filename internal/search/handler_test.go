package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualhub/internal/resolver"
	"manualhub/pkg/logger"
	"manualhub/pkg/models"
)

type fakeStore struct {
	products []models.Product
	manuals  []models.Manual
}

func (f *fakeStore) ProductsBySerial(_ context.Context, serial string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.SerialNumber == serial {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProductBySerialAndCode(_ context.Context, serial, code string) (*models.Product, error) {
	for _, p := range f.products {
		if p.SerialNumber == serial && p.ManualCode == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ManualsByCode(_ context.Context, code, revision string) ([]models.Manual, error) {
	var out []models.Manual
	for _, m := range f.manuals {
		if m.ManualCode == code && (revision == "" || m.RevisionCode == revision) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ManualByCodeAndLanguage(_ context.Context, code, language, revision string) (*models.Manual, error) {
	for _, m := range f.manuals {
		if m.ManualCode == code && m.Language == language &&
			(revision == "" || m.RevisionCode == revision) {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

type memorySink struct {
	searches  []models.SearchLogEntry
	downloads []models.DownloadLogEntry
}

func (s *memorySink) InsertSearch(_ context.Context, e models.SearchLogEntry) error {
	s.searches = append(s.searches, e)
	return nil
}

func (s *memorySink) InsertDownload(_ context.Context, e models.DownloadLogEntry) error {
	s.downloads = append(s.downloads, e)
	return nil
}

func newTestRouter(store resolver.Store) (*gin.Engine, *memorySink) {
	gin.SetMode(gin.TestMode)
	sink := &memorySink{}
	h := NewHandler(resolver.New(store), sink, nil, logger.NewNop())
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return router, sink
}

func seededStore() *fakeStore {
	return &fakeStore{
		products: []models.Product{
			{ID: "p1", SerialNumber: "2504485", ManualCode: "MVC_STD", RevisionCode: "001"},
		},
		manuals: []models.Manual{
			{ID: "m1", ManualCode: "MVC_STD", Language: "IT", RevisionCode: "001", Description: "Manuale IT", FileURL: "url-it"},
			{ID: "m2", ManualCode: "MVC_STD", Language: "EN", RevisionCode: "001", FileURL: "url-en"},
			{ID: "m3", ManualCode: "MVC_STD", Language: "DE", RevisionCode: "001"},
		},
	}
}

func TestSearchRequiresSerialNumber(t *testing.T) {
	router, sink := newTestRouter(seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sink.searches)
}

func TestSearchReturnsGroupsAndLogs(t *testing.T) {
	router, sink := newTestRouter(seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?serial_number=2504485", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data       []models.GroupedManual `json:"data"`
		SearchTerm string                 `json:"search_term"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, []string{"IT", "EN", "DE"}, body.Data[0].Languages)
	assert.Equal(t, "Manuale IT", body.Data[0].Description)

	require.Len(t, sink.searches, 1)
	assert.Equal(t, models.SearchOutcomeSuccess, sink.searches[0].Outcome)
	assert.Equal(t, 1, sink.searches[0].ProductsFound)
	assert.Equal(t, 3, sink.searches[0].ManualsFound)
}

func TestSearchUnknownSerialLogsNoProductFound(t *testing.T) {
	router, sink := newTestRouter(seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?serial_number=NOPE", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data    []models.GroupedManual `json:"data"`
		Message string                 `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
	assert.NotEmpty(t, body.Message)

	require.Len(t, sink.searches, 1)
	assert.Equal(t, models.SearchOutcomeNoProductFound, sink.searches[0].Outcome)
}

func TestDownloadSuccess(t *testing.T) {
	router, sink := newTestRouter(seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/download?serial_number=2504485&manual_code=MVC_STD&language=EN", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		DownloadURL string `json:"download_url"`
		FileName    string `json:"file_name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "url-en", body.DownloadURL)
	assert.Equal(t, "MVC_STD_EN_001.pdf", body.FileName)

	require.Len(t, sink.downloads, 1)
	assert.Equal(t, models.DownloadOutcomeSuccess, sink.downloads[0].Outcome)
	assert.Equal(t, "m2", sink.downloads[0].ManualID)
}

func TestDownloadFailureStagesAreDistinct(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		outcome string
	}{
		{
			name:    "product not found",
			url:     "/api/download?serial_number=X&manual_code=Y&language=IT",
			outcome: models.DownloadOutcomeProductNotFound,
		},
		{
			name:    "manual not found",
			url:     "/api/download?serial_number=2504485&manual_code=MVC_STD&language=FR",
			outcome: models.DownloadOutcomeManualNotFound,
		},
		{
			name:    "file not available",
			url:     "/api/download?serial_number=2504485&manual_code=MVC_STD&language=DE",
			outcome: models.DownloadOutcomeFileNotAvailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, sink := newTestRouter(seededStore())

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code)
			require.Len(t, sink.downloads, 1)
			assert.Equal(t, tc.outcome, sink.downloads[0].Outcome)
		})
	}
}

func TestDownloadRequiresAllParams(t *testing.T) {
	router, sink := newTestRouter(seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download?serial_number=2504485", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sink.downloads)
}
