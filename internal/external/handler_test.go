package external

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualhub/internal/manuals"
	"manualhub/internal/products"
	"manualhub/pkg/logger"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	h := NewHandler(products.NewRepo(db), manuals.NewRepo(db), logger.NewNop())

	router := gin.New()
	ext := router.Group("/external")
	ext.Use(TokenMiddleware([]string{"valid-token"}))
	h.RegisterRoutes(ext)
	return router
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func TestTokenMiddlewareRejectsBadTokens(t *testing.T) {
	router := testRouter(t)

	w := do(router, http.MethodGet, "/external/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/external/products", "wrong-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/external/products", "valid-token", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateProductsSingleObject(t *testing.T) {
	router := testRouter(t)

	w := do(router, http.MethodPost, "/external/products", "valid-token",
		`{"serial_number":"2504485","manual_code":"MVC_STD","revision_code":"001"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var report struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Skipped)
}

func TestCreateProductsBatchReportsPerItem(t *testing.T) {
	router := testRouter(t)

	w := do(router, http.MethodPost, "/external/products", "valid-token",
		`[{"serial_number":"A1","manual_code":"MVC_STD"}]`)
	require.Equal(t, http.StatusCreated, w.Code)

	// A1 already exists now, the second item lacks a serial
	w = do(router, http.MethodPost, "/external/products", "valid-token",
		`[{"serial_number":"A1"},{"manual_code":"ROLLOUT"},{"serial_number":"B2","manual_code":"ROLLOUT"}]`)
	require.Equal(t, http.StatusCreated, w.Code)

	var report struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
		Errors  []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Errors[0].Index)
}

func TestCreateManualsSkipsDuplicateVariant(t *testing.T) {
	router := testRouter(t)

	body := `{"manual_code":"MVC_STD","language":"it","revision_code":"001","name":"Manuale Ventilatore Standard"}`
	w := do(router, http.MethodPost, "/external/manuals", "valid-token", body)
	require.Equal(t, http.StatusCreated, w.Code)

	// same code/language/revision again: skipped, nothing created
	w = do(router, http.MethodPost, "/external/manuals", "valid-token", body)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Skipped)
}

func TestCreateManualsRequiresLanguage(t *testing.T) {
	router := testRouter(t)

	w := do(router, http.MethodPost, "/external/manuals", "valid-token",
		`{"manual_code":"MVC_STD"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Created int `json:"created"`
		Errors  []struct {
			Error string `json:"error"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 0, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "language required", report.Errors[0].Error)
}
