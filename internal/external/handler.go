// Package external is the machine-to-machine API for upstream systems
// that push product and manual catalogs in bulk. It mirrors the admin
// CRUD but accepts batched POST bodies and reports a per-item result
// instead of failing the whole batch on the first duplicate.
package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"manualhub/internal/manuals"
	"manualhub/internal/products"
	"manualhub/pkg/logger"
	"manualhub/pkg/models"
)

const maxBatchSize = 500

type Handler struct {
	Products *products.Repo
	Manuals  *manuals.Repo
	Log      *logger.Logger
}

func NewHandler(productRepo *products.Repo, manualRepo *manuals.Repo, log *logger.Logger) *Handler {
	return &Handler{
		Products: productRepo,
		Manuals:  manualRepo,
		Log:      log.With("component", "external"),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products", h.listProducts)
	rg.POST("/products", h.createProducts)
	rg.PUT("/products/:id", h.updateProduct)
	rg.DELETE("/products/:id", h.deleteProduct)

	rg.GET("/manuals", h.listManuals)
	rg.POST("/manuals", h.createManuals)
	rg.PUT("/manuals/:id", h.updateManual)
	rg.DELETE("/manuals/:id", h.deleteManual)
}

// batchItemError pins a failure to its index in the submitted batch so
// the caller can retry just the broken rows.
type batchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type batchReport struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []batchItemError `json:"errors"`
	Items   []any            `json:"items"`
}

// decodeBatch accepts either a single JSON object or an array of them.
func decodeBatch(r io.Reader) ([]json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r, 8<<20))
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}

func (h *Handler) listProducts(c *gin.Context) {
	q := products.ListQuery{
		Serial:     c.Query("serial_number"),
		ManualCode: c.Query("manual_code"),
		Limit:      parseInt(c.Query("limit"), 100),
		Offset:     parseInt(c.Query("offset"), 0),
	}

	total, err := h.Products.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Products.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "items": items})
}

type productReq struct {
	SerialNumber string `json:"serial_number"`
	ManualCode   string `json:"manual_code"`
	RevisionCode string `json:"revision_code"`
	Notes        string `json:"notes"`
}

func (req *productReq) normalize() {
	req.SerialNumber = strings.TrimSpace(req.SerialNumber)
	req.ManualCode = strings.TrimSpace(req.ManualCode)
	req.RevisionCode = strings.TrimSpace(req.RevisionCode)
	req.Notes = strings.TrimSpace(req.Notes)
}

func (h *Handler) createProducts(c *gin.Context) {
	batch, err := decodeBatch(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(batch) == 0 || len(batch) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("batch must contain between 1 and %d items", maxBatchSize),
		})
		return
	}

	report := batchReport{Errors: []batchItemError{}, Items: []any{}}
	for i, raw := range batch {
		var req productReq
		if err := json.Unmarshal(raw, &req); err != nil {
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "invalid item"})
			continue
		}
		req.normalize()
		if req.SerialNumber == "" {
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "serial_number required"})
			continue
		}

		exists, err := h.Products.SerialExists(c.Request.Context(), req.SerialNumber)
		if err != nil {
			h.Log.Error("product exists check failed", "serial", req.SerialNumber, "err", err)
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "internal error"})
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		p := models.Product{
			ID:           uuid.NewString(),
			SerialNumber: req.SerialNumber,
			ManualCode:   req.ManualCode,
			RevisionCode: req.RevisionCode,
			Notes:        req.Notes,
		}
		if err := h.Products.Create(c.Request.Context(), p); err != nil {
			h.Log.Error("create product failed", "serial", req.SerialNumber, "err", err)
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "internal error"})
			continue
		}
		report.Created++
		report.Items = append(report.Items, p)
	}

	status := http.StatusCreated
	if report.Created == 0 {
		status = http.StatusOK
	}
	c.JSON(status, report)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.normalize()
	if req.SerialNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number required"})
		return
	}

	p := models.Product{
		ID:           id,
		SerialNumber: req.SerialNumber,
		ManualCode:   req.ManualCode,
		RevisionCode: req.RevisionCode,
		Notes:        req.Notes,
	}
	ok, err := h.Products.Update(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	saved, err := h.Products.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	ok, err := h.Products.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) listManuals(c *gin.Context) {
	q := manuals.ListQuery{
		ManualCode: c.Query("manual_code"),
		Language:   c.Query("language"),
		Revision:   c.Query("revision_code"),
		Limit:      parseInt(c.Query("limit"), 100),
		Offset:     parseInt(c.Query("offset"), 0),
	}

	total, err := h.Manuals.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Manuals.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "items": items})
}

type manualReq struct {
	ManualCode   string `json:"manual_code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Language     string `json:"language"`
	RevisionCode string `json:"revision_code"`
	FileURL      string `json:"file_url"`
}

func (req *manualReq) normalize() {
	req.ManualCode = strings.TrimSpace(req.ManualCode)
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Language = strings.ToUpper(strings.TrimSpace(req.Language))
	req.RevisionCode = strings.TrimSpace(req.RevisionCode)
	req.FileURL = strings.TrimSpace(req.FileURL)
}

func (req *manualReq) validate() string {
	if req.ManualCode == "" {
		return "manual_code required"
	}
	if req.Language == "" {
		return "language required"
	}
	return ""
}

func (h *Handler) createManuals(c *gin.Context) {
	batch, err := decodeBatch(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(batch) == 0 || len(batch) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("batch must contain between 1 and %d items", maxBatchSize),
		})
		return
	}

	report := batchReport{Errors: []batchItemError{}, Items: []any{}}
	for i, raw := range batch {
		var req manualReq
		if err := json.Unmarshal(raw, &req); err != nil {
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "invalid item"})
			continue
		}
		req.normalize()
		if msg := req.validate(); msg != "" {
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: msg})
			continue
		}

		exists, err := h.Manuals.VariantExists(c.Request.Context(), req.ManualCode, req.Language, req.RevisionCode)
		if err != nil {
			h.Log.Error("manual exists check failed", "manual_code", req.ManualCode, "err", err)
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "internal error"})
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		m := models.Manual{
			ID:           uuid.NewString(),
			ManualCode:   req.ManualCode,
			Name:         req.Name,
			Description:  req.Description,
			Language:     req.Language,
			RevisionCode: req.RevisionCode,
			FileURL:      req.FileURL,
		}
		if err := h.Manuals.Create(c.Request.Context(), m); err != nil {
			h.Log.Error("create manual failed", "manual_code", req.ManualCode, "err", err)
			report.Errors = append(report.Errors, batchItemError{Index: i, Error: "internal error"})
			continue
		}
		report.Created++
		report.Items = append(report.Items, m)
	}

	status := http.StatusCreated
	if report.Created == 0 {
		status = http.StatusOK
	}
	c.JSON(status, report)
}

func (h *Handler) updateManual(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Manuals.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req manualReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	m := models.Manual{
		ID:           id,
		ManualCode:   req.ManualCode,
		Name:         req.Name,
		Description:  req.Description,
		Language:     req.Language,
		RevisionCode: req.RevisionCode,
	}
	ok, err := h.Manuals.Update(c.Request.Context(), m)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	saved, err := h.Manuals.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteManual(c *gin.Context) {
	ok, err := h.Manuals.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
