package products

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"manualhub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.getByID)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Serial:     c.Query("serial_number"),
		ManualCode: c.Query("manual_code"),
		Limit:      parseInt(c.Query("limit"), 50),
		Offset:     parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type upsertReq struct {
	SerialNumber string `json:"serial_number"`
	ManualCode   string `json:"manual_code"`
	RevisionCode string `json:"revision_code"`
	Notes        string `json:"notes"`
}

func (req *upsertReq) normalize() {
	req.SerialNumber = strings.TrimSpace(req.SerialNumber)
	req.ManualCode = strings.TrimSpace(req.ManualCode)
	req.RevisionCode = strings.TrimSpace(req.RevisionCode)
	req.Notes = strings.TrimSpace(req.Notes)
}

func (h *Handler) create(c *gin.Context) {
	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.normalize()
	if req.SerialNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number required"})
		return
	}

	exists, err := h.Repo.SerialExists(c.Request.Context(), req.SerialNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "serial number already exists"})
		return
	}

	p := models.Product{
		ID:           uuid.NewString(),
		SerialNumber: req.SerialNumber,
		ManualCode:   req.ManualCode,
		RevisionCode: req.RevisionCode,
		Notes:        req.Notes,
	}
	if err := h.Repo.Create(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), p.ID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req upsertReq
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
	ok, err := h.Repo.Update(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) remove(c *gin.Context) {
	ok, err := h.Repo.Delete(c.Request.Context(), c.Param("id"))
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
