package manuals

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"manualhub/pkg/logger"
	"manualhub/pkg/models"
	"manualhub/pkg/storage"
)

// languages the store accepts; matches the catalog's 2-letter codes.
var validLanguages = map[string]bool{
	"IT": true, "EN": true, "DE": true, "FR": true, "ES": true,
}

const maxUploadBytes = 64 << 20 // 64 MiB per PDF

type Handler struct {
	Repo   *Repo
	Bucket storage.BucketService
	Log    *logger.Logger
}

func NewHandler(repo *Repo, bucket storage.BucketService, log *logger.Logger) *Handler {
	return &Handler{Repo: repo, Bucket: bucket, Log: log.With("component", "manuals")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.getByID)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.remove)
	rg.POST("/:id/file", h.uploadFile)
	rg.DELETE("/:id/file", h.deleteFile)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		ManualCode: c.Query("manual_code"),
		Language:   c.Query("language"),
		Revision:   c.Query("revision_code"),
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
	m, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

type upsertReq struct {
	ManualCode   string `json:"manual_code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Language     string `json:"language"`
	RevisionCode string `json:"revision_code"`
}

func (req *upsertReq) normalize() {
	req.ManualCode = strings.TrimSpace(req.ManualCode)
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Language = strings.ToUpper(strings.TrimSpace(req.Language))
	req.RevisionCode = strings.TrimSpace(req.RevisionCode)
}

func (req *upsertReq) validate() string {
	if req.ManualCode == "" {
		return "manual_code required"
	}
	if !validLanguages[req.Language] {
		return "language must be one of: IT, EN, DE, FR, ES"
	}
	return ""
}

func (h *Handler) create(c *gin.Context) {
	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	exists, err := h.Repo.VariantExists(c.Request.Context(), req.ManualCode, req.Language, req.RevisionCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "manual variant already exists"})
		return
	}

	m := models.Manual{
		ID:           uuid.NewString(),
		ManualCode:   req.ManualCode,
		Name:         req.Name,
		Description:  req.Description,
		Language:     req.Language,
		RevisionCode: req.RevisionCode,
	}
	if err := h.Repo.Create(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), m.ID)
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
	ok, err := h.Repo.Update(c.Request.Context(), m)
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
	id := c.Param("id")

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if _, err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	// best effort: an orphaned object costs storage, not correctness
	if m.FileKey != "" && h.Bucket != nil {
		if err := h.Bucket.Delete(c.Request.Context(), m.FileKey); err != nil {
			h.Log.Warn("delete stored file failed", "manual_id", id, "key", m.FileKey, "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) uploadFile(c *gin.Context) {
	if h.Bucket == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
		return
	}

	id := c.Param("id")
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are accepted"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	defer f.Close()

	key := objectKey(m)
	url, err := h.Bucket.Upload(c.Request.Context(), key, f, "application/pdf")
	if err != nil {
		h.Log.Error("upload failed", "manual_id", id, "key", key, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	if _, err := h.Repo.SetFile(c.Request.Context(), id, url, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file reference failed"})
		return
	}

	h.Log.Info("manual file uploaded", "manual_id", id, "key", key)
	c.JSON(http.StatusOK, gin.H{"file_url": url, "file_key": key})
}

func (h *Handler) deleteFile(c *gin.Context) {
	id := c.Param("id")
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if m.FileURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file uploaded"})
		return
	}

	if m.FileKey != "" && h.Bucket != nil {
		if err := h.Bucket.Delete(c.Request.Context(), m.FileKey); err != nil {
			h.Log.Error("delete stored file failed", "manual_id", id, "key", m.FileKey, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete file failed"})
			return
		}
	}

	if _, err := h.Repo.ClearFile(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear file reference failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file removed"})
}

// objectKey keeps one slot per code/revision/language, so re-uploads
// replace the previous PDF.
func objectKey(m *models.Manual) string {
	rev := m.RevisionCode
	if rev == "" {
		rev = "norev"
	}
	return fmt.Sprintf("manuals/%s/%s/%s_%s_%s.pdf", m.ManualCode, rev, m.ManualCode, m.Language, rev)
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
