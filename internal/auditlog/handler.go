package auditlog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/searches", h.listSearches)
	rg.GET("/downloads", h.listDownloads)
	rg.GET("/stats", h.stats)
}

func (h *Handler) listSearches(c *gin.Context) {
	q := queryFromRequest(c)
	items, total, err := h.Repo.ListSearches(c.Request.Context(), q)
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

func (h *Handler) listDownloads(c *gin.Context) {
	q := queryFromRequest(c)
	items, total, err := h.Repo.ListDownloads(c.Request.Context(), q)
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

func (h *Handler) stats(c *gin.Context) {
	s, err := h.Repo.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func queryFromRequest(c *gin.Context) ListQuery {
	return ListQuery{
		Outcome: strings.TrimSpace(c.Query("outcome")),
		Serial:  strings.TrimSpace(c.Query("serial_number")),
		Limit:   parseInt(c.Query("limit"), 50),
		Offset:  parseInt(c.Query("offset"), 0),
	}
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
