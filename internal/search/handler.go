// Package search serves the public endpoints: serial-number search and
// manual download. Handlers validate inputs, call the resolver, write
// the audit log entry and broadcast an activity event; the resolver
// itself never logs.
package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"manualhub/internal/activity"
	"manualhub/internal/resolver"
	"manualhub/pkg/logger"
	"manualhub/pkg/models"
)

// AuditSink is the slice of the audit log the public handlers write to.
type AuditSink interface {
	InsertSearch(ctx context.Context, e models.SearchLogEntry) error
	InsertDownload(ctx context.Context, e models.DownloadLogEntry) error
}

type Handler struct {
	Resolver *resolver.Resolver
	Audit    AuditSink
	Hub      *activity.Hub
	Log      *logger.Logger
}

func NewHandler(res *resolver.Resolver, audit AuditSink, hub *activity.Hub, log *logger.Logger) *Handler {
	return &Handler{
		Resolver: res,
		Audit:    audit,
		Hub:      hub,
		Log:      log.With("component", "search"),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/download", h.download)
}

func (h *Handler) search(c *gin.Context) {
	serial := strings.TrimSpace(c.Query("serial_number"))
	if serial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number is required"})
		return
	}

	res, err := h.Resolver.SearchBySerial(c.Request.Context(), serial)
	if err != nil {
		h.Log.Error("search failed", "serial", serial, "err", err)
		h.logSearch(c, models.SearchLogEntry{
			SerialSearched: serial,
			Outcome:        models.SearchOutcomeError,
			ErrorMessage:   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	entry := models.SearchLogEntry{
		SerialSearched: serial,
		Outcome:        models.SearchOutcomeSuccess,
		ProductsFound:  len(res.Products),
		ManualsFound:   res.ManualsFound,
		GroupsCount:    len(res.Groups),
	}
	if len(res.Products) == 0 {
		entry.Outcome = models.SearchOutcomeNoProductFound
	}
	h.logSearch(c, entry)

	if len(res.Products) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"data":    []models.GroupedManual{},
			"message": "no product found with the specified serial number",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        res.Groups,
		"search_term": serial,
	})
}

func (h *Handler) download(c *gin.Context) {
	serial := strings.TrimSpace(c.Query("serial_number"))
	manualCode := strings.TrimSpace(c.Query("manual_code"))
	language := strings.ToUpper(strings.TrimSpace(c.Query("language")))
	if serial == "" || manualCode == "" || language == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "serial_number, manual_code and language are required",
		})
		return
	}

	entry := models.DownloadLogEntry{
		SerialNumber: serial,
		ManualCode:   manualCode,
		Language:     language,
	}

	dl, err := h.Resolver.ResolveDownload(c.Request.Context(), serial, manualCode, language)
	if err != nil {
		entry.Outcome = resolver.DownloadOutcome(err)
		entry.ErrorMessage = err.Error()
		h.logDownload(c, entry)

		status, msg := downloadErrorResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	entry.Outcome = models.DownloadOutcomeSuccess
	entry.ManualID = dl.Manual.ID
	entry.RevisionCode = dl.Product.RevisionCode
	entry.FileURL = dl.FileURL
	entry.FileName = dl.FileName
	h.logDownload(c, entry)

	c.JSON(http.StatusOK, gin.H{
		"download_url": dl.FileURL,
		"file_name":    dl.FileName,
		"manual": gin.H{
			"manual_code":   dl.Manual.ManualCode,
			"language":      dl.Manual.Language,
			"revision_code": dl.Manual.RevisionCode,
		},
		"product": gin.H{
			"serial_number": dl.Product.SerialNumber,
			"manual_code":   dl.Product.ManualCode,
			"revision_code": dl.Product.RevisionCode,
		},
	})
}

// downloadErrorResponse maps each resolver failure stage to its own
// user-facing message so support can tell them apart.
func downloadErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, resolver.ErrValidation):
		return http.StatusBadRequest, "serial_number, manual_code and language are required"
	case errors.Is(err, resolver.ErrProductNotFound):
		return http.StatusNotFound, "product not found with specified serial number and manual code"
	case errors.Is(err, resolver.ErrManualNotFound):
		return http.StatusNotFound, "manual not found for the specified product, language and revision"
	case errors.Is(err, resolver.ErrFileNotAvailable):
		return http.StatusNotFound, "file not available for this manual"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Audit writes never fail the request; a lost log row is better than a
// failed download.
func (h *Handler) logSearch(c *gin.Context, e models.SearchLogEntry) {
	e.IPAddress = c.ClientIP()
	e.UserAgent = c.Request.UserAgent()
	if err := h.Audit.InsertSearch(c.Request.Context(), e); err != nil {
		h.Log.Warn("write search log failed", "serial", e.SerialSearched, "err", err)
	}

	if h.Hub != nil {
		ev := activity.SearchEvent{
			Type:          "search",
			SerialNumber:  e.SerialSearched,
			Outcome:       e.Outcome,
			ProductsFound: e.ProductsFound,
			GroupsCount:   e.GroupsCount,
			At:            time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}
}

func (h *Handler) logDownload(c *gin.Context, e models.DownloadLogEntry) {
	e.IPAddress = c.ClientIP()
	e.UserAgent = c.Request.UserAgent()
	if err := h.Audit.InsertDownload(c.Request.Context(), e); err != nil {
		h.Log.Warn("write download log failed", "serial", e.SerialNumber, "err", err)
	}

	if h.Hub != nil {
		ev := activity.DownloadEvent{
			Type:         "download",
			SerialNumber: e.SerialNumber,
			ManualCode:   e.ManualCode,
			Language:     e.Language,
			Outcome:      e.Outcome,
			FileName:     e.FileName,
			At:           time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}
}
