package handler

import (
	"bytes"
	"net/http"

	"rental-reconciliation-backend/internal/clients/guestregistry"
	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/importer"
	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ReconciliationHandler struct {
	service  *service.ReconciliationService
	importer *importer.BatchImporter
	registry *guestregistry.Client
	// request body limit for uploads
	maxUpload int64
	log       zerolog.Logger
}

// NewReconciliationHandler wires the handlers. A non-positive maxUpload uses
// the default upload limit.
func NewReconciliationHandler(s *service.ReconciliationService, imp *importer.BatchImporter, registry *guestregistry.Client, maxUpload int64, log zerolog.Logger) *ReconciliationHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &ReconciliationHandler{
		service:   s,
		importer:  imp,
		registry:  registry,
		maxUpload: maxUpload,
		log:       log.With().Str("component", "handler").Logger(),
	}
}

// Preview computes rule-based matches and stores them as a pending log.
func (h *ReconciliationHandler) Preview(c *gin.Context) {
	var req service.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.RuleID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rule_id required"})
		return
	}

	res, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"log_id":  res.LogID,
		"matches": res.Matches,
		"count":   len(res.Matches),
	})
}

// Confirm applies a stored preview (log_id) or an explicit list of matches.
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	var req service.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), req)
	if err != nil {
		if res != nil {
			// cancelled part way: report what was applied
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "result": res})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReconciliationHandler) Auto(c *gin.Context) {
	var req service.AutoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}
	if req.WindowDays != nil && *req.WindowDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window_days must be >= 0"})
		return
	}

	res, err := h.service.Auto(c.Request.Context(), req)
	if err != nil {
		if res != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "result": res})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReconciliationHandler) Manual(c *gin.Context) {
	var payload struct {
		Type          string `json:"type"`
		TransactionID string `json:"transaction_id"`
		Code          string `json:"code"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	id, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	res, err := h.service.Manual(c.Request.Context(), service.ManualRequest{
		Type:          service.ManualType(payload.Type),
		TransactionID: id,
		Code:          payload.Code,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListMatches returns the audit trail, newest first.
func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	var bankID *uuid.UUID
	if s := c.Query("bank_transaction_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank transaction ID"})
			return
		}
		bankID = &id
	}

	matches, err := h.service.ListMatches(c.Request.Context(), bankID, queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches})
}

func (h *ReconciliationHandler) ListLogs(c *gin.Context) {
	logs, err := h.service.ListLogs(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (h *ReconciliationHandler) GetLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.GetLog(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ExportLog streams a preview log as an XLSX workbook.
func (h *ReconciliationHandler) ExportLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	// render first so a missing log can still answer with JSON
	var buf bytes.Buffer
	if err := h.service.ExportLog(c.Request.Context(), id, &buf); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciliation-`+id.String()+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CheckCodes asks the guest registry about codes given directly or harvested
// from a platform batch. Registry failures come back as degraded, not 5xx.
func (h *ReconciliationHandler) CheckCodes(c *gin.Context) {
	var payload struct {
		Codes   []string `json:"codes"`
		BatchID string   `json:"batch_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	codes := payload.Codes
	if payload.BatchID != "" {
		batchID, err := uuid.Parse(payload.BatchID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
			return
		}
		batch, err := h.service.GetBatch(c.Request.Context(), batchID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if batch.SourceType != models.SourcePlatform {
			h.respondError(c, service.ErrNotPlatformBatch)
			return
		}
		fromBatch, err := h.service.BatchCodes(c.Request.Context(), batchID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		codes = append(codes, fromBatch...)
	}

	c.JSON(http.StatusOK, h.registry.Check(c.Request.Context(), codes))
}
