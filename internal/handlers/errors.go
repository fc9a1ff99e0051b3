package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"rental-reconciliation-backend/internal/repository"
	"rental-reconciliation-backend/internal/services/importer"
	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	defaultMaxUpload = 32 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var badRequest = []error{
	importer.ErrInvalidMode,
	importer.ErrInvalidSource,
	importer.ErrMissingReference,
	importer.ErrBatchRequired,
	importer.ErrBatchSourceDiffer,
	service.ErrNothingToConfirm,
	service.ErrInvalidManualType,
	service.ErrCodeRequired,
	service.ErrInvalidRule,
	service.ErrNotPlatformBatch,
}

var notFound = []error{
	repository.ErrNotFound,
	service.ErrNoBankTransaction,
	service.ErrNoPlatformTransaction,
}

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and reported as 500.
func (h *ReconciliationHandler) respondError(c *gin.Context, err error) {
	var perr *importer.ParseError
	if errors.As(err, &perr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        perr.Error(),
			"reason":       perr.Reason,
			"file":         perr.FileName,
			"headers":      perr.Headers,
			"row_count":    perr.RowCount,
			"empty_import": errors.Is(err, importer.ErrEmptyImport),
		})
		return
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if errors.Is(err, service.ErrNoOwningPayout) || errors.Is(err, service.ErrNotPayout) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
