package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Import stores an uploaded CSV as bank or platform transactions. The form
// carries the file, type, mode and the type's reference names.
func (h *ReconciliationHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	h.log.Debug().Str("file", header.Filename).Int64("size", header.Size).Msg("received import")

	mode, err := importer.ParseMode(c.PostForm("mode"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	req := importer.Request{
		Source:   models.SourceType(c.PostForm("type")),
		FileName: header.Filename,
		Data:     data,
		Mode:     mode,
		Bank: importer.BankMeta{
			BankName: c.PostForm("bank_name"),
			BankCode: c.PostForm("bank_code"),
		},
		Platform: importer.PlatformMeta{
			PlatformName: c.PostForm("platform_name"),
			Account:      c.PostForm("account"),
			PropertyName: c.PostForm("property_name"),
		},
	}
	if s := c.PostForm("batch_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
			return
		}
		req.BatchID = id
	}
	if s := c.PostForm("delimiter"); s != "" {
		r, _ := utf8.DecodeRuneInString(s)
		if s == `\t` {
			r = '\t'
		}
		req.Delimiter = r
	}

	res, err := h.importer.Import(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReconciliationHandler) ListBatches(c *gin.Context) {
	source := models.SourceType(c.Query("type"))
	if source != "" && source != models.SourceBank && source != models.SourcePlatform {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be bank or platform"})
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), source)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": batches})
}

func (h *ReconciliationHandler) GetBatch(c *gin.Context) {
	id, ok := paramID(c, "batchId")
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.service.BatchStats(c.Request.Context(), batch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch, "stats": stats})
}

func (h *ReconciliationHandler) DeleteBatch(c *gin.Context) {
	id, ok := paramID(c, "batchId")
	if !ok {
		return
	}
	if err := h.service.DeleteBatch(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "batch deleted", "batch_id": id})
}

// ListTransactions pages a batch by row index. cursor is the last row index
// already seen.
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	id, ok := paramID(c, "batchId")
	if !ok {
		return
	}

	status := models.ReconciliationStatus(c.Query("status"))
	if status != "" && status != models.StatusReconciled && status != models.StatusUnreconciled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	cursor := -1
	if s := c.Query("cursor"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		cursor = n
	}

	page, err := h.service.ListTransactions(c.Request.Context(), id, status, cursor, queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReconciliationHandler) Associations(c *gin.Context) {
	id, ok := paramID(c, "batchId")
	if !ok {
		return
	}
	groups, err := h.service.Associations(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
