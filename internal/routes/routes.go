package routes

import (
	"net/http"

	handler "rental-reconciliation-backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *handler.ReconciliationHandler) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.POST("/import", h.Import)

	batches := api.Group("/batches")
	batches.GET("", h.ListBatches)
	batches.GET("/:batchId", h.GetBatch)
	batches.DELETE("/:batchId", h.DeleteBatch)
	batches.GET("/:batchId/transactions", h.ListTransactions)
	batches.GET("/:batchId/associations", h.Associations)

	rules := api.Group("/rules")
	rules.GET("", h.ListRules)
	rules.POST("", h.CreateRule)
	rules.DELETE("/:id", h.DeleteRule)

	recon := api.Group("/reconciliation")
	recon.POST("/preview", h.Preview)
	recon.POST("/confirm", h.Confirm)
	recon.POST("/manual", h.Manual)
	recon.POST("/auto", h.Auto)
	recon.GET("/matches", h.ListMatches)
	recon.GET("/logs", h.ListLogs)
	recon.GET("/logs/:id", h.GetLog)
	recon.GET("/logs/:id/export", h.ExportLog)

	api.POST("/registry/check", h.CheckCodes)
}
