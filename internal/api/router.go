package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/agentbench/finledger/internal/api/handler"
	"github.com/agentbench/finledger/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	busHandler *handler.BusHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Ledger operations
		ledgerGroup := v1.Group("/ledger")
		{
			ledgerGroup.GET("/accounts", ledgerHandler.ListAccounts)
			ledgerGroup.GET("/accounts/:id/balance", ledgerHandler.GetAccountBalance)
			ledgerGroup.GET("/trial-balance", ledgerHandler.GetTrialBalance)
			ledgerGroup.GET("/position", ledgerHandler.GetFinancialPosition)
			ledgerGroup.GET("/integrity", ledgerHandler.VerifyIntegrity)
			ledgerGroup.POST("/equity", ledgerHandler.InjectEquity)
		}

		// Financial statements
		statements := v1.Group("/statements")
		{
			statements.GET("/balance-sheet", ledgerHandler.GetBalanceSheet)
			statements.GET("/income", ledgerHandler.GetIncomeStatement)
		}

		// Transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", ledgerHandler.ListTransactions)
			transactions.POST("", ledgerHandler.PostTransaction)
		}

		// Event bus introspection
		bus := v1.Group("/bus")
		{
			bus.GET("/stats", busHandler.GetStats)
			bus.GET("/events", busHandler.GetRecordedEvents)
			bus.POST("/recording/start", busHandler.StartRecording)
			bus.POST("/recording/stop", busHandler.StopRecording)
			bus.POST("/recording/clear", busHandler.ClearRecorded)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
