package router

import (
	"github.com/betlink/affiliate-engine/internal/config"
	apihandlers "github.com/betlink/affiliate-engine/internal/http/handlers/api"
	"github.com/betlink/affiliate-engine/internal/http/response"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires middleware and the service-facing API routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := apihandlers.New(c)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	apiV1.Use(ServiceAuthMiddleware(cfg.Auth.ServiceSecret))
	{
		// Event ingestion
		apiV1.POST("/events/transaction-validated", handler.IngestTransactionValidated)

		// Affiliates
		apiV1.POST("/affiliates", handler.RegisterAffiliate)
		apiV1.GET("/affiliates", handler.ListAffiliates)
		apiV1.GET("/affiliates/:id", handler.GetAffiliate)
		apiV1.GET("/affiliates/:id/summary", handler.GetAffiliateSummary)
		apiV1.GET("/affiliates/:id/commissions", handler.ListAffiliateCommissions)
		apiV1.GET("/affiliates/:id/indications", handler.ListAffiliateIndications)

		// Rate table administration
		apiV1.GET("/rate-table", handler.GetRateTable)
		apiV1.PUT("/rate-table", handler.UpdateRateTable)

		// Audit trail
		apiV1.GET("/audit-logs", handler.ListAuditLogs)
	}

	return r
}
