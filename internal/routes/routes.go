package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "footballhub/docs"
	"footballhub/internal/authz"
	"footballhub/internal/handlers"
	"footballhub/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	otpHandler *handlers.OTPHandler,
	adminHandler *handlers.AdminHandler,
	jwtSecret []byte,
	logger *slog.Logger,
) *gin.Engine {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(corsMiddleware())

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	otp := r.Group("/otp")
	{
		otp.POST("/send", otpHandler.Send)
		otp.POST("/verify", otpHandler.Verify)
	}

	// ---- protected: только support/admin, support read-only
	guard := []gin.HandlerFunc{
		middleware.AuthMiddleware(jwtSecret),
		middleware.RequireRoles(authz.Operators...),
		middleware.ReadOnlyGuard(),
	}
	otp.GET("/config-status", append(guard, adminHandler.ConfigStatus)...)

	admin := r.Group("/admin/otp", guard...)
	{
		admin.GET("/report", adminHandler.Report)
		admin.GET("/report.pdf", adminHandler.ReportPDF)
		admin.GET("/codes/:phone", adminHandler.Codes)
		admin.DELETE("/codes/:phone", adminHandler.InvalidateCodes)
		admin.POST("/alerts/test", adminHandler.TestAlert)
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
