package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/health"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
)

// HealthController handles liveness and readiness probes
type HealthController struct {
	checker *health.HealthChecker
	logger  *logger.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.HealthChecker, logger *logger.Logger) *HealthController {
	return &HealthController{
		checker: checker,
		logger:  logger,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": health.StatusOK,
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	status := c.checker.GetHealthStatus(ctx)
	if status["status"] != health.StatusOK {
		c.logger.Warn("Readiness check failed")
		ctx.JSON(http.StatusServiceUnavailable, status)
		return
	}
	ctx.JSON(http.StatusOK, status)
}
