package api

import (
	"donor-crm/internal/api/handler"
	"donor-crm/internal/api/middleware"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RouterDeps struct {
	DB       *gorm.DB
	Journeys service.JourneyService
	Reports  service.ReportService
	Log      *logger.Logger
	Metrics  *metrics.Metrics
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(deps.Log.Component("http")),
		middleware.Metrics(deps.Metrics),
	)

	router.GET("/healthz", handler.NewHealthHandler(deps.DB).Check)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1", handler.Identity())
	handler.NewJourneyHandler(deps.Journeys).Register(v1)
	handler.NewReportHandler(deps.Reports).Register(v1)

	return router
}
