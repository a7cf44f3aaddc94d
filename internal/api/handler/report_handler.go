package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"donor-crm/internal/api/dto"
	"donor-crm/internal/report"
	"donor-crm/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	reports.POST("", h.Create)
	reports.GET("", h.List)
	reports.POST("/run", h.RunAdhoc)
	reports.GET("/:id", h.Get)
	reports.PUT("/:id", h.Update)
	reports.DELETE("/:id", h.Delete)
	reports.POST("/:id/run", h.Run)
	reports.GET("/:id/export", h.Export)
}

func (h *ReportHandler) Create(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	def, err := h.service.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	def, err := h.service.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (h *ReportHandler) List(c *gin.Context) {
	defs, err := h.service.List(c.Request.Context(), callerFrom(c), listOptions(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReportListResponse{Reports: defs})
}

func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	def, err := h.service.Update(c.Request.Context(), callerFrom(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReportHandler) Run(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tables, err := h.service.Run(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReportResultResponse{ReportID: &id, Results: tables})
}

func (h *ReportHandler) RunAdhoc(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tables, err := h.service.RunAdhoc(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReportResultResponse{Results: tables})
}

// Export renders the whole report before writing so failures still get a
// problem document.
func (h *ReportHandler) Export(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", report.FormatCSV)

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), callerFrom(c), id, format, &buf); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
