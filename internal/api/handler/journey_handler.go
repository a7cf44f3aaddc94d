package handler

import (
	"context"
	"net/http"
	"strconv"

	"donor-crm/internal/api/dto"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type JourneyHandler struct {
	service service.JourneyService
}

func NewJourneyHandler(svc service.JourneyService) *JourneyHandler {
	return &JourneyHandler{service: svc}
}

func (h *JourneyHandler) Register(rg *gin.RouterGroup) {
	journeys := rg.Group("/journeys")
	journeys.POST("", h.Create)
	journeys.GET("", h.List)
	journeys.GET("/:id", h.Get)
	journeys.PUT("/:id", h.Update)
	journeys.POST("/:id/activate", h.Activate)
	journeys.POST("/:id/deactivate", h.Deactivate)
	journeys.POST("/:id/enroll", h.Enroll)
	journeys.GET("/:id/runs", h.GetRuns)
}

func (h *JourneyHandler) Create(c *gin.Context) {
	var req dto.CreateJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	journey, err := h.service.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, journey)
}

func (h *JourneyHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	journey, err := h.service.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, journey)
}

func (h *JourneyHandler) List(c *gin.Context) {
	status := domain.JourneyStatus(c.Query("status"))
	journeys, err := h.service.List(c.Request.Context(), callerFrom(c), status, listOptions(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.JourneyListResponse{Journeys: journeys})
}

func (h *JourneyHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	journey, err := h.service.Update(c.Request.Context(), callerFrom(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, journey)
}

func (h *JourneyHandler) Activate(c *gin.Context) {
	h.setStatus(c, h.service.Activate)
}

func (h *JourneyHandler) Deactivate(c *gin.Context) {
	h.setStatus(c, h.service.Deactivate)
}

func (h *JourneyHandler) setStatus(c *gin.Context, fn func(context.Context, domain.Caller, uuid.UUID) (*domain.Journey, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	journey, err := fn(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, journey)
}

func (h *JourneyHandler) Enroll(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	count, err := h.service.Enroll(c.Request.Context(), callerFrom(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.EnrollResponse{Count: count})
}

func (h *JourneyHandler) GetRuns(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	runs, err := h.service.GetRuns(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RunListResponse{JourneyID: id, Runs: runs})
}

func listOptions(c *gin.Context) ports.ListOptions {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return ports.ListOptions{Limit: limit, Offset: offset}
}
