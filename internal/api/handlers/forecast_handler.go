package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
)

// JobTrigger runs a named batch job.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) (*domain.JobRunSummary, error)
}

type ForecastHandler struct {
	service *service.ForecastService
	jobs    JobTrigger
}

func NewForecastHandler(service *service.ForecastService, jobs JobTrigger) *ForecastHandler {
	return &ForecastHandler{service: service, jobs: jobs}
}

type runForecastRequest struct {
	Horizon int    `json:"horizon"`
	Model   string `json:"model"`
}

func (h *ForecastHandler) GetLatest(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	run, err := h.service.LatestForecast(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ForecastHandler) GetHistory(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = v
	}

	runs, err := h.service.ForecastHistory(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs, "count": len(runs)})
}

func (h *ForecastHandler) GetRisk(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	assessment, err := h.service.ProductRisk(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (h *ForecastHandler) RunForecast(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	var req runForecastRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	model, err := domain.ParseModelType(req.Model)
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := h.service.ForecastProduct(c.Request.Context(), productID, req.Horizon, model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (h *ForecastHandler) TriggerJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "jobs are not available"})
		return
	}

	summary, err := h.jobs.Trigger(c.Request.Context(), c.Param("job"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case service.IsNotFound(err), errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnsupportedModel),
		errors.Is(err, domain.ErrInvalidHorizon),
		errors.Is(err, domain.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough sales history to forecast"})
	case errors.Is(err, domain.ErrDataUnavailable):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("data unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
