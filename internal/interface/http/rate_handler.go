package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

type RateHandler struct {
	Rates  *app.RateService
	Logger *logrus.Logger
}

func NewRateHandler(rates *app.RateService, logger *logrus.Logger) *RateHandler {
	return &RateHandler{Rates: rates, Logger: logger}
}

type historyQuery struct {
	Material string `form:"material" binding:"required"`
	Days     int    `form:"days" binding:"omitempty,min=1,max=365"`
}

type upsertRateRequest struct {
	Material string  `json:"material" binding:"required,max=100"`
	Category string  `json:"category" binding:"max=100"`
	Unit     string  `json:"unit" binding:"required,max=30"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"omitempty,len=3"`
	RateDate string  `json:"rateDate"`
}

func (h *RateHandler) Today(c *gin.Context) {
	rates, err := h.Rates.Today(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rates, "", nil)
}

func (h *RateHandler) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	rates, err := h.Rates.History(c.Request.Context(), q.Material, q.Days)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rates, "", nil)
}

func (h *RateHandler) Upsert(c *gin.Context) {
	var req upsertRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	v, err := h.Rates.Upsert(c.Request.Context(), app.RateInput{
		Material: req.Material, Category: req.Category, Unit: req.Unit,
		Price: req.Price, Currency: req.Currency, RateDate: req.RateDate,
	}, c.GetString("userID"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, "Rate saved", nil)
}

func (h *RateHandler) Delete(c *gin.Context) {
	if err := h.Rates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Rate deleted", nil)
}
