package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenda-system/internal/rates"
)

type RatesHandler struct {
	service *rates.Service
}

func NewRatesHandler(service *rates.Service) *RatesHandler {
	return &RatesHandler{service: service}
}

func (h *RatesHandler) GetExchangeRate(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, errorResponse("from and to query parameters are required"))
		return
	}

	result, err := h.service.GetRate(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, rates.ErrRateUnavailable) {
			c.JSON(http.StatusNotFound, errorResponse("Exchange rate unavailable for this pair"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to resolve exchange rate"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Exchange rate retrieved successfully", result))
}
