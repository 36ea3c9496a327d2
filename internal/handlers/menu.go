package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zenda-system/internal/menu"
)

type MenuHandler struct {
	importer *menu.Importer
}

func NewMenuHandler(importer *menu.Importer) *MenuHandler {
	return &MenuHandler{importer: importer}
}

func (h *MenuHandler) ImportMenu(c *gin.Context) {
	var extract menu.Extract
	if err := c.ShouldBindJSON(&extract); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid menu extract format"))
		return
	}

	result, err := h.importer.Import(c.Request.Context(), extract)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to import menu: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu imported successfully", result))
}
