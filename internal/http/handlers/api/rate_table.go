package api

import (
	"errors"

	"github.com/betlink/affiliate-engine/internal/http/response"
	"github.com/betlink/affiliate-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRateTable returns the rate table currently in force.
func (h *Handler) GetRateTable(c *gin.Context) {
	table := h.ConfigProvider.ActiveTable(c.Request.Context())
	response.Success(c, table)
}

// UpdateRateTable replaces the active rate table. The table is validated
// against the category caps before anything is persisted.
func (h *Handler) UpdateRateTable(c *gin.Context) {
	var table service.RateTable
	if err := c.ShouldBindJSON(&table); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.ConfigProvider.UpdateTable(c.Request.Context(), table); err != nil {
		if errors.Is(err, service.ErrRateTableInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to save rate table", err)
		return
	}
	response.Success(c, h.ConfigProvider.ActiveTable(c.Request.Context()))
}
