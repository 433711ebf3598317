package api

import (
	"strconv"
	"time"

	"github.com/betlink/affiliate-engine/internal/http/response"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs returns a page of engine audit records, newest first.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.AuditLogListFilter{
		Action:     c.Query("action"),
		Severity:   c.Query("severity"),
		ResourceID: c.Query("resource_id"),
		RequestID:  c.Query("request_id"),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid since timestamp", nil)
			return
		}
		filter.Since = &since
	}

	logs, total, err := h.AuditService.List(filter, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list audit logs", err)
		return
	}
	response.SuccessWithPage(c, logs, pagination(page, pageSize, total))
}
