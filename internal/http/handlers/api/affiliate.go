package api

import (
	"errors"
	"strconv"

	"github.com/betlink/affiliate-engine/internal/http/response"
	"github.com/betlink/affiliate-engine/internal/repository"
	"github.com/betlink/affiliate-engine/internal/service"

	"github.com/gin-gonic/gin"
)

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return 0, false
	}
	return uint(id), true
}

// RegisterAffiliate creates an affiliate, optionally under a referrer.
func (h *Handler) RegisterAffiliate(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	affiliate, err := h.AffiliateService.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReferralCodeNotFound):
			respondError(c, response.CodeNotFound, "referral code not found", nil)
		case errors.Is(err, service.ErrAffiliateDisabled):
			respondError(c, response.CodeBadRequest, "referrer is disabled", nil)
		default:
			respondError(c, response.CodeInternal, "failed to register affiliate", err)
		}
		return
	}
	response.Success(c, affiliate)
}

// GetAffiliate returns one affiliate by ID.
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to load affiliate", err)
		return
	}
	response.Success(c, affiliate)
}

// GetAffiliateSummary returns the affiliate with earning totals and the next
// progression target.
func (h *Handler) GetAffiliateSummary(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	summary, err := h.AffiliateService.GetSummary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to load summary", err)
		return
	}
	response.Success(c, summary)
}

// ListAffiliates returns a page of affiliates.
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	affiliates, total, err := h.AffiliateService.ListAffiliates(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list affiliates", err)
		return
	}
	response.SuccessWithPage(c, affiliates, pagination(page, pageSize, total))
}

// ListAffiliateCommissions returns a page of one affiliate's commissions.
func (h *Handler) ListAffiliateCommissions(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: id,
		Status:      c.Query("status"),
	}
	commissions, total, err := h.AffiliateService.ListCommissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list commissions", err)
		return
	}
	response.SuccessWithPage(c, commissions, pagination(page, pageSize, total))
}

// ListAffiliateIndications returns a page of indications sourced by one
// affiliate.
func (h *Handler) ListAffiliateIndications(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.IndicationListFilter{
		Page:              page,
		PageSize:          pageSize,
		SourceAffiliateID: id,
		Status:            c.Query("status"),
	}
	indications, total, err := h.AffiliateService.ListIndications(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list indications", err)
		return
	}
	response.SuccessWithPage(c, indications, pagination(page, pageSize, total))
}
