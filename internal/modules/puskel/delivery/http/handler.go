package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/modules/puskel/dto"
	puskel "github.com/perpusda/sipus/internal/modules/puskel/service"
	"github.com/perpusda/sipus/pkg/response"
	"github.com/perpusda/sipus/pkg/validator"
)

type PuskelHandler struct {
	service puskel.PuskelService
}

func NewPuskelHandler(service puskel.PuskelService) *PuskelHandler {
	return &PuskelHandler{service: service}
}

func (h *PuskelHandler) CreateInstitution(c *gin.Context) {
	var req dto.InstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	inst, err := h.service.CreateInstitution(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inst)
}

func (h *PuskelHandler) ListInstitutions(c *gin.Context) {
	offset, limit := pagination(c)
	institutions, total, err := h.service.ListInstitutions(c.Request.Context(), c.Query("search"), offset, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": institutions, "total": total})
}

func (h *PuskelHandler) UpdateInstitution(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req dto.InstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	inst, err := h.service.UpdateInstitution(c.Request.Context(), id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, inst)
}

func (h *PuskelHandler) DeleteInstitution(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	if err := h.service.DeleteInstitution(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "institusi berhasil dihapus"})
}

func (h *PuskelHandler) Lend(c *gin.Context) {
	var req dto.LendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	loans, err := h.service.Lend(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loans})
}

func (h *PuskelHandler) Return(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	loan, err := h.service.Return(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan)
}

func (h *PuskelHandler) ListLoans(c *gin.Context) {
	offset, limit := pagination(c)

	var institutionID *uuid.UUID
	if raw := c.Query("institution_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			institutionID = &id
		}
	}

	loans, total, err := h.service.ListLoans(c.Request.Context(), c.Query("status"), institutionID, offset, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loans, "total": total})
}

func pagination(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}
