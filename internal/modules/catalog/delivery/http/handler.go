package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/middleware"
	"github.com/perpusda/sipus/internal/modules/catalog/dto"
	catalog "github.com/perpusda/sipus/internal/modules/catalog/service"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/response"
	"github.com/perpusda/sipus/pkg/validator"
)

type CatalogHandler struct {
	service catalog.CatalogService
}

func NewCatalogHandler(service catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) ListBooks(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	result, err := h.service.List(c.Request.Context(), sc, c.Request.URL.Query())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CatalogHandler) GetBook(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	book, err := h.service.Get(c.Request.Context(), sc, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *CatalogHandler) CreateBook(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	book, err := h.service.Create(c.Request.Context(), sc, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (h *CatalogHandler) UpdateBook(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	book, err := h.service.Update(c.Request.Context(), sc, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *CatalogHandler) DeleteBook(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), sc, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "buku berhasil dihapus"})
}

// RelocateBooks applies the bulk shelf update. The active list filter rides
// along as query parameters when all_matching_filter is set.
func (h *CatalogHandler) RelocateBooks(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var req dto.RelocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	affected, err := h.service.Relocate(c.Request.Context(), sc, req, c.Request.URL.Query())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}
