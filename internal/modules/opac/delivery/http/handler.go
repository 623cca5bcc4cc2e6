package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	opac "github.com/perpusda/sipus/internal/modules/opac/service"
	"github.com/perpusda/sipus/pkg/response"
)

type OpacHandler struct {
	service opac.OpacService
}

func NewOpacHandler(service opac.OpacService) *OpacHandler {
	return &OpacHandler{service: service}
}

func (h *OpacHandler) SearchBooks(c *gin.Context) {
	result, err := h.service.Search(c.Request.Context(), c.ClientIP(), c.Request.URL.Query())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *OpacHandler) GetBook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	book, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *OpacHandler) Suggest(c *gin.Context) {
	suggestions, err := h.service.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}
