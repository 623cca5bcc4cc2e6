package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	masterdata "github.com/perpusda/sipus/internal/modules/masterdata/service"
	"github.com/perpusda/sipus/pkg/response"
	"github.com/perpusda/sipus/pkg/validator"
)

type MasterdataHandler struct {
	service masterdata.MasterdataService
}

func NewMasterdataHandler(service masterdata.MasterdataService) *MasterdataHandler {
	return &MasterdataHandler{service: service}
}

type createRequest struct {
	Name string `json:"name" binding:"required"`
}

var kinds = map[string]masterdata.Kind{
	"categories": masterdata.KindCategory,
	"authors":    masterdata.KindAuthor,
	"publishers": masterdata.KindPublisher,
	"subjects":   masterdata.KindSubject,
}

func kindFromPath(c *gin.Context) (masterdata.Kind, bool) {
	kind, ok := kinds[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "jenis data tidak dikenal"})
	}
	return kind, ok
}

func (h *MasterdataHandler) List(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, total, err := h.service.List(c.Request.Context(), kind, c.Query("search"), (page-1)*limit, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "total": total})
}

func (h *MasterdataHandler) Create(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	entry, err := h.service.Create(c.Request.Context(), kind, req.Name)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *MasterdataHandler) Delete(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), kind, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "data berhasil dihapus"})
}
