package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	stat "github.com/perpusda/sipus/internal/modules/stat/service"
	"github.com/perpusda/sipus/pkg/response"
)

type StatHandler struct {
	service stat.StatService
}

func NewStatHandler(service stat.StatService) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
