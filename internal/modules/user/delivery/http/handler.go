package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/middleware"
	usersvc "github.com/perpusda/sipus/internal/modules/user/service"
	"github.com/perpusda/sipus/pkg/response"
	"github.com/perpusda/sipus/pkg/validator"
)

type UserHandler struct {
	service usersvc.UserService
}

func NewUserHandler(service usersvc.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Login(c *gin.Context) {
	var req usersvc.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req usersvc.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), sc.UserID, req); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password berhasil diubah"})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

// Me returns the identity baked into the bearer token.
func (h *UserHandler) Me(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var roomID *uuid.UUID
	if sc.RoomID != nil {
		roomID = sc.RoomID
	}
	c.JSON(http.StatusOK, gin.H{"user_id": sc.UserID, "role": sc.Role, "room_id": roomID})
}
