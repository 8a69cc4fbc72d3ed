package handlers

import (
	"github.com/gin-gonic/gin"

	"ecobazar-system/internal/gateway/middleware"
	usershandler "ecobazar-system/internal/services/users/handler"
)

type UserHTTPHandler struct {
	users *usershandler.UserHandler
}

func NewUserHTTPHandler(users *usershandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{users: users}
}

// RegisterOrLogin issues a JWT for a telegram identity, creating the
// CUSTOMER account on first contact.
func (h *UserHTTPHandler) RegisterOrLogin(c *gin.Context) {
	var req usershandler.RegisterOrLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	result, err := h.users.RegisterOrLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	page := bindPage(c)
	role := c.Query("role")

	users, total, err := h.users.ListUsers(c.Request.Context(), role, page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, page.Meta(total))
}

func (h *UserHTTPHandler) UpdateUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req usershandler.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHTTPHandler) ListCouriers(c *gin.Context) {
	couriers, err := h.users.ListCouriers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, couriers)
}
