package handlers

import (
	"github.com/gin-gonic/gin"

	"ecobazar-system/internal/gateway/middleware"
	ordershandler "ecobazar-system/internal/services/orders/handler"
)

type OrderHTTPHandler struct {
	orders *ordershandler.OrderHandler
}

func NewOrderHTTPHandler(orders *ordershandler.OrderHandler) *OrderHTTPHandler {
	return &OrderHTTPHandler{orders: orders}
}

func requester(c *gin.Context) ordershandler.Requester {
	return ordershandler.Requester{
		ID:   middleware.UserID(c),
		Role: c.GetString(middleware.CtxRole),
	}
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req ordershandler.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, order)
}

func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	page := bindPage(c)

	orders, total, err := h.orders.ListOrders(c.Request.Context(), requester(c), page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, orders, page.Meta(total))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), requester(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// GetOrderStatuses returns the append-only status history, oldest first.
func (h *OrderHTTPHandler) GetOrderStatuses(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	statuses, err := h.orders.ListOrderStatuses(c.Request.Context(), requester(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, statuses)
}

func (h *OrderHTTPHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ordershandler.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

type assignCourierRequest struct {
	CourierID uint `json:"courier_id" binding:"required"`
}

func (h *OrderHTTPHandler) AssignCourier(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req assignCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	order, err := h.orders.AssignCourier(c.Request.Context(), orderID, req.CourierID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// CourierUpdateStatus is the courier-scoped transition endpoint; anything
// but DELIVERING -> DELIVERED on the courier's own order is rejected.
func (h *OrderHTTPHandler) CourierUpdateStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ordershandler.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	order, err := h.orders.CourierUpdateStatus(c.Request.Context(), middleware.UserID(c), orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

func (h *OrderHTTPHandler) ConfirmOrderItem(c *gin.Context) {
	confirmationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ordershandler.ConfirmItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	confirmation, err := h.orders.ConfirmOrderItem(
		c.Request.Context(), middleware.UserID(c), confirmationID, req, false)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, confirmation)
}

func (h *OrderHTTPHandler) CreateDeliveryRating(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ordershandler.CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	rating, err := h.orders.CreateDeliveryRating(c.Request.Context(), middleware.UserID(c), orderID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, rating)
}
