package api

import (
	"net/http"

	"ticketing/internal/auth"
	"ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

// OrdersHandler serves the orders service API
type OrdersHandler struct {
	orders *service.OrderService
}

func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// CreateOrderRequest is the body of an order creation
type CreateOrderRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
}

func (h *OrdersHandler) Register(api *gin.RouterGroup) {
	orders := api.Group("/orders", auth.RequireAuth())
	{
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)
		orders.POST("", h.createOrder)
		orders.DELETE("/:id", h.cancelOrder)
	}
}

func (h *OrdersHandler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), auth.IdentityFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrdersHandler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), auth.IdentityFrom(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), auth.IdentityFrom(c).ID, req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrdersHandler) cancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), auth.IdentityFrom(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
