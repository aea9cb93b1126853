package api

import (
	"net/http"
	"strconv"

	"ticketing/internal/auth"
	"ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

// TicketsHandler serves the tickets service API
type TicketsHandler struct {
	tickets *service.TicketService
}

func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

func (h *TicketsHandler) Register(api *gin.RouterGroup) {
	api.GET("/tickets", h.listTickets)
	api.GET("/tickets/:id", h.getTicket)
	api.POST("/tickets", auth.RequireAuth(), h.createTicket)
	api.PUT("/tickets/:id", auth.RequireAuth(), h.updateTicket)
}

func (h *TicketsHandler) listTickets(c *gin.Context) {
	onlyAvailable, _ := strconv.ParseBool(c.Query("available"))

	tickets, err := h.tickets.ListTickets(c.Request.Context(), onlyAvailable)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *TicketsHandler) getTicket(c *gin.Context) {
	ticket, err := h.tickets.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketsHandler) createTicket(c *gin.Context) {
	var req service.TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ticket, err := h.tickets.CreateTicket(c.Request.Context(), auth.IdentityFrom(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketsHandler) updateTicket(c *gin.Context) {
	var req service.TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ticket, err := h.tickets.UpdateTicket(c.Request.Context(), auth.IdentityFrom(c).ID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
