package api

import (
	"errors"
	"net/http"

	"ticketing/internal/models"
	"ticketing/internal/service"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps err to a status code and writes the error body
func respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Something went wrong"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrNotAuthorized):
		status, message = http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, service.ErrTicketReserved):
		status, message = http.StatusBadRequest, "Ticket is already reserved"
	case errors.Is(err, service.ErrEmailInUse):
		status, message = http.StatusBadRequest, "Email in use"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, models.ErrInvalidTransition):
		status, message = http.StatusBadRequest, "Invalid order status"
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrConflict):
		status, message = http.StatusConflict, "Modified concurrently, retry"
	}

	if status == http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
