package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/checkout"
)

type createOrderInput struct {
	PaymentMethod     string `json:"paymentMethod"`
	County            string `json:"county"`
	Town              string `json:"town"`
	Notes             string `json:"notes"`
	SMSUpdatesEnabled *bool  `json:"smsUpdatesEnabled"`
}

func (s *Server) createOrder(c *gin.Context) {
	user := currentUser(c)

	var input createOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Invalid input"))
		return
	}

	smsUpdates := true
	if input.SMSUpdatesEnabled != nil {
		smsUpdates = *input.SMSUpdatesEnabled
	}

	order, err := s.checkout.CreateOrder(c.Request.Context(), user.ID, user.Phone, checkout.Input{
		PaymentMethod:     input.PaymentMethod,
		County:            input.County,
		Town:              input.Town,
		Notes:             input.Notes,
		SMSUpdatesEnabled: smsUpdates,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Order placed successfully",
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
	})
}

func (s *Server) myOrders(c *gin.Context) {
	orders, err := s.orders.ListByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid order id"))
		return
	}

	order, err := s.orders.ByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if order == nil {
		s.fail(c, apperr.NotFound("Order not found"))
		return
	}
	if order.UserID != currentUser(c).ID {
		s.fail(c, apperr.Forbidden("Access denied"))
		return
	}
	c.JSON(http.StatusOK, order)
}
