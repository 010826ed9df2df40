package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/auth"
	"github.com/blackpearlke/blackpearl-api/internal/payment/mpesa"
)

type stkPushInput struct {
	OrderID int64  `json:"orderId" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

func (s *Server) initiateSTKPush(c *gin.Context) {
	var input stkPushInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("orderId and phone are required"))
		return
	}

	resp, err := s.payments.InitiateSTKPush(c.Request.Context(), input.OrderID, auth.NormalizePhone(input.Phone))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "STK push sent successfully",
		"CheckoutRequestID": resp.CheckoutRequestID,
	})
}

// mpesaCallback receives the asynchronous STK push result. The provider
// retries on anything but a success-shaped response, so even a malformed
// payload is acknowledged and only logged.
func (s *Server) mpesaCallback(c *gin.Context) {
	var env mpesa.CallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusOK, mpesa.AckOK())
		return
	}
	c.JSON(http.StatusOK, s.payments.HandleMpesaCallback(c.Request.Context(), &env))
}

func (s *Server) querySTKStatus(c *gin.Context) {
	resp, err := s.payments.QuerySTKStatus(c.Request.Context(), c.Param("checkoutRequestId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type stripeIntentInput struct {
	OrderID int64 `json:"orderId" binding:"required"`
}

func (s *Server) createStripeIntent(c *gin.Context) {
	var input stripeIntentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("orderId is required"))
		return
	}

	clientSecret, err := s.payments.CreateStripeIntent(c.Request.Context(), input.OrderID, currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

// stripeWebhook needs the raw body for signature verification.
func (s *Server) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, apperr.Validation("Failed to read webhook payload"))
		return
	}

	err = s.payments.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
