package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

func (s *Server) getCart(c *gin.Context) {
	cart, err := s.carts.ByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}})
		return
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	c.JSON(http.StatusOK, cart)
}

type addToCartInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

func (s *Server) addToCart(c *gin.Context) {
	var input addToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Product and quantity required"))
		return
	}

	product, err := s.products.ByID(c.Request.Context(), input.ProductID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if product == nil {
		s.fail(c, apperr.NotFound("Product not found"))
		return
	}

	cart, err := s.carts.AddItem(c.Request.Context(), currentUser(c).ID, product, input.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type updateCartInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  *int  `json:"quantity" binding:"required"`
}

func (s *Server) updateCartItem(c *gin.Context) {
	var input updateCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("productId and quantity are required"))
		return
	}

	// Quantity <= 0 removes the item rather than erroring.
	err := s.carts.UpdateQuantity(c.Request.Context(), currentUser(c).ID, input.ProductID, *input.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

func (s *Server) removeCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid product id"))
		return
	}

	if err := s.carts.RemoveItem(c.Request.Context(), currentUser(c).ID, productID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.carts.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
