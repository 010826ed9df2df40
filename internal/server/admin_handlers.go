package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/models"
	"github.com/blackpearlke/blackpearl-api/internal/store"
)

func (s *Server) adminDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := s.orders.Dashboard(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	totalProducts, err := s.products.Count(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalOrders":      stats.TotalOrders,
		"totalRevenue":     stats.TotalRevenue,
		"totalProducts":    totalProducts,
		"totalUsers":       totalUsers,
		"pendingOrders":    stats.PendingOrders,
		"paymentBreakdown": stats.Breakdown,
	})
}

func (s *Server) adminListProducts(c *gin.Context) {
	products, total, err := s.products.List(c.Request.Context(),
		intQuery(c, "page", 1), intQuery(c, "limit", 100), strings.TrimSpace(c.Query("search")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "totalProducts": total})
}

type productInput struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description" binding:"required"`
	Images         []string `json:"images" binding:"required,min=1"`
	Price          float64  `json:"price" binding:"required,gte=0"`
	CompareAtPrice *float64 `json:"compareAtPrice"`
	Currency       string   `json:"currency"`
	CountInStock   int      `json:"countInStock" binding:"gte=0"`
	SKU            string   `json:"sku"`
	Category       string   `json:"category" binding:"required"`
	Tags           []string `json:"tags"`
	IsActive       *bool    `json:"isActive"`
	IsFeatured     bool     `json:"isFeatured"`
}

func (s *Server) adminCreateProduct(c *gin.Context) {
	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Missing required fields"))
		return
	}

	if input.Currency == "" {
		input.Currency = s.cfg.Checkout.Currency
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		Name:           input.Name,
		Slug:           slug.Make(input.Name),
		Description:    input.Description,
		Images:         input.Images,
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Currency:       input.Currency,
		CountInStock:   input.CountInStock,
		SKU:            input.SKU,
		Category:       input.Category,
		Tags:           input.Tags,
		IsActive:       active,
		IsFeatured:     input.IsFeatured,
	}
	if err := s.products.Create(c.Request.Context(), product); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) adminUpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid product id"))
		return
	}

	product, err := s.products.ByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if product == nil {
		s.fail(c, apperr.NotFound("Product not found"))
		return
	}

	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Missing required fields"))
		return
	}

	product.Name = input.Name
	product.Slug = slug.Make(input.Name)
	product.Description = input.Description
	product.Images = input.Images
	product.Price = input.Price
	product.CompareAtPrice = input.CompareAtPrice
	if input.Currency != "" {
		product.Currency = input.Currency
	}
	product.CountInStock = input.CountInStock
	product.SKU = input.SKU
	product.Category = input.Category
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.IsFeatured = input.IsFeatured

	if err := s.products.Update(c.Request.Context(), product); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) adminDeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid product id"))
		return
	}
	if err := s.products.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func (s *Server) adminListOrders(c *gin.Context) {
	filter := store.AdminFilter{
		DeliveryStatus: c.Query("deliveryStatus"),
		PaymentMethod:  c.Query("paymentMethod"),
		Search:         strings.TrimSpace(c.Query("search")),
		Page:           intQuery(c, "page", 1),
		Limit:          intQuery(c, "limit", 10),
	}

	orders, total, err := s.orders.AdminList(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":      orders,
		"totalOrders": total,
		"totalPages":  int(math.Ceil(float64(total) / float64(filter.Limit))),
		"currentPage": filter.Page,
	})
}

type deliveryStatusInput struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) adminUpdateDeliveryStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid order id"))
		return
	}

	var input deliveryStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.fail(c, apperr.Validation("Status is required"))
		return
	}
	status := models.DeliveryStatus(strings.ToUpper(input.Status))
	if !models.ValidDeliveryStatus(status) {
		s.fail(c, apperr.Validation("Invalid delivery status"))
		return
	}

	if err := s.orders.UpdateDeliveryStatus(c.Request.Context(), id, status); err != nil {
		s.fail(c, err)
		return
	}

	order, err := s.orders.ByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) adminRefundOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, apperr.Validation("Invalid order id"))
		return
	}
	if err := s.payments.MarkRefunded(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order refunded"})
}
