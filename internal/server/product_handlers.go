package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
)

func intQuery(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (s *Server) listProducts(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 12)
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := s.products.List(c.Request.Context(), page, limit, search)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":      products,
		"page":          page,
		"totalProducts": total,
		"totalPages":    int(math.Ceil(float64(total) / float64(limit))),
	})
}

func (s *Server) getProduct(c *gin.Context) {
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
	c.JSON(http.StatusOK, product)
}
