package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/auth"
	"github.com/blackpearlke/blackpearl-api/internal/checkout"
	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/notify"
	"github.com/blackpearlke/blackpearl-api/internal/payment"
	"github.com/blackpearlke/blackpearl-api/internal/store"
)

type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	db       *database.DB
	users    *store.UserStore
	products *store.ProductStore
	carts    *store.CartStore
	orders   *store.OrderStore
	tokens   *auth.Manager
	checkout *checkout.Service
	payments *payment.Service
	notifier notify.Notifier
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *database.DB, tokens *auth.Manager,
	checkoutSvc *checkout.Service, payments *payment.Service, notifier notify.Notifier) *Server {

	router := gin.Default()

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	server := &Server{
		router:   router,
		cfg:      cfg,
		db:       db,
		users:    store.NewUserStore(db),
		products: store.NewProductStore(db),
		carts:    store.NewCartStore(db),
		orders:   store.NewOrderStore(db),
		tokens:   tokens,
		checkout: checkoutSvc,
		payments: payments,
		notifier: notifier,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		users := api.Group("/users")
		{
			users.POST("/register", s.registerUser)
			users.POST("/login", s.loginUser)
			users.POST("/refresh", s.refreshToken)
			users.POST("/logout", s.logoutUser)
			users.POST("/forgot-password", s.forgotPassword)
			users.POST("/reset-password", s.resetPassword)
			users.GET("/profile", s.requireUser(), s.getProfile)
			users.PUT("/profile", s.requireUser(), s.updateProfile)
			users.DELETE("/profile", s.requireUser(), s.deleteAccount)
		}

		products := api.Group("/products")
		{
			products.GET("", s.listProducts)
			products.GET("/:id", s.getProduct)
		}

		cart := api.Group("/cart", s.requireUser())
		{
			cart.GET("", s.getCart)
			cart.POST("", s.addToCart)
			cart.PUT("", s.updateCartItem)
			cart.DELETE("/:productId", s.removeCartItem)
			cart.DELETE("", s.clearCart)
		}

		orders := api.Group("/orders", s.requireUser())
		{
			orders.POST("", s.createOrder)
			orders.GET("/my", s.myOrders)
			orders.GET("/:id", s.getOrder)
		}

		mpesa := api.Group("/mpesa")
		{
			mpesa.POST("/stkpush", s.requireUser(), s.initiateSTKPush)
			mpesa.POST("/callback", s.mpesaCallback)
			mpesa.GET("/status/:checkoutRequestId", s.requireUser(), s.querySTKStatus)
		}

		stripe := api.Group("/stripe")
		{
			stripe.POST("/create-payment-intent", s.requireUser(), s.createStripeIntent)
			stripe.POST("/webhook", s.stripeWebhook)
		}

		admin := api.Group("/admin", s.requireUser(), s.requireAdmin())
		{
			admin.GET("/dashboard", s.adminDashboard)
			admin.GET("/products", s.adminListProducts)
			admin.POST("/products", s.adminCreateProduct)
			admin.PUT("/products/:id", s.adminUpdateProduct)
			admin.DELETE("/products/:id", s.adminDeleteProduct)
			admin.GET("/orders", s.adminListOrders)
			admin.PUT("/orders/:id/delivery-status", s.adminUpdateDeliveryStatus)
			admin.POST("/orders/:id/refund", s.adminRefundOrder)
		}
	}
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "blackpearl-api",
		"version": "0.1.0",
	})
}

// fail maps an error to its HTTP response. Unexpected errors and upstream
// failures are logged with the route; the caller only ever sees the safe
// message.
func (s *Server) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError || apperr.IsKind(err, apperr.KindUpstream) {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"message": apperr.Message(err)})
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
