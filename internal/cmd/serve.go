package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackpearlke/blackpearl-api/internal/auth"
	"github.com/blackpearlke/blackpearl-api/internal/checkout"
	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/notify"
	"github.com/blackpearlke/blackpearl-api/internal/payment"
	"github.com/blackpearlke/blackpearl-api/internal/payment/mpesa"
	"github.com/blackpearlke/blackpearl-api/internal/payment/stripepay"
	"github.com/blackpearlke/blackpearl-api/internal/server"
	"github.com/blackpearlke/blackpearl-api/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Black Pearl API server",
	Long: `Start the HTTP server exposing the storefront API:
- product catalog, cart and checkout
- M-Pesa STK push and Stripe payments
- admin dashboard and order management`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Connecting to database...")
	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	notifier, err := notify.New(&cfg.SMS)
	if err != nil {
		return fmt.Errorf("failed to set up notifier: %w", err)
	}

	// Provider clients and services are constructed once here and
	// injected; nothing below reaches for globals.
	tokens := auth.NewManager(cfg.Auth)
	checkoutSvc := checkout.NewService(store.NewCheckoutStore(db), cfg.Checkout)
	payments := payment.NewService(
		store.NewOrderStore(db),
		mpesa.NewClient(cfg.Mpesa),
		stripepay.NewGateway(cfg.Stripe),
		notifier,
	)

	fmt.Println("Setting up server...")
	srv := server.NewServer(cfg, db, tokens, checkoutSvc, payments, notifier)

	fmt.Printf("Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
