package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blackpearl",
	Short: "The Black Pearl API - e-commerce storefront backend",
	Long: `The Black Pearl API serves the storefront: product catalog, carts,
checkout, orders and M-Pesa/Stripe payments.

Run "serve" to start the HTTP server, "migrate" to apply the database
schema, or "seed-admin" to create the first admin account.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
