package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackpearlke/blackpearl-api/internal/auth"
	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
	"github.com/blackpearlke/blackpearl-api/internal/store"
)

var (
	seedAdminName     string
	seedAdminPhone    string
	seedAdminPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.NewConnection(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		hash, err := auth.HashPassword(seedAdminPassword)
		if err != nil {
			return err
		}

		admin := &models.User{
			Name:         seedAdminName,
			Phone:        auth.NormalizePhone(seedAdminPhone),
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		}
		if err := store.NewUserStore(db).Create(context.Background(), admin); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		fmt.Printf("Admin %s (%s) created\n", admin.Name, admin.Phone)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedAdminName, "name", "Admin", "admin display name")
	seedAdminCmd.Flags().StringVar(&seedAdminPhone, "phone", "", "admin phone number")
	seedAdminCmd.Flags().StringVar(&seedAdminPassword, "password", "", "admin password")
	_ = seedAdminCmd.MarkFlagRequired("phone")
	_ = seedAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedAdminCmd)
}
