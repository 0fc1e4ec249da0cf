// Command token mints a session token for a user, signed with the backend's JWT_SECRET.
// It stands in for an identity provider during development.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/config"
)

func main() {
	_ = godotenv.Load()

	var user string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			userID := uuid.New()
			if user != "" {
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}

			token, err := auth.GenerateToken([]byte(cfg.Auth.JWTSecret), cfg.App.Name, userID, cfg.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (a new one is generated when empty)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
