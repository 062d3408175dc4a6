package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "parish/internal/jwt_token"
	"parish/internal/platform/config"
	id "parish/pkg/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			uid, err := id.ParseUserID(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer).GenerateAccessToken(uid, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
