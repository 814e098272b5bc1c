package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/server"
)

var tokenUserID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	Long:  "Signs a JWT with JWT_SECRET for the given user, for calling the API without the hosted auth service.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		return mintToken(jwtCfg, tokenUserID, cmd.OutOrStdout())
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUserID, "user-id", "u", "", "User ID to put in the token (a new one when empty)")
	rootCmd.AddCommand(tokenCmd)
}

func mintToken(jwtCfg *config.JWTConfig, rawUserID string, out io.Writer) error {
	userID := uuid.New()
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			return fmt.Errorf("invalid user-id: %w", err)
		}
		userID = parsed
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(userID)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
