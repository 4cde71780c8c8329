package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/server"
	"github.com/spf13/cobra"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user (development)",
	Long:  `Signs an HS256 token with JWT_SECRET whose subject is the given user id.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (required)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	userID, err := uuid.Parse(tokenUser)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	token, err := server.NewJWTService(&cfg.JWT).GenerateToken(userID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
