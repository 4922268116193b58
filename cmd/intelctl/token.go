package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octobees/brandintel/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a service token for the pipeline endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).GenerateToken(subject, auth.RoleService)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().String("subject", "scheduler", "token subject")
	rootCmd.AddCommand(tokenCmd)
}
