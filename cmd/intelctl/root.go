package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/app"
	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "intelctl",
	Short: "Operate the brand intelligence pipeline",
	Long:  "Dispatches scrape runs, generates reports and delivers notifications without going through the HTTP API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if _, err := logger.Init(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the pool and assembles the application graph.
func connect(ctx context.Context) (*app.App, *pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect database")
	}
	return app.New(cfg, pool), pool, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
