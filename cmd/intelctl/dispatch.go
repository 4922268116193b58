package main

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Start scrape runs for tracked brands",
	Long: `Start the social, marketplace review and competitor ad scrape runs for
every tracked brand, or for a single brand with --brand.

Results arrive later through the webhook endpoint.`,
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().String("brand", "", "limit dispatch to one brand id")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var brandID *uuid.UUID
	if raw, _ := cmd.Flags().GetString("brand"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return eris.Wrapf(err, "invalid --brand %q", raw)
		}
		brandID = &id
	}

	application, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := application.Dispatcher.Dispatch(ctx, brandID)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}
