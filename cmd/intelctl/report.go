package main

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the analysis pipeline for one brand",
	Long: `Score sentiment, extract keywords, synthesise insights, persist the report
and notify the owner. An interrupted run resumes from its last finished stage.`,
	RunE: runReport,
}

var reportAllCmd = &cobra.Command{
	Use:   "report-all",
	Short: "Run the analysis pipeline for every onboarded brand",
	RunE:  runReportAll,
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Deliver an existing report over email and WhatsApp",
	RunE:  runNotify,
}

func init() {
	reportCmd.Flags().String("brand", "", "brand id (required)")
	_ = reportCmd.MarkFlagRequired("brand")
	notifyCmd.Flags().String("report", "", "report id (required)")
	_ = notifyCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(reportCmd, reportAllCmd, notifyCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, _ := cmd.Flags().GetString("brand")
	brandID, err := uuid.Parse(raw)
	if err != nil {
		return eris.Wrapf(err, "invalid --brand %q", raw)
	}

	application, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := application.Pipeline.Run(ctx, brandID)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runReportAll(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := application.Pipeline.RunAll(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runNotify(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, _ := cmd.Flags().GetString("report")
	reportID, err := uuid.Parse(raw)
	if err != nil {
		return eris.Wrapf(err, "invalid --report %q", raw)
	}

	application, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := application.Notifier.Notify(ctx, reportID)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}
