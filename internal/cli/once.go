package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/btc-connector/internal/control"
	"github.com/vietddude/btc-connector/internal/core/domain"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and exit",
	Long:  `Runs one fetch, send and advance cycle and prints the per-dataset result. Exits non-zero when the cycle failed.`,
	Args:  cobra.NoArgs,
	Run:   runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewConnector(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize connector", "error", err)
		os.Exit(1)
	}

	report := app.RunOnce(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSENT\tSKIPPED\tERROR")
	for _, ds := range report.Datasets {
		errText := "-"
		if ds.Err != nil {
			errText = fmt.Sprintf("%s: %v", ds.FailedStage, ds.Err)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", ds.Dataset, ds.Sent, ds.Skipped, errText)
	}
	_ = w.Flush()

	fmt.Printf("\noutcome: %s\n", report.Outcome)
	if report.Watermark != nil {
		fmt.Printf("watermark: %s\n", domain.FormatWatermark(*report.Watermark))
	}
	if report.Err != nil {
		fmt.Printf("error: %v\n", report.Err)
	}

	if report.Outcome == domain.OutcomeFailed {
		os.Exit(1)
	}
}
