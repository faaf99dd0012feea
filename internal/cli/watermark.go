package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/btc-connector/internal/control"
	"github.com/vietddude/btc-connector/internal/core/domain"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Inspect or override the persisted watermark",
}

var watermarkShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current watermark",
	Args:  cobra.NoArgs,
	Run:   runWatermarkShow,
}

var watermarkSetCmd = &cobra.Command{
	Use:   "set [timestamp]",
	Short: "Set the watermark to an RFC 3339 timestamp or epoch seconds",
	Args:  cobra.ExactArgs(1),
	Run:   runWatermarkSet,
}

var watermarkResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the watermark so the next cycle starts cold",
	Args:  cobra.NoArgs,
	Run:   runWatermarkReset,
}

func init() {
	watermarkCmd.AddCommand(watermarkShowCmd, watermarkSetCmd, watermarkResetCmd)
	rootCmd.AddCommand(watermarkCmd)
}

func openBackend(ctx context.Context) *control.WatermarkBackend {
	cfg := loadConfig()
	backend, err := control.OpenWatermark(ctx, cfg.Watermark)
	if err != nil {
		slog.Error("Failed to open watermark store", "backend", cfg.Watermark.Backend, "error", err)
		os.Exit(1)
	}
	return backend
}

func runWatermarkShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	backend := openBackend(ctx)
	defer func() {
		_ = backend.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "WATERMARK\tEPOCH\tAGE")
	if ts, ok := backend.Manager.Read(ctx); ok {
		age := time.Since(ts).Round(time.Second)
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", domain.FormatWatermark(ts), ts.Unix(), age)
	} else {
		_, _ = fmt.Fprintln(w, "none\t-\t-")
	}
	_ = w.Flush()
}

func runWatermarkSet(cmd *cobra.Command, args []string) {
	ts, err := parseTimestampArg(args[0])
	if err != nil {
		fmt.Printf("Invalid timestamp: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	backend := openBackend(ctx)
	defer func() {
		_ = backend.Close()
	}()

	// Write, not Advance: an operator may move the watermark backwards.
	if err := backend.Manager.Write(ctx, ts); err != nil {
		slog.Error("Failed to set watermark", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully set watermark to %s\n", domain.FormatWatermark(ts))
}

func runWatermarkReset(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	backend := openBackend(ctx)
	defer func() {
		_ = backend.Close()
	}()

	if err := backend.Manager.Reset(ctx); err != nil {
		slog.Error("Failed to reset watermark", "error", err)
		os.Exit(1)
	}

	fmt.Println("Successfully reset watermark")
}

// parseTimestampArg accepts RFC 3339 or positive epoch seconds.
func parseTimestampArg(arg string) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if sec, err := strconv.ParseInt(arg, 10, 64); err == nil {
		ts, ok := domain.EpochWatermark(sec)
		if !ok {
			return time.Time{}, fmt.Errorf("epoch seconds must be positive, got %d", sec)
		}
		return ts, nil
	}
	return domain.ParseWatermark(arg)
}
