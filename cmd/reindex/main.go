// Command reindex rebuilds the catalog index once and exits, or asks a
// running search service to do so over Kafka.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/utafrali/catalog-search/internal/app"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/event"
	"github.com/utafrali/catalog-search/pkg/logger"
)

var (
	requestOnly bool
	reason      string
)

var rootCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the catalog search index",
	Long: `Rebuild the catalog search index from the configured source.

The standby index is recreated, every catalog document is imported into it
and the read alias is swapped once the import succeeded. Configuration is
read from the same environment as the search service.

Examples:
  reindex                          # run the reindex in this process
  reindex --request --reason=sync  # publish a reindex request instead`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&requestOnly, "request", false, "publish a reindex request to Kafka instead of running locally")
	rootCmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded with a published request")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New("search-reindex", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("close failed", slog.String("error", err.Error()))
		}
	}()

	if requestOnly {
		publisher := application.Publisher()
		if publisher == nil {
			return errors.New("--request needs KAFKA_ENABLED=true")
		}
		if err := publisher.RequestReindex(ctx, event.ReindexRequested{Reason: reason, RequestedBy: "cmd/reindex"}); err != nil {
			return err
		}
		log.Info("reindex request published", slog.String("topic", event.TopicReindexRequested))
		return nil
	}

	result, err := application.Service().Reindex(ctx)
	if err != nil {
		log.Error("reindex failed", slog.String("error", err.Error()))
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
