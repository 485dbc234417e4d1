package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/internal/config"
)

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		zap.L().Info("received interrupt, shutting down")
		cancel()
	}()

	var cfg *config.Config
	rootCmd := &cobra.Command{
		Use:   "site-photo-ingest",
		Short: "Ingest and analyze construction site photos",
		Long: `Uploads construction site photos to S3-compatible storage, enriching
each with EXIF metadata, historical weather, and a reverse-geocoded
address, then queues them for AI analysis.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.InitLogger(loaded.Log); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}

	rootCmd.AddCommand(newIngestCommand(&cfg))
	rootCmd.AddCommand(newAnalyzeCommand(&cfg))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
