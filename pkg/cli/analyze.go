package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/internal/analysis"
	"github.com/sitelens/photo-ingest/internal/config"
	"github.com/sitelens/photo-ingest/internal/store"
	"github.com/sitelens/photo-ingest/pkg/s3client"
)

func newAnalyzeCommand(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run AI analysis over pending photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), *cfg)
		},
	}
}

func runAnalyze(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateAnalysis(); err != nil {
		return err
	}

	storage, err := s3client.New(ctx, s3client.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		return err
	}

	photos, err := store.NewPostgres(ctx, cfg.Database.URL, &cfg.Database.Pool)
	if err != nil {
		return err
	}
	defer photos.Close()

	analyzer := analysis.New(photos, storage, analysis.NewClient(cfg.Analysis.APIKey), analysis.Config{
		Model:       cfg.Analysis.Model,
		MaxTokens:   cfg.Analysis.MaxTokens,
		Concurrency: cfg.Analysis.Concurrency,
		BatchLimit:  cfg.Analysis.BatchLimit,
	})

	n, err := analyzer.Run(ctx)
	if err != nil {
		return err
	}

	zap.L().Info("analysis complete", zap.Int("analyzed", n))
	return nil
}
