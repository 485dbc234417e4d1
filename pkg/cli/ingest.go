package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/internal/batch"
	"github.com/sitelens/photo-ingest/internal/config"
	"github.com/sitelens/photo-ingest/internal/enrich"
	"github.com/sitelens/photo-ingest/internal/ingest"
	"github.com/sitelens/photo-ingest/internal/store"
	"github.com/sitelens/photo-ingest/pkg/s3client"
)

type ingestFlags struct {
	projectID   string
	uploaderID  string
	location    string
	description string
	migrate     bool
}

func newIngestCommand(cfg **config.Config) *cobra.Command {
	var flags ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest [flags] <photo.jpg> | <photo-folder> ...",
		Short: "Upload site photos with metadata enrichment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), *cfg, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.projectID, "project-id", "", "Project the photos belong to (required)")
	cmd.Flags().StringVar(&flags.uploaderID, "uploader-id", "", "Identifier of the person uploading")
	cmd.Flags().StringVar(&flags.location, "location", "", "Free-text location, e.g. \"4F B區\"")
	cmd.Flags().StringVar(&flags.description, "description", "", "Free-text description applied to every photo")
	cmd.Flags().BoolVar(&flags.migrate, "migrate", false, "Run database migrations before ingesting")

	cmd.MarkFlagRequired("project-id")

	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config, flags ingestFlags, args []string) error {
	if err := cfg.ValidateIngest(); err != nil {
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

	if flags.migrate {
		if err := photos.Migrate(ctx); err != nil {
			return err
		}
	}

	weather, err := enrich.NewWeatherClient(cfg.Weather.APIKey, cfg.Weather.Units)
	if err != nil {
		return err
	}
	geocode, err := enrich.NewGeocodeClient(cfg.Geocode.APIKey)
	if err != nil {
		return err
	}

	files, err := batch.Collect(ctx, args)
	if err != nil {
		return err
	}

	ing := ingest.New(storage, photos, weather, geocode)
	records, err := ing.Run(ctx, ingest.Job{
		ProjectID:           flags.projectID,
		UploaderID:          flags.uploaderID,
		Description:         flags.description,
		LocationDescription: flags.location,
		Files:               files,
	})
	if err != nil {
		zap.L().Error("batch aborted",
			zap.Int("committed", len(records)),
			zap.Error(err),
		)
		return err
	}

	zap.L().Info("batch complete", zap.Int("ingested", len(records)))
	return nil
}
