package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"internhub/certificate-portal/certificate-backend/internal/certificates"
	"internhub/certificate-portal/certificate-backend/internal/config"
	"internhub/certificate-portal/certificate-backend/pkg/storage"
)

// ArtifactWorker periodically scans for certificates whose QR or PDF
// artifacts are missing and regenerates them. A certificate row is the
// source of truth; artifacts can always be rebuilt from it, so a crash
// between persisting a record and writing its artifacts is healed here.
type ArtifactWorker struct {
	service   *certificates.Service
	cron      *cron.Cron
	logger    *zap.Logger
	batchSize int
}

// NewArtifactWorker creates a new artifact repair worker
func NewArtifactWorker(service *certificates.Service, logger *zap.Logger, batchSize int) *ArtifactWorker {
	return &ArtifactWorker{
		service:   service,
		cron:      cron.New(),
		logger:    logger,
		batchSize: batchSize,
	}
}

// Start schedules the repair sweep and runs one immediately
func (w *ArtifactWorker) Start(ctx context.Context, spec string) error {
	if _, err := w.cron.AddFunc(spec, func() { w.sweep(ctx) }); err != nil {
		return err
	}

	w.logger.Info("Starting artifact repair worker",
		zap.String("schedule", spec),
		zap.Int("batch_size", w.batchSize))

	w.cron.Start()
	w.sweep(ctx)
	return nil
}

// Stop stops the cron scheduler and waits for a running sweep to finish
func (w *ArtifactWorker) Stop() {
	w.logger.Info("Stopping artifact repair worker")
	<-w.cron.Stop().Done()
}

func (w *ArtifactWorker) sweep(ctx context.Context) {
	repaired, failed, err := w.service.ReconcileArtifacts(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Artifact repair sweep failed", zap.Error(err))
		return
	}
	if repaired > 0 || failed > 0 {
		w.logger.Info("Artifact repair sweep finished",
			zap.Int("repaired", repaired),
			zap.Int("failed", failed))
	}
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := certificates.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	var store storage.ArtifactStore
	switch cfg.Storage.Backend {
	case "s3":
		store, err = storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.PublicBaseURL)
	default:
		store, err = storage.NewFileStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	}
	if err != nil {
		logger.Fatal("Failed to initialize artifact store", zap.Error(err))
	}

	var templates certificates.TemplateSource
	if cfg.Certificates.TemplatePath != "" {
		templates = certificates.NewFileTemplateSource(cfg.Certificates.TemplatePath)
	} else {
		templates = &certificates.StaticTemplateSource{Template: certificates.DefaultTemplate()}
	}

	service := certificates.NewService(
		certificates.NewRepository(db),
		store,
		certificates.NewQREncoder(cfg.Certificates.VerificationBaseURL, store),
		certificates.NewRenderer(templates, store, logger),
		logger,
	)

	worker := NewArtifactWorker(service, logger, cfg.Repair.BatchSize)
	if err := worker.Start(ctx, cfg.Repair.CronSpec); err != nil {
		logger.Fatal("Failed to start artifact repair worker", zap.Error(err))
	}

	<-ctx.Done()
	worker.Stop()
}
