package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"internhub/certificate-portal/certificate-backend/internal/bulkimport"
	"internhub/certificate-portal/certificate-backend/internal/certificates"
	"internhub/certificate-portal/certificate-backend/internal/config"
	"internhub/certificate-portal/certificate-backend/pkg/storage"
)

const dateLayout = "2006-01-02"

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: certctl <command> [flags]

commands:
  generate  create a single certificate with artifacts
  import    bulk-import certificates from an xlsx workbook
  verify    check a candidate hash against a stored certificate
  pdf       print the PDF artifact ref, generating it if missing
  repair    regenerate missing artifacts for the backlog
  sample    write a sample import workbook`)
}

func run(ctx context.Context, logger *zap.Logger, cmd string, args []string) error {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	if cmd == "sample" {
		return runSample(args)
	}

	svc, db, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "generate":
		return runGenerate(ctx, svc, logger, args)
	case "import":
		return runImport(ctx, cfg, svc, logger, args)
	case "verify":
		return runVerify(ctx, svc, args)
	case "pdf":
		return runPDF(ctx, svc, args)
	case "repair":
		return runRepair(ctx, svc, logger, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*certificates.Service, *sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := certificates.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var templates certificates.TemplateSource
	if cfg.Certificates.TemplatePath != "" {
		templates = certificates.NewFileTemplateSource(cfg.Certificates.TemplatePath)
	} else {
		templates = &certificates.StaticTemplateSource{Template: certificates.DefaultTemplate()}
	}

	repo := certificates.NewRepository(db)
	qr := certificates.NewQREncoder(cfg.Certificates.VerificationBaseURL, store)
	renderer := certificates.NewRenderer(templates, store, logger)
	return certificates.NewService(repo, store, qr, renderer, logger), db, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.PublicBaseURL)
	case "", "local":
		return storage.NewFileStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func runGenerate(ctx context.Context, svc *certificates.Service, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	id := fs.String("id", "", "certificate ID")
	name := fs.String("name", "", "student name")
	domain := fs.String("domain", "", "internship domain")
	email := fs.String("email", "", "student email")
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startDate, err := time.Parse(dateLayout, *start)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	endDate, err := time.Parse(dateLayout, *end)
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}

	rec, err := svc.Generate(ctx, certificates.GenerateRequest{
		CertificateID:    *id,
		StudentName:      *name,
		InternshipDomain: *domain,
		Email:            *email,
		StartDate:        startDate,
		EndDate:          endDate,
	})
	if err != nil {
		var artifactErr *certificates.ArtifactError
		if errors.As(err, &artifactErr) && rec != nil {
			// The record exists; only the derived artifacts are pending.
			logger.Warn("certificate created without artifacts; run `certctl repair`", zap.Error(err))
			return printJSON(rec)
		}
		return err
	}
	return printJSON(rec)
}

func runImport(ctx context.Context, cfg *config.Config, svc *certificates.Service, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "xlsx workbook path")
	workers := fs.Int("workers", cfg.Import.Workers, "parallel rows")
	onDuplicate := fs.String("on-duplicate", cfg.Import.OnDuplicate, "reject, skip, or overwrite")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("import: -file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	coord := bulkimport.NewCoordinator(svc, logger)
	summary, err := coord.ImportWorkbook(ctx, f, bulkimport.Options{
		OnDuplicate: bulkimport.DuplicatePolicy(*onDuplicate),
		Workers:     *workers,
	})
	if err != nil {
		if summary != nil {
			_ = printJSON(summary)
		}
		return err
	}
	return printJSON(summary)
}

func runVerify(ctx context.Context, svc *certificates.Service, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	id := fs.String("id", "", "certificate ID")
	hash := fs.String("hash", "", "candidate hash")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, ok, err := svc.Verify(ctx, *id, *hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("hash mismatch for certificate %s", rec.CertificateID)
	}
	fmt.Printf("certificate %s verified (issued to %s)\n", rec.CertificateID, rec.StudentName)
	return nil
}

func runPDF(ctx context.Context, svc *certificates.Service, args []string) error {
	fs := flag.NewFlagSet("pdf", flag.ExitOnError)
	id := fs.String("id", "", "certificate ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ref, err := svc.PDFArtifact(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Println(ref)
	return nil
}

func runRepair(ctx context.Context, svc *certificates.Service, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	limit := fs.Int("limit", 100, "max records to repair")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repaired, failed, err := svc.ReconcileArtifacts(ctx, *limit)
	if err != nil {
		return err
	}
	logger.Info("artifact repair finished", zap.Int("repaired", repaired), zap.Int("failed", failed))
	return nil
}

func runSample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	out := fs.String("out", "sample-certificates.xlsx", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create sample workbook: %w", err)
	}
	defer f.Close()
	return bulkimport.WriteSampleWorkbook(f)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
