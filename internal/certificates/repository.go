package certificates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository is the persistent record store for certificates. The unique
// constraint on certificate_id is the authoritative guard against concurrent
// duplicate creation: of two racing Create calls for the same ID, exactly one
// wins and the loser receives ErrDuplicateCertificate.
type Repository interface {
	Create(ctx context.Context, rec *CertificateRecord) error
	GetByID(ctx context.Context, certificateID string) (*CertificateRecord, error)
	// UpdateArtifactRefs sets the artifact refs for a record. A nil ref leaves
	// the corresponding column unchanged.
	UpdateArtifactRefs(ctx context.Context, certificateID string, qrRef, pdfRef *string) error
	List(ctx context.Context, limit, offset int) ([]CertificateRecord, error)
	// ListMissingArtifacts returns records with at least one absent artifact
	// ref, oldest first.
	ListMissingArtifacts(ctx context.Context, limit int) ([]CertificateRecord, error)
	Delete(ctx context.Context, certificateID string) error
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	certificate_id    TEXT PRIMARY KEY,
	student_name      TEXT NOT NULL,
	internship_domain TEXT NOT NULL,
	email             TEXT NOT NULL,
	start_date        DATE NOT NULL,
	end_date          DATE NOT NULL,
	hash              TEXT NOT NULL,
	qr_artifact_ref   TEXT,
	pdf_artifact_ref  TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// EnsureSchema creates the certificates table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure certificates schema: %w", err)
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, rec *CertificateRecord) error {
	query := `
		INSERT INTO certificates (
			certificate_id, student_name, internship_domain, email,
			start_date, end_date, hash, qr_artifact_ref, pdf_artifact_ref, created_at
		) VALUES (
			:certificate_id, :student_name, :internship_domain, :email,
			:start_date, :end_date, :hash, :qr_artifact_ref, :pdf_artifact_ref, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateCertificate, rec.CertificateID)
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, certificateID string) (*CertificateRecord, error) {
	var rec CertificateRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM certificates WHERE certificate_id = $1", certificateID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCertificateNotFound, certificateID)
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &rec, nil
}

func (r *postgresRepository) UpdateArtifactRefs(ctx context.Context, certificateID string, qrRef, pdfRef *string) error {
	query := `
		UPDATE certificates SET
			qr_artifact_ref  = COALESCE($2, qr_artifact_ref),
			pdf_artifact_ref = COALESCE($3, pdf_artifact_ref)
		WHERE certificate_id = $1`
	res, err := r.db.ExecContext(ctx, query, certificateID, qrRef, pdfRef)
	if err != nil {
		return fmt.Errorf("update artifact refs: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCertificateNotFound, certificateID)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, limit, offset int) ([]CertificateRecord, error) {
	var recs []CertificateRecord
	err := r.db.SelectContext(ctx, &recs,
		"SELECT * FROM certificates ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return recs, nil
}

func (r *postgresRepository) ListMissingArtifacts(ctx context.Context, limit int) ([]CertificateRecord, error) {
	var recs []CertificateRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM certificates
		WHERE qr_artifact_ref IS NULL OR pdf_artifact_ref IS NULL
		ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list certificates with missing artifacts: %w", err)
	}
	return recs, nil
}

func (r *postgresRepository) Delete(ctx context.Context, certificateID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM certificates WHERE certificate_id = $1", certificateID)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCertificateNotFound, certificateID)
	}
	return nil
}
