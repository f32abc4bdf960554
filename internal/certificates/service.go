package certificates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"internhub/certificate-portal/certificate-backend/pkg/storage"
)

// GenerateRequest carries the validated input for a new certificate.
type GenerateRequest struct {
	CertificateID    string
	StudentName      string
	InternshipDomain string
	Email            string
	StartDate        time.Time
	EndDate          time.Time
}

// Service orchestrates hashing, persistence, and artifact generation for
// certificates. All collaborators are injected; the service holds no global
// state and is safe for concurrent use across distinct certificate IDs.
type Service struct {
	repo     Repository
	store    storage.ArtifactStore
	qr       *QREncoder
	renderer *Renderer
	logger   *zap.Logger
}

func NewService(repo Repository, store storage.ArtifactStore, qr *QREncoder, renderer *Renderer, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		qr:       qr,
		renderer: renderer,
		logger:   logger,
	}
}

// Generate creates the authoritative record first and only then produces the
// derived artifacts. The record is the durable source of truth; artifacts are
// regenerable projections and must never block its existence. A duplicate ID
// is rejected by the store's unique constraint. Artifact failures after the
// record is persisted are returned as *ArtifactError together with the
// created record, so callers can distinguish "already exists" from "created
// but not yet rendered" and repair the latter via EnsureArtifacts.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*CertificateRecord, error) {
	rec := &CertificateRecord{
		CertificateID:    NormalizeID(req.CertificateID),
		StudentName:      strings.TrimSpace(req.StudentName),
		InternshipDomain: strings.TrimSpace(req.InternshipDomain),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		CreatedAt:        time.Now().UTC(),
	}
	if !ValidID(rec.CertificateID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCertificateID, rec.CertificateID)
	}
	if rec.EndDate.Before(rec.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", ErrInvalidDateRange,
			rec.StartDate.UTC().Format("2006-01-02"), rec.EndDate.UTC().Format("2006-01-02"))
	}

	rec.Hash = ComputeHash(rec.Identity())

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("certificate record created",
		zap.String("certificate_id", rec.CertificateID),
		zap.String("hash", rec.Hash))

	if err := s.generateArtifacts(ctx, rec); err != nil {
		s.logger.Warn("certificate created but artifact generation failed",
			zap.String("certificate_id", rec.CertificateID),
			zap.Error(err))
		return rec, err
	}
	return rec, nil
}

func (s *Service) generateArtifacts(ctx context.Context, rec *CertificateRecord) error {
	qrRef, err := s.qr.Generate(ctx, rec.CertificateID, rec.Hash)
	if err != nil {
		return &ArtifactError{CertificateID: rec.CertificateID, Stage: "qr", Err: err}
	}
	if err := s.repo.UpdateArtifactRefs(ctx, rec.CertificateID, &qrRef, nil); err != nil {
		return &ArtifactError{CertificateID: rec.CertificateID, Stage: "qr", Err: err}
	}
	rec.QRArtifactRef = &qrRef

	pdfRef, err := s.renderer.Render(ctx, rec, qrRef)
	if err != nil {
		return &ArtifactError{CertificateID: rec.CertificateID, Stage: "pdf", Err: err}
	}
	if err := s.repo.UpdateArtifactRefs(ctx, rec.CertificateID, nil, &pdfRef); err != nil {
		return &ArtifactError{CertificateID: rec.CertificateID, Stage: "pdf", Err: err}
	}
	rec.PDFArtifactRef = &pdfRef
	return nil
}

// Get loads a certificate record by its (normalized) ID.
func (s *Service) Get(ctx context.Context, certificateID string) (*CertificateRecord, error) {
	return s.repo.GetByID(ctx, NormalizeID(certificateID))
}

// Verify loads the record and checks the candidate hash against a fresh
// recomputation of the canonical hash.
func (s *Service) Verify(ctx context.Context, certificateID, candidateHash string) (*CertificateRecord, bool, error) {
	rec, err := s.repo.GetByID(ctx, NormalizeID(certificateID))
	if err != nil {
		return nil, false, err
	}
	return rec, VerifyHash(rec.Identity(), candidateHash), nil
}

// EnsureArtifacts regenerates only the artifacts that are missing from the
// record or absent from storage. The hash is never recomputed and uniqueness
// is not re-checked; the operation is idempotent and safe to call repeatedly,
// for example to heal a backlog after a crash mid-pipeline.
func (s *Service) EnsureArtifacts(ctx context.Context, certificateID string) (*CertificateRecord, error) {
	rec, err := s.repo.GetByID(ctx, NormalizeID(certificateID))
	if err != nil {
		return nil, err
	}

	needQR, err := s.artifactMissing(ctx, rec.QRArtifactRef)
	if err != nil {
		return nil, err
	}
	if needQR {
		qrRef, err := s.qr.Generate(ctx, rec.CertificateID, rec.Hash)
		if err != nil {
			return rec, &ArtifactError{CertificateID: rec.CertificateID, Stage: "qr", Err: err}
		}
		if err := s.repo.UpdateArtifactRefs(ctx, rec.CertificateID, &qrRef, nil); err != nil {
			return rec, &ArtifactError{CertificateID: rec.CertificateID, Stage: "qr", Err: err}
		}
		rec.QRArtifactRef = &qrRef
		s.logger.Info("regenerated qr artifact", zap.String("certificate_id", rec.CertificateID))
	}

	needPDF, err := s.artifactMissing(ctx, rec.PDFArtifactRef)
	if err != nil {
		return nil, err
	}
	if needPDF {
		pdfRef, err := s.renderer.Render(ctx, rec, *rec.QRArtifactRef)
		if err != nil {
			return rec, &ArtifactError{CertificateID: rec.CertificateID, Stage: "pdf", Err: err}
		}
		if err := s.repo.UpdateArtifactRefs(ctx, rec.CertificateID, nil, &pdfRef); err != nil {
			return rec, &ArtifactError{CertificateID: rec.CertificateID, Stage: "pdf", Err: err}
		}
		rec.PDFArtifactRef = &pdfRef
		s.logger.Info("regenerated pdf artifact", zap.String("certificate_id", rec.CertificateID))
	}

	return rec, nil
}

func (s *Service) artifactMissing(ctx context.Context, ref *string) (bool, error) {
	if ref == nil {
		return true, nil
	}
	ok, err := s.store.Exists(ctx, *ref)
	if err != nil {
		return false, fmt.Errorf("check artifact %s: %w", *ref, err)
	}
	return !ok, nil
}

// PDFArtifact returns the ref of the certificate's rendered PDF. When the
// artifact already exists in storage this is a pure cache hit; otherwise the
// missing artifacts are regenerated first.
func (s *Service) PDFArtifact(ctx context.Context, certificateID string) (string, error) {
	rec, err := s.repo.GetByID(ctx, NormalizeID(certificateID))
	if err != nil {
		return "", err
	}
	if rec.PDFArtifactRef != nil {
		ok, err := s.store.Exists(ctx, *rec.PDFArtifactRef)
		if err != nil {
			return "", fmt.Errorf("check artifact %s: %w", *rec.PDFArtifactRef, err)
		}
		if ok {
			return *rec.PDFArtifactRef, nil
		}
	}
	rec, err = s.EnsureArtifacts(ctx, certificateID)
	if err != nil {
		return "", err
	}
	return *rec.PDFArtifactRef, nil
}

// Delete removes the authoritative record, then sweeps the artifact blobs on
// a best-effort basis. The record store never retains refs to a deleted
// record; a leftover blob is harmless and unreachable.
func (s *Service) Delete(ctx context.Context, certificateID string) error {
	id := NormalizeID(certificateID)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, key := range []string{QRArtifactKey(id), PDFArtifactKey(id)} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to sweep artifact blob",
				zap.String("certificate_id", id),
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return nil
}

// ReconcileArtifacts heals up to limit records whose artifact refs are
// missing. Used by the repair worker; per-record failures are logged and
// counted, never fatal for the sweep.
func (s *Service) ReconcileArtifacts(ctx context.Context, limit int) (repaired, failed int, err error) {
	recs, err := s.repo.ListMissingArtifacts(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return repaired, failed, err
		}
		if _, err := s.EnsureArtifacts(ctx, recs[i].CertificateID); err != nil {
			failed++
			s.logger.Warn("artifact repair failed",
				zap.String("certificate_id", recs[i].CertificateID),
				zap.Error(err))
			continue
		}
		repaired++
	}
	return repaired, failed, nil
}
