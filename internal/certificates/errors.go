// Package certificates implements the certificate generation and verification
// pipeline: canonical hashing, QR encoding, PDF rendering, and the service
// that orchestrates them against the record and artifact stores.
package certificates

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCertificate is returned when a certificate ID already exists
	// in the record store. Generation is a create-once operation; an existing
	// record is never overwritten.
	ErrDuplicateCertificate = errors.New("certificate already exists")

	// ErrCertificateNotFound indicates that no record exists for the requested
	// certificate ID.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrInvalidDateRange is returned when the end date precedes the start
	// date.
	ErrInvalidDateRange = errors.New("end date is before start date")

	// ErrInvalidCertificateID is returned when a certificate ID is empty or
	// contains path separators or parent references, which would let the ID
	// address artifact storage outside its prefix.
	ErrInvalidCertificateID = errors.New("invalid certificate id")

	// ErrTemplateUnavailable indicates the certificate template could not be
	// read. This is a misconfiguration: it aborts the whole generation step
	// rather than being retried per record.
	ErrTemplateUnavailable = errors.New("certificate template unavailable")

	// ErrURLTooLong is returned when the verification URL exceeds the
	// encodable capacity of the QR error-correction level.
	ErrURLTooLong = errors.New("verification URL exceeds QR code capacity")
)

// ArtifactError reports a QR or PDF generation failure that happened after
// the record was durably persisted. The record remains valid and
// hash-bearing; callers may repair it later via EnsureArtifacts.
type ArtifactError struct {
	CertificateID string
	Stage         string // "qr" or "pdf"
	Err           error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s artifact generation failed for %s: %v", e.Stage, e.CertificateID, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}
