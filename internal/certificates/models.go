package certificates

import (
	"strings"
	"time"
)

// CertificateRecord is the authoritative record for one issued certificate.
// CertificateID is stored normalized (trimmed, uppercase) and is the unique
// primary key. Hash is computed once at creation and never mutated; the
// artifact refs are derived, regenerable projections and stay nil until the
// corresponding artifact has been produced.
type CertificateRecord struct {
	CertificateID    string    `json:"certificate_id" db:"certificate_id"`
	StudentName      string    `json:"student_name" db:"student_name"`
	InternshipDomain string    `json:"internship_domain" db:"internship_domain"`
	Email            string    `json:"email" db:"email"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
	Hash             string    `json:"hash" db:"hash"`
	QRArtifactRef    *string   `json:"qr_artifact_ref,omitempty" db:"qr_artifact_ref"`
	PDFArtifactRef   *string   `json:"pdf_artifact_ref,omitempty" db:"pdf_artifact_ref"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// IdentityFields is the exact subset of certificate data covered by the
// canonical hash. Email and the artifact refs are deliberately excluded.
type IdentityFields struct {
	CertificateID    string
	StudentName      string
	InternshipDomain string
	StartDate        time.Time
	EndDate          time.Time
}

// Identity returns the hash-covered subset of the record.
func (r *CertificateRecord) Identity() IdentityFields {
	return IdentityFields{
		CertificateID:    r.CertificateID,
		StudentName:      r.StudentName,
		InternshipDomain: r.InternshipDomain,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
	}
}

// NormalizeID canonicalizes a certificate ID for storage and lookup.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidID reports whether a normalized certificate ID is safe to embed in an
// artifact key. Path separators and parent references are rejected so an ID
// can never address storage outside its artifact prefix.
func ValidID(id string) bool {
	return id != "" &&
		!strings.ContainsAny(id, `/\`) &&
		!strings.Contains(id, "..")
}

// QRArtifactKey is the artifact store key for a certificate's QR code image.
func QRArtifactKey(certificateID string) string {
	return "qrcodes/" + certificateID + ".png"
}

// PDFArtifactKey is the artifact store key for a certificate's rendered PDF.
func PDFArtifactKey(certificateID string) string {
	return "pdfs/" + certificateID + ".pdf"
}
