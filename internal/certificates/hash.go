package certificates

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// hashDelimiter joins the identity fields in the canonical string. Changing
// it would invalidate every previously issued hash.
const hashDelimiter = "|"

// ComputeHash returns the canonical SHA-256 fingerprint of the identity
// fields: certificate ID, student name, internship domain, start date, and
// end date, joined in that order with "|". Dates are normalized to
// YYYY-MM-DD in UTC; zero values contribute an empty segment, so the
// function is total and deterministic over any input. No other field
// participates.
func ComputeHash(id IdentityFields) string {
	canonical := strings.Join([]string{
		id.CertificateID,
		id.StudentName,
		id.InternshipDomain,
		canonicalDate(id.StartDate),
		canonicalDate(id.EndDate),
	}, hashDelimiter)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// VerifyHash recomputes the canonical hash and compares it byte-for-byte
// against the candidate. The comparison is case-sensitive.
func VerifyHash(id IdentityFields, candidate string) bool {
	return ComputeHash(id) == candidate
}

func canonicalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
