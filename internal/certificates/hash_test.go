package certificates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleIdentity() IdentityFields {
	return IdentityFields{
		CertificateID:    "CERT-2025-001",
		StudentName:      "Emily Carter",
		InternshipDomain: "Cloud Fundamentals",
		StartDate:        date(2025, time.January, 10),
		EndDate:          date(2025, time.January, 10),
	}
}

func TestComputeHashKnownDigest(t *testing.T) {
	// SHA-256("CERT-2025-001|Emily Carter|Cloud Fundamentals|2025-01-10|2025-01-10")
	const want = "5d87a7b853dc5cf266c53f6f23c9426b69ec70e757fb03aa90b1e427880c4462"
	assert.Equal(t, want, ComputeHash(sampleIdentity()))
}

func TestComputeHashDeterministic(t *testing.T) {
	id := sampleIdentity()
	assert.Equal(t, ComputeHash(id), ComputeHash(id))
}

func TestComputeHashCoversOnlyIdentityFields(t *testing.T) {
	rec := &CertificateRecord{
		CertificateID:    "CERT-2025-001",
		StudentName:      "Emily Carter",
		InternshipDomain: "Cloud Fundamentals",
		Email:            "emily@example.com",
		StartDate:        date(2025, time.January, 10),
		EndDate:          date(2025, time.January, 10),
	}
	base := ComputeHash(rec.Identity())

	// Email and artifact refs do not participate.
	rec.Email = "other@example.com"
	ref := "pdfs/CERT-2025-001.pdf"
	rec.PDFArtifactRef = &ref
	assert.Equal(t, base, ComputeHash(rec.Identity()))

	// Any identity field does.
	rec.StudentName = "Emily B. Carter"
	assert.NotEqual(t, base, ComputeHash(rec.Identity()))
}

func TestComputeHashDateNormalization(t *testing.T) {
	id := sampleIdentity()
	base := ComputeHash(id)

	// Same instant expressed in a non-UTC zone hashes identically.
	est := time.FixedZone("EST", -5*3600)
	id.StartDate = time.Date(2025, time.January, 10, 5, 30, 0, 0, est)
	assert.Equal(t, base, ComputeHash(id))
}

func TestComputeHashMissingFieldsAreEmpty(t *testing.T) {
	// A zero-valued identity is still hashable: four delimiters, no content.
	assert.Equal(t, ComputeHash(IdentityFields{}), ComputeHash(IdentityFields{}))
	assert.Len(t, ComputeHash(IdentityFields{}), 64)
}

func TestVerifyHashRoundTrip(t *testing.T) {
	id := sampleIdentity()
	h := ComputeHash(id)
	assert.True(t, VerifyHash(id, h))

	// Flipping one hex character must fail, as must a case change.
	flipped := []byte(h)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.False(t, VerifyHash(id, string(flipped)))
	assert.False(t, VerifyHash(id, "5D87"+h[4:]))
}
