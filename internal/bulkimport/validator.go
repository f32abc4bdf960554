// Package bulkimport feeds the certificate generation pipeline from
// spreadsheet data with partial-failure semantics: rows are validated and
// imported independently, and per-row problems become classified skip
// reasons instead of batch failures.
package bulkimport

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"internhub/certificate-portal/certificate-backend/internal/certificates"
)

// Row is one raw spreadsheet row after header and alias resolution. Values
// are untrimmed strings exactly as read from the sheet. Line is the 1-based
// position among the sheet's data rows, counting dropped blank rows, so skip
// reports line up with the source spreadsheet; a zero Line means the row was
// built programmatically and its slice position is used instead.
type Row struct {
	Line             int
	CertificateID    string
	StudentName      string
	InternshipDomain string
	Email            string
	StartDate        string
	EndDate          string
}

// blank reports whether every cell of the row is empty after trimming.
// Trailing blank rows are common in exported spreadsheets and are dropped
// silently rather than reported.
func (r Row) blank() bool {
	return strings.TrimSpace(r.CertificateID) == "" &&
		strings.TrimSpace(r.StudentName) == "" &&
		strings.TrimSpace(r.InternshipDomain) == "" &&
		strings.TrimSpace(r.Email) == "" &&
		strings.TrimSpace(r.StartDate) == "" &&
		strings.TrimSpace(r.EndDate) == ""
}

// RowResult is the tagged outcome of validating one row: either an accepted,
// normalized record or a classified skip reason. Validation never returns an
// error for a bad row; only whole-input failures are errors, and those are
// raised by the parser, not here.
type RowResult struct {
	Accepted bool
	Record   certificates.GenerateRequest
	Reason   string
}

func rejected(reason string) RowResult {
	return RowResult{Reason: reason}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// dateLayouts recognized in spreadsheet cells, tried in order. Excelize
// returns date cells formatted per their cell style, so both ISO and the
// common display formats are accepted.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"02-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Validate runs the staged checks for a single row: required fields,
// certificate ID shape, email shape, date parsing, then date ordering,
// stopping at the first failed stage. On acceptance the record comes back normalized: strings trimmed,
// certificate ID uppercased, email lowercased.
func Validate(row Row) RowResult {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"certificateId", row.CertificateID},
		{"studentName", row.StudentName},
		{"internshipDomain", row.InternshipDomain},
		{"startDate", row.StartDate},
		{"endDate", row.EndDate},
		{"email", row.Email},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return rejected("missing required fields: " + strings.Join(missing, ", "))
	}

	id := certificates.NormalizeID(row.CertificateID)
	if !certificates.ValidID(id) {
		return rejected(fmt.Sprintf("invalid certificateId: %s", strings.TrimSpace(row.CertificateID)))
	}

	email := strings.ToLower(strings.TrimSpace(row.Email))
	if !emailPattern.MatchString(email) {
		return rejected(fmt.Sprintf("invalid email format: %s", strings.TrimSpace(row.Email)))
	}

	start, ok := parseDate(row.StartDate)
	if !ok {
		return rejected(fmt.Sprintf("invalid start date format: %s", strings.TrimSpace(row.StartDate)))
	}
	end, ok := parseDate(row.EndDate)
	if !ok {
		return rejected(fmt.Sprintf("invalid end date format: %s", strings.TrimSpace(row.EndDate)))
	}
	if end.Before(start) {
		return rejected(fmt.Sprintf("end date (%s) is before start date (%s)",
			end.Format("2006-01-02"), start.Format("2006-01-02")))
	}

	return RowResult{
		Accepted: true,
		Record: certificates.GenerateRequest{
			CertificateID:    id,
			StudentName:      strings.TrimSpace(row.StudentName),
			InternshipDomain: strings.TrimSpace(row.InternshipDomain),
			Email:            email,
			StartDate:        start,
			EndDate:          end,
		},
	}
}
