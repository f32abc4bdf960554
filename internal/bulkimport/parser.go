package bulkimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerAliases maps normalized header names to canonical fields. Matching is
// case-insensitive with spaces, underscores, and hyphens stripped, so
// "Certificate ID", "certificate_id", and "CertificateID" all resolve to the
// same field. "courseName" and "issueDate" are legacy aliases from older
// export formats, resolved during normalization rather than modeled as a
// second schema.
var headerAliases = map[string]string{
	"certificateid": "certificateId",
	"certid":        "certificateId",
	"id":            "certificateId",

	"studentname": "studentName",
	"student":     "studentName",
	"name":        "studentName",

	"internshipdomain": "internshipDomain",
	"domain":           "internshipDomain",
	"coursename":       "internshipDomain",
	"course":           "internshipDomain",

	"email":        "email",
	"emailaddress": "email",
	"emailid":      "email",

	"startdate": "startDate",
	"issuedate": "startDate",

	"enddate": "endDate",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	return h
}

// ParseWorkbook reads the first sheet of an xlsx workbook into rows. The
// first row is the header, matched against the recognized aliases; unknown
// columns are ignored and blank rows are dropped, though their positions
// still count toward row numbering. An unreadable workbook, an
// empty sheet, or a header with no recognized column is an infrastructure
// error for the whole batch.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, errors.New("no data found in workbook")
	}

	fieldFor := map[int]string{}
	for i, h := range cells[0] {
		if field, ok := headerAliases[normalizeHeader(h)]; ok {
			fieldFor[i] = field
		}
	}
	if len(fieldFor) == 0 {
		return nil, errors.New("no recognized columns in header row")
	}

	rows := make([]Row, 0, len(cells)-1)
	for n, raw := range cells[1:] {
		row := Row{Line: n + 1}
		for i, cell := range raw {
			switch fieldFor[i] {
			case "certificateId":
				row.CertificateID = cell
			case "studentName":
				row.StudentName = cell
			case "internshipDomain":
				row.InternshipDomain = cell
			case "email":
				row.Email = cell
			case "startDate":
				row.StartDate = cell
			case "endDate":
				row.EndDate = cell
			}
		}
		if row.blank() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
