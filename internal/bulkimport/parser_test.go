package bulkimport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, header []string, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Import"))
	require.NoError(t, f.SetSheetRow("Import", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Import", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestParseWorkbookResolvesAliases(t *testing.T) {
	// Legacy export headers: spacing, casing, and the courseName/issueDate
	// aliases all resolve to the canonical fields.
	buf := buildWorkbook(t,
		[]string{"Certificate ID", "Student Name", "Course Name", "E-Mail", "Issue Date", "End Date", "Ignored"},
		[][]string{
			{"CERT-1", "Emily Carter", "Cloud Fundamentals", "emily@example.com", "2025-01-10", "2025-04-10", "x"},
		})

	rows, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		Line:             1,
		CertificateID:    "CERT-1",
		StudentName:      "Emily Carter",
		InternshipDomain: "Cloud Fundamentals",
		Email:            "emily@example.com",
		StartDate:        "2025-01-10",
		EndDate:          "2025-04-10",
	}, rows[0])
}

func TestParseWorkbookDropsBlankRows(t *testing.T) {
	buf := buildWorkbook(t,
		[]string{"certificateId", "studentName", "internshipDomain", "email", "startDate", "endDate"},
		[][]string{
			{"CERT-1", "Emily Carter", "Cloud", "emily@example.com", "2025-01-10", "2025-04-10"},
			{"", "", "", "", "", ""},
			{"CERT-2", "Rahul Mehta", "Data", "rahul@example.com", "2025-02-01", "2025-05-01"},
		})

	rows, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CERT-2", rows[1].CertificateID)

	// The dropped blank row keeps its place in the numbering, so reported
	// row numbers still match the spreadsheet.
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 3, rows[1].Line)
}

func TestParseWorkbookKeepsPartialRows(t *testing.T) {
	// Rows with missing cells are kept for the validator to classify.
	buf := buildWorkbook(t,
		[]string{"certificateId", "studentName", "internshipDomain", "email", "startDate", "endDate"},
		[][]string{
			{"CERT-1", "Emily Carter", "Cloud", "", "2025-01-10", ""},
		})

	rows, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Email)
}

func TestParseWorkbookRejectsUnrecognizedHeader(t *testing.T) {
	buf := buildWorkbook(t, []string{"foo", "bar"}, [][]string{{"1", "2"}})
	_, err := ParseWorkbook(buf)
	assert.ErrorContains(t, err, "no recognized columns")
}

func TestParseWorkbookRejectsGarbageInput(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewReader([]byte("not a spreadsheet")))
	assert.ErrorContains(t, err, "open workbook")
}

func TestSampleWorkbookRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSampleWorkbook(&buf))

	rows, err := ParseWorkbook(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		res := Validate(row)
		assert.True(t, res.Accepted, res.Reason)
	}
}
