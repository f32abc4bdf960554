package bulkimport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sampleHeaders are the canonical column names; any of the recognized
// aliases would import identically.
var sampleHeaders = []string{"certificateId", "studentName", "internshipDomain", "email", "startDate", "endDate"}

var sampleRows = [][]string{
	{"CERT-2025-001", "Emily Carter", "Cloud Fundamentals", "emily.carter@example.com", "2025-01-10", "2025-04-10"},
	{"CERT-2025-002", "Rahul Mehta", "Data Engineering", "rahul.mehta@example.com", "2025-02-01", "2025-05-01"},
	{"CERT-2025-003", "Sofia Alvarez", "Backend Development", "sofia.alvarez@example.com", "2025-03-15", "2025-06-15"},
}

// WriteSampleWorkbook writes an example import workbook with the recognized
// headers and a few valid rows.
func WriteSampleWorkbook(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Certificates"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("create sample sheet: %w", err)
	}

	for i, h := range sampleHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write sample header: %w", err)
		}
	}
	for r, row := range sampleRows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write sample row: %w", err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write sample workbook: %w", err)
	}
	return nil
}
