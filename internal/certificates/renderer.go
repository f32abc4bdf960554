package certificates

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"internhub/certificate-portal/certificate-backend/pkg/storage"
)

// A4 portrait in millimeters.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginSide   = 15.0
	marginTop    = 20.0
	marginBottom = 20.0
	qrBoxSize    = 40.0
)

// Renderer merges certificate data and the QR image into a paginated PDF and
// persists it through the artifact store.
type Renderer struct {
	templates TemplateSource
	store     storage.ArtifactStore
	logger    *zap.Logger
}

func NewRenderer(templates TemplateSource, store storage.ArtifactStore, logger *zap.Logger) *Renderer {
	return &Renderer{
		templates: templates,
		store:     store,
		logger:    logger,
	}
}

// Render produces the certificate PDF and persists it keyed by certificate
// ID, overwriting any prior artifact. A template read failure aborts
// immediately; a render or store failure is retried once before being
// surfaced. Transient files are removed on every exit path.
func (r *Renderer) Render(ctx context.Context, rec *CertificateRecord, qrRef string) (string, error) {
	tpl, err := r.templates.Load()
	if err != nil {
		return "", err
	}

	qrPNG, err := r.readArtifact(ctx, qrRef)
	if err != nil {
		return "", fmt.Errorf("read qr artifact: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ref, err := r.renderOnce(ctx, tpl, rec, qrPNG)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		r.logger.Warn("certificate render attempt failed",
			zap.String("certificate_id", rec.CertificateID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return "", lastErr
}

func (r *Renderer) readArtifact(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Renderer) renderOnce(ctx context.Context, tpl *CertificateTemplate, rec *CertificateRecord, qrPNG []byte) (string, error) {
	values := placeholderValues(rec)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(substitutePlaceholders(tpl.Title, values), false)
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.AddPage()

	// Full-bleed background and a double accent border.
	pdf.SetFillColor(tpl.BackgroundColor.R, tpl.BackgroundColor.G, tpl.BackgroundColor.B)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")
	pdf.SetDrawColor(tpl.AccentColor.R, tpl.AccentColor.G, tpl.AccentColor.B)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageWidth-16, pageHeight-16, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(11, 11, pageWidth-22, pageHeight-22, "D")

	pdf.SetY(45)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(tpl.AccentColor.R, tpl.AccentColor.G, tpl.AccentColor.B)
	pdf.CellFormat(0, 14, substitutePlaceholders(tpl.Heading, values), "", 1, "C", false, 0, "")

	if tpl.Subheading != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 14)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, 8, substitutePlaceholders(tpl.Subheading, values), "", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetTextColor(30, 30, 30)
	for i, line := range tpl.BodyLines {
		// The first body line carries the student name in the fixed layout;
		// render it larger.
		if i == 0 {
			pdf.SetFont("Helvetica", "B", 20)
		} else {
			pdf.SetFont("Helvetica", "", 13)
		}
		pdf.CellFormat(0, 10, substitutePlaceholders(line, values), "", 1, "C", false, 0, "")
	}

	imageName := "qr-" + rec.CertificateID
	pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions(imageName, (pageWidth-qrBoxSize)/2, pageHeight-marginBottom-qrBoxSize-20, qrBoxSize, qrBoxSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetY(pageHeight - marginBottom - 14)
	pdf.CellFormat(0, 5, "Scan the code to verify this certificate", "", 1, "C", false, 0, "")
	if tpl.Footer != "" {
		pdf.CellFormat(0, 5, substitutePlaceholders(tpl.Footer, values), "", 1, "C", false, 0, "")
	}

	if pdf.Err() {
		return "", fmt.Errorf("render certificate pdf: %w", pdf.Error())
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("certificate-%s-%s.pdf", rec.CertificateID, uuid.NewString()))
	defer os.Remove(tmp)
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		return "", fmt.Errorf("write certificate pdf: %w", err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		return "", fmt.Errorf("reopen certificate pdf: %w", err)
	}
	defer f.Close()

	key := PDFArtifactKey(rec.CertificateID)
	if err := r.store.Put(ctx, key, f); err != nil {
		return "", fmt.Errorf("store pdf artifact: %w", err)
	}
	return key, nil
}

// displayDate is the human-facing date format used on the rendered document.
func displayDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

func placeholderValues(rec *CertificateRecord) map[string]string {
	return map[string]string{
		"certificateId":    rec.CertificateID,
		"studentName":      rec.StudentName,
		"internshipDomain": rec.InternshipDomain,
		"startDate":        displayDate(rec.StartDate),
		"endDate":          displayDate(rec.EndDate),
		"email":            rec.Email,
		"hash":             rec.Hash,
	}
}
