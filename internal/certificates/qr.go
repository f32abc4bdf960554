package certificates

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"internhub/certificate-portal/certificate-backend/pkg/storage"
)

// Brand palette and geometry are fixed so regenerated codes stay visually
// consistent. The Highest recovery level tolerates roughly 30% symbol damage.
const (
	qrImageSize     = 256
	qrRecoveryLevel = qrcode.Highest
)

var (
	qrForeground = color.RGBA{R: 0x00, G: 0x55, B: 0x55, A: 0xff}
	qrBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// QREncoder builds verification URLs and stores their QR code images.
type QREncoder struct {
	baseURL string
	store   storage.ArtifactStore
}

func NewQREncoder(verificationBaseURL string, store storage.ArtifactStore) *QREncoder {
	return &QREncoder{
		baseURL: strings.TrimRight(verificationBaseURL, "/"),
		store:   store,
	}
}

// VerificationURL returns the URL encoded into a certificate's QR code. The
// "h" query parameter name is part of the verification contract.
func (e *QREncoder) VerificationURL(certificateID, hash string) string {
	return fmt.Sprintf("%s/verify/%s?h=%s", e.baseURL, certificateID, hash)
}

// Generate encodes the verification URL and persists the PNG keyed by
// certificate ID, overwriting any prior artifact for that ID. The URL is
// validated against the symbol capacity of the recovery level before
// anything is written to storage.
func (e *QREncoder) Generate(ctx context.Context, certificateID, hash string) (string, error) {
	url := e.VerificationURL(certificateID, hash)
	code, err := qrcode.New(url, qrRecoveryLevel)
	if err != nil {
		return "", wrapEncodeError(err)
	}
	code.ForegroundColor = qrForeground
	code.BackgroundColor = qrBackground

	png, err := code.PNG(qrImageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}

	key := QRArtifactKey(certificateID)
	if err := e.store.Put(ctx, key, bytes.NewReader(png)); err != nil {
		return "", fmt.Errorf("store qr artifact: %w", err)
	}
	return key, nil
}

// wrapEncodeError maps a symbol-capacity failure to ErrURLTooLong; any other
// encoder failure is reported as-is rather than mislabeled as a length
// problem.
func wrapEncodeError(err error) error {
	if strings.Contains(err.Error(), "too long") {
		return fmt.Errorf("%w: %v", ErrURLTooLong, err)
	}
	return fmt.Errorf("encode qr code: %w", err)
}
