package certificates

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RGB represents a template color.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// CertificateTemplate is the fixed layout for rendered certificates. Text
// fields may contain {{token}} placeholders; every occurrence of each token
// is substituted at render time. Recognized tokens: certificateId,
// studentName, internshipDomain, startDate, endDate, email, hash.
type CertificateTemplate struct {
	Title           string   `json:"title"`
	Heading         string   `json:"heading"`
	Subheading      string   `json:"subheading"`
	BodyLines       []string `json:"body_lines"`
	Footer          string   `json:"footer"`
	AccentColor     RGB      `json:"accent_color"`
	BackgroundColor RGB      `json:"background_color"`
}

// TemplateSource provides the certificate layout. Implementations must be
// safe for concurrent use.
type TemplateSource interface {
	Load() (*CertificateTemplate, error)
}

// FileTemplateSource loads the layout from a JSON file on every call, so
// template edits take effect without a restart.
type FileTemplateSource struct {
	path string
}

func NewFileTemplateSource(path string) *FileTemplateSource {
	return &FileTemplateSource{path: path}
}

func (s *FileTemplateSource) Load() (*CertificateTemplate, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	var tpl CertificateTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	if tpl.Heading == "" || len(tpl.BodyLines) == 0 {
		return nil, fmt.Errorf("%w: template missing heading or body lines", ErrTemplateUnavailable)
	}
	return &tpl, nil
}

// StaticTemplateSource serves a fixed in-memory layout.
type StaticTemplateSource struct {
	Template *CertificateTemplate
}

func (s *StaticTemplateSource) Load() (*CertificateTemplate, error) {
	if s.Template == nil {
		return nil, fmt.Errorf("%w: no template configured", ErrTemplateUnavailable)
	}
	return s.Template, nil
}

// DefaultTemplate is the built-in layout used when no template file is
// configured.
func DefaultTemplate() *CertificateTemplate {
	return &CertificateTemplate{
		Title:      "Internship Certificate {{certificateId}}",
		Heading:    "Certificate of Completion",
		Subheading: "This is to certify that",
		BodyLines: []string{
			"{{studentName}}",
			"has successfully completed an internship in",
			"{{internshipDomain}}",
			"from {{startDate}} to {{endDate}}",
		},
		Footer:          "Certificate ID: {{certificateId}}  |  Issued to {{email}}",
		AccentColor:     RGB{R: 0, G: 85, B: 85},
		BackgroundColor: RGB{R: 252, G: 250, B: 245},
	}
}

// substitutePlaceholders replaces every occurrence of each {{token}} in s.
func substitutePlaceholders(s string, values map[string]string) string {
	for token, v := range values {
		s = strings.ReplaceAll(s, "{{"+token+"}}", v)
	}
	return s
}
