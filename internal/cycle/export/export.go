// Package export renders an archived snapshot as a downloadable artifact.
// Only structured JSON is implemented; document formats fail loudly.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"revalidation/internal/cycle/models"
	dErrors "revalidation/pkg/domain-errors"
)

// Format names an export format as requested by callers.
type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalizes a caller-supplied format. An empty value means JSON.
func ParseFormat(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatJSON
	}
	return Format(s)
}

// Artifact is a rendered export ready to be written to a response or file.
type Artifact struct {
	Body        []byte
	ContentType string
	Filename    string
}

// CheckFormat reports whether format can be rendered. Every format other than
// JSON returns a CodeUnsupportedFormat error.
func CheckFormat(format Format) error {
	switch format {
	case FormatJSON:
		return nil
	case FormatPDF:
		return dErrors.New(dErrors.CodeUnsupportedFormat, "pdf export is not supported")
	default:
		return dErrors.New(dErrors.CodeUnsupportedFormat, fmt.Sprintf("export format %q is not supported", string(format)))
	}
}

// Export renders snap in format.
func Export(snap *models.Snapshot, format Format) (*Artifact, error) {
	if err := CheckFormat(format); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no archived snapshot to export")
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode export")
	}
	return &Artifact{
		Body:        body,
		ContentType: "application/json",
		Filename:    filename(snap, "json"),
	}, nil
}

func filename(snap *models.Snapshot, ext string) string {
	return fmt.Sprintf("cycle-%d-%s.%s", snap.Cycle.CycleNumber, snap.Cycle.ID.String(), ext)
}
