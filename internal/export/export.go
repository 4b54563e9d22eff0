// Package export renders a user's statement as a downloadable document.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/budget-service/internal/service"
)

// Format is a supported statement format
type Format string

const (
	FormatXML Format = "xml"
	FormatPDF Format = "pdf"
)

// Formats lists the accepted values of the format query parameter
var Formats = []Format{FormatXML, FormatPDF}

// ParseFormat accepts a format name case-insensitively
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// ContentType returns the MIME type of the rendered document
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/xml"
}

// Filename names the attachment after the generation date
func (f Format) Filename(generatedAt time.Time) string {
	return fmt.Sprintf("statement-%s.%s", generatedAt.UTC().Format("2006-01-02"), f)
}

// Write renders st to w in the given format
func Write(w io.Writer, f Format, st *service.Statement) error {
	switch f {
	case FormatXML:
		return writeXML(w, st)
	case FormatPDF:
		return writePDF(w, st)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
