// Package artifact turns rendered PDF bytes into a downloadable response.
package artifact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgecomet/chatexport/internal/common/config"
)

const (
	ContentTypePDF = "application/pdf"
	pdfSuffix      = ".pdf"
)

// Artifact is a finished document ready to stream to the caller
type Artifact struct {
	Body     []byte
	Title    string
	FileName string
}

func (a *Artifact) ContentType() string {
	return ContentTypePDF
}

func (a *Artifact) ContentDisposition() string {
	return fmt.Sprintf(`attachment; filename="%s"`, a.FileName)
}

func (a *Artifact) ContentLength() string {
	return strconv.Itoa(len(a.Body))
}

// Headers returns the delivery headers in a stable order
func (a *Artifact) Headers() [][2]string {
	return [][2]string{
		{"Content-Type", a.ContentType()},
		{"Content-Disposition", a.ContentDisposition()},
		{"Content-Length", a.ContentLength()},
	}
}

// SanitizeFileName maps name onto [A-Za-z0-9-_.], one '_' per disallowed
// rune, and forces a .pdf suffix within cfg.MaxFileNameLength bytes.
// An empty name yields cfg.DefaultFileName, passed through the same rules.
func SanitizeFileName(name string, cfg config.ExportConfig) string {
	if name == "" {
		name = cfg.DefaultFileName
	}
	if name == "" {
		name = config.DefaultExportConfig().DefaultFileName
	}

	maxLen := cfg.MaxFileNameLength
	if maxLen <= len(pdfSuffix) {
		maxLen = 255
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isAllowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() == maxLen {
			break
		}
	}
	sanitized := b.String()

	if strings.HasSuffix(sanitized, pdfSuffix) {
		return sanitized
	}
	if len(sanitized)+len(pdfSuffix) > maxLen {
		sanitized = sanitized[:maxLen-len(pdfSuffix)]
	}
	return sanitized + pdfSuffix
}

func isAllowed(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}

// Finalize names the document: the requested name wins, then the page
// title, then the configured default title.
func Finalize(body []byte, requestedName, title string, cfg config.ExportConfig) *Artifact {
	if title == "" {
		title = cfg.DefaultTitle
	}

	source := requestedName
	if source == "" {
		source = title
	}

	return &Artifact{
		Body:     body,
		Title:    title,
		FileName: SanitizeFileName(source, cfg),
	}
}
