// Package extract turns uploaded bytes into normalized text with page spans.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
)

// Supported MIME types.
const (
	MIMEPDF      = "application/pdf"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
)

// pageSeparator joins page texts; segmentation treats it as a paragraph boundary.
const pageSeparator = "\n\n"

// Result is extracted text plus the rune span of every non-empty page.
type Result struct {
	Text      string
	PageSpans []chunk.PageSpan
	PageCount int
	MIME      string
}

// Extract detects the format of data and extracts its text.
// filename only disambiguates markdown from plain text.
func Extract(data []byte, filename string) (Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, fmt.Errorf("%s is empty: %w", filename, domain.ErrEmptyInput)
	}
	mt := Detect(data, filename)
	switch mt {
	case MIMEPDF:
		pages, err := pdfPages(data)
		if err != nil {
			return Result{}, err
		}
		return fromPages(pages, len(pages), mt)
	case MIMEText, MIMEMarkdown:
		return fromPages([]string{decodeText(data)}, 1, mt)
	default:
		return Result{}, fmt.Errorf("%s (%s): %w", filename, mt, domain.ErrUnsupportedFormat)
	}
}

// ExtractFile reads path, refusing files larger than maxBytes when maxBytes > 0.
func ExtractFile(path string, maxBytes int64) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Result{}, fmt.Errorf("%s is %d bytes, limit %d: %w", path, info.Size(), maxBytes, domain.ErrInvalidParameter)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Extract(data, filepath.Base(path))
}

// FromText wraps caller-supplied text. The text is kept verbatim so caller
// spans stay valid. Without spans the whole text is page 1.
func FromText(text string, spans []chunk.PageSpan) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("no text supplied: %w", domain.ErrEmptyInput)
	}
	n := utf8.RuneCountInString(text)
	if len(spans) == 0 {
		spans = []chunk.PageSpan{{Start: 0, End: n, Page: chunk.DefaultPage}}
	}
	pages := 0
	for _, sp := range spans {
		if sp.Start < 0 || sp.End < sp.Start || sp.Page < 1 {
			return Result{}, fmt.Errorf("invalid page span %+v: %w", sp, domain.ErrInvalidParameter)
		}
		pages = max(pages, sp.Page)
	}
	return Result{Text: text, PageSpans: spans, PageCount: pages, MIME: MIMEText}, nil
}

// Detect returns the content type of data, one of the supported constants when recognised.
func Detect(data []byte, filename string) string {
	mt := mimetype.Detect(data)
	if mt.Is(MIMEPDF) {
		return MIMEPDF
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(MIMEText) {
			switch strings.ToLower(filepath.Ext(filename)) {
			case ".md", ".markdown":
				return MIMEMarkdown
			}
			if mt.Is(MIMEText) {
				return MIMEText
			}
			return mt.String()
		}
	}
	return mt.String()
}

// Normalize applies NFKC, unifies line endings and drops NUL runes.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\x00", "")
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "")
}

// fromPages joins non-empty pages and records their rune spans.
func fromPages(pages []string, pageCount int, mt string) (Result, error) {
	var (
		sb    strings.Builder
		spans []chunk.PageSpan
		pos   int
	)
	for i, p := range pages {
		p = strings.TrimSpace(Normalize(p))
		if p == "" {
			continue
		}
		if len(spans) > 0 {
			sb.WriteString(pageSeparator)
			pos += utf8.RuneCountInString(pageSeparator)
		}
		n := utf8.RuneCountInString(p)
		sb.WriteString(p)
		spans = append(spans, chunk.PageSpan{Start: pos, End: pos + n, Page: i + 1})
		pos += n
	}
	if len(spans) == 0 {
		return Result{}, fmt.Errorf("no extractable text: %w", domain.ErrEmptyInput)
	}
	return Result{Text: sb.String(), PageSpans: spans, PageCount: pageCount, MIME: mt}, nil
}
