package document

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docrag/internal/domain"
)

var sourceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// MaxSourceIDLength bounds source identifiers.
const MaxSourceIDLength = 256

// Document is an ingested source document (immutable value object).
type Document struct {
	sourceID   string
	filename   string
	chunkCount int
	pageCount  int
	createdAt  time.Time
}

// ValidateSourceID checks the source identifier format.
// Colons are rejected because chunk ids are "<source_id>:<index>".
func ValidateSourceID(id string) error {
	if id == "" {
		return fmt.Errorf("source_id is required: %w", domain.ErrInvalidParameter)
	}
	if len(id) > MaxSourceIDLength {
		return fmt.Errorf("source_id too long (max %d): %w", MaxSourceIDLength, domain.ErrInvalidParameter)
	}
	if !sourceIDRegex.MatchString(id) {
		return fmt.Errorf("source_id must contain only letters, digits, '.', '_' or '-': %w",
			domain.ErrInvalidParameter)
	}
	return nil
}

var invalidSourceIDChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SourceIDFromName derives a source id from an uploaded file name. Characters outside
// the allowed set become '-'; a name with nothing usable left gets a name-based UUID.
func SourceIDFromName(name string) string {
	id := strings.Trim(invalidSourceIDChars.ReplaceAllString(filepath.Base(name), "-"), "-.")
	if id == "" || len(id) > MaxSourceIDLength {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte("upload:"+name)).String()
	}
	return id
}

// SourceIDFromPath derives a stable source id for a file on disk: its sanitized base
// name plus a short hash of the absolute path, so equal names in different folders differ.
func SourceIDFromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(abs))).String()[:8]
	base := strings.Trim(invalidSourceIDChars.ReplaceAllString(filepath.Base(abs), "-"), "-.")
	if base == "" {
		return h
	}
	if len(base) > MaxSourceIDLength-9 {
		base = base[:MaxSourceIDLength-9]
	}
	return base + "-" + h
}

// New validates and creates a Document. Filename defaults to the source id.
func New(sourceID, filename string, chunkCount, pageCount int, createdAt time.Time) (Document, error) {
	if err := ValidateSourceID(sourceID); err != nil {
		return Document{}, err
	}
	if chunkCount <= 0 {
		return Document{}, fmt.Errorf("document must have at least one chunk: %w", domain.ErrEmptyInput)
	}
	if pageCount < 0 {
		return Document{}, fmt.Errorf("page count must not be negative: %w", domain.ErrInvalidParameter)
	}
	if filename == "" {
		filename = sourceID
	}
	return Document{
		sourceID:   sourceID,
		filename:   filename,
		chunkCount: chunkCount,
		pageCount:  pageCount,
		createdAt:  createdAt.UTC(),
	}, nil
}

// SourceID returns the document identifier.
func (d *Document) SourceID() string { return d.sourceID }

// Filename returns the original file name.
func (d *Document) Filename() string { return d.filename }

// ChunkCount returns how many chunks the document produced.
func (d *Document) ChunkCount() int { return d.chunkCount }

// PageCount returns the number of source pages (0 when unknown).
func (d *Document) PageCount() int { return d.pageCount }

// CreatedAt returns the ingestion time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }
