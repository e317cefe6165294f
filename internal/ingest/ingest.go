package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Errors reported by Ingest. DecodeError wraps format-level decode failures
// and carries the offending filename.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyContent      = errors.New("document contains no text content")
)

// DecodeError reports that a document's bytes could not be decoded as the
// format its extension claims.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Chunk is one normalized text window of a document, carrying its source
// metadata. Chunks are produced here and owned by the vector index afterward.
type Chunk struct {
	Text     string
	Source   string
	FileType string
	Uploaded bool
}

// File types attached to chunks and reported to callers.
const (
	FileTypeText = "text"
	FileTypeWord = "word"
)

// FileType maps a filename to its reported document type, or "" when the
// extension is not supported.
func FileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return FileTypeText
	case ".doc", ".docx":
		return FileTypeWord
	default:
		return ""
	}
}

// Ingest converts a raw uploaded document into text chunks. It is a pure
// transform: persisting the chunks is the caller's responsibility.
//
// Plain text must be valid UTF-8; word-processor documents contribute every
// non-empty paragraph followed by every non-empty table cell in document
// order, one unit per line. Any other extension fails before the content is
// read.
func Ingest(raw []byte, filename string) ([]Chunk, error) {
	var text string

	switch FileType(filename) {
	case FileTypeText:
		if !utf8.Valid(raw) {
			return nil, &DecodeError{Filename: filename, Err: errors.New("invalid UTF-8 byte sequence")}
		}
		text = string(raw)

	case FileTypeWord:
		extracted, err := extractWordText(raw, filename)
		if err != nil {
			return nil, err
		}
		text = extracted

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	fileType := FileType(filename)
	pieces := Split(text, ChunkSize, ChunkOverlap)
	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{
			Text:     p,
			Source:   filepath.Base(filename),
			FileType: fileType,
		})
	}
	return chunks, nil
}

// IngestUpload is Ingest with the uploaded flag set on every chunk,
// distinguishing user uploads from folder-seeded documents.
func IngestUpload(raw []byte, filename string) ([]Chunk, error) {
	chunks, err := Ingest(raw, filename)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Uploaded = true
	}
	return chunks, nil
}
