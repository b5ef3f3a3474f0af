// Package document turns uploaded PDF and DOCX files into plain text.
package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resumerank/internal/errors"
	"resumerank/internal/types"
)

// Supported media types
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Parser converts one container format into text
type Parser interface {
	Parse(data []byte) (string, error)
}

// ParserFunc adapts a function to Parser
type ParserFunc func(data []byte) (string, error)

// Parse calls f(data)
func (f ParserFunc) Parse(data []byte) (string, error) { return f(data) }

// Extractor dispatches documents to a parser by declared media type.
// It is safe for concurrent use.
type Extractor struct {
	parsers map[string]Parser
	logger  *errors.Logger
}

// NewExtractor returns an extractor for PDF and DOCX
func NewExtractor(logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Extractor{
		parsers: map[string]Parser{
			MediaTypePDF:  ParserFunc(parsePDF),
			MediaTypeDOCX: ParserFunc(parseDOCX),
		},
		logger: logger,
	}
}

// WithParser returns a copy of e that uses p for mediaType
func (e *Extractor) WithParser(mediaType string, p Parser) *Extractor {
	parsers := make(map[string]Parser, len(e.parsers)+1)
	for k, v := range e.parsers {
		parsers[k] = v
	}
	parsers[mediaType] = p
	return &Extractor{parsers: parsers, logger: e.logger}
}

// Supports reports whether mediaType has a parser
func (e *Extractor) Supports(mediaType string) bool {
	_, ok := e.parsers[normalizeMediaType(mediaType)]
	return ok
}

// CheckSupported returns an UNSUPPORTED_FORMAT error for unknown media types
func (e *Extractor) CheckSupported(doc types.Document) error {
	if e.Supports(doc.MediaType) {
		return nil
	}
	return errors.NewFormatError(errors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("Unsupported file type %q. Only PDF and DOCX files are accepted", doc.MediaType), nil).
		WithContext("file", doc.Name)
}

// Extract returns the text of doc, one line per page or paragraph
func (e *Extractor) Extract(ctx context.Context, doc types.Document) (string, error) {
	if err := e.CheckSupported(doc); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	parser := e.parsers[normalizeMediaType(doc.MediaType)]
	text, err := parser.Parse(doc.Content)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("Failed to extract text from %s", doc.Name), err).
			WithContext("file", doc.Name).
			WithContext("media_type", doc.MediaType)
	}

	e.logger.Debug("Extracted document text",
		"file", doc.Name,
		"media_type", doc.MediaType,
		"bytes", len(doc.Content),
		"characters", len(text))

	return text, nil
}

// ExtractFile reads path from disk and extracts it using its extension's media type
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return e.Extract(ctx, doc)
}

// ReadFile loads path as a Document. Unknown extensions are rejected before reading.
func ReadFile(path string) (types.Document, error) {
	doc := types.Document{
		Name:      filepath.Base(path),
		MediaType: MediaTypeFromFilename(path),
	}
	if doc.MediaType == "" {
		return doc, errors.NewFormatError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported file extension %q. Only .pdf and .docx files are accepted", filepath.Ext(path)), nil).
			WithContext("file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", path), err)
		}
		return doc, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot open file: %s", path), err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return doc, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	doc.Content = data
	return doc, nil
}

// MediaTypeFromFilename maps .pdf and .docx to their media types, anything else to ""
func MediaTypeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MediaTypePDF
	case ".docx":
		return MediaTypeDOCX
	default:
		return ""
	}
}

// normalizeMediaType drops parameters such as "; charset=binary"
func normalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
