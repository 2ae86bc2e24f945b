// Package extract turns resume documents into normalized plain text.
//
// Supported formats are PDF, DOCX, legacy DOC (advisory text only) and plain
// text. Results are always returned as data: unsupported formats, damaged
// files and panics inside a decoder all become an unsuccessful
// types.ExtractionResult rather than an error value.
package extract

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/textnorm"
	"resumelens/internal/types"
)

// Supported document formats
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatDOC  = "doc"
	FormatTXT  = "txt"
)

// Metadata keys set on successful results
const (
	MetaExtractor     = "extractor"
	MetaPages         = "pages"
	MetaPagesWithText = "pages_with_text"
	MetaTitle         = "title"
	MetaParagraphs    = "paragraphs"
	MetaEncoding      = "encoding"

	ExtractorPrimary = "primary"
	ExtractorDocconv = "docconv"
)

// DefaultMaxFileSize is used when no limit is configured
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// rawDocument is the unnormalized output of a format strategy
type rawDocument struct {
	text     string
	metadata map[string]string
}

type strategy func(data []byte) (rawDocument, error)

// Extractor dispatches documents to a format strategy by file extension.
type Extractor struct {
	maxFileSize int64
	fallback    bool
	logger      *errors.Logger

	strategies map[string]strategy
	fallbacks  map[string]strategy
}

// New creates an Extractor from the extraction configuration. logger may be nil.
func New(cfg config.ExtractionConfig, logger *errors.Logger) *Extractor {
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	return &Extractor{
		maxFileSize: maxFileSize,
		fallback:    cfg.Fallback,
		logger:      logger,
		strategies: map[string]strategy{
			FormatPDF:  extractPDF,
			FormatDOCX: extractDOCX,
			FormatDOC:  extractDOC,
			FormatTXT:  extractTXT,
		},
		fallbacks: map[string]strategy{
			FormatPDF:  docconvPDF,
			FormatDOCX: docconvDOCX,
		},
	}
}

// SupportedFormats lists the accepted extensions without the dot
func SupportedFormats() []string {
	return []string{FormatPDF, FormatDOCX, FormatDOC, FormatTXT}
}

// FormatOf returns the lower-cased extension of filename without the dot and
// whether it is a supported format.
func FormatOf(filename string) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case FormatPDF, FormatDOCX, FormatDOC, FormatTXT:
		return ext, true
	default:
		return ext, false
	}
}

func unsupported(filename string) types.ExtractionResult {
	ext := strings.ToLower(filepath.Ext(filename))
	return types.Failed(strings.TrimPrefix(ext, "."), errors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("Nicht unterstütztes Dateiformat: %s", ext))
}

// Extract reads the document at path and extracts its text.
func (e *Extractor) Extract(path string) types.ExtractionResult {
	format, ok := FormatOf(path)
	if !ok {
		return unsupported(path)
	}

	data, result, ok := e.readFile(path, format)
	if !ok {
		return result
	}
	return e.extract(data, format, path)
}

// ExtractBytes extracts text from an in-memory document. filename only
// selects the format.
func (e *Extractor) ExtractBytes(data []byte, filename string) types.ExtractionResult {
	format, ok := FormatOf(filename)
	if !ok {
		return unsupported(filename)
	}
	if int64(len(data)) > e.maxFileSize {
		return e.tooLarge(format, int64(len(data)))
	}
	return e.extract(data, format, filename)
}

// ExtractReader reads r up to the size limit and extracts its text.
func (e *Extractor) ExtractReader(r io.Reader, filename string) types.ExtractionResult {
	format, ok := FormatOf(filename)
	if !ok {
		return unsupported(filename)
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxFileSize+1))
	if err != nil {
		return types.Failed(format, errors.ErrCodeFileNotReadable, err.Error())
	}
	if int64(len(data)) > e.maxFileSize {
		return e.tooLarge(format, int64(len(data)))
	}
	return e.extract(data, format, filename)
}

func (e *Extractor) readFile(path, format string) ([]byte, types.ExtractionResult, bool) {
	file, err := os.Open(path)
	if err != nil {
		code := errors.ErrCodeFileNotReadable
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return nil, types.Failed(format, code, err.Error()), false
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, types.Failed(format, errors.ErrCodeFileNotReadable, err.Error()), false
	}
	if info.Size() > e.maxFileSize {
		return nil, e.tooLarge(format, info.Size()), false
	}

	data, err := io.ReadAll(io.LimitReader(file, e.maxFileSize+1))
	if err != nil {
		return nil, types.Failed(format, errors.ErrCodeFileNotReadable, err.Error()), false
	}
	if int64(len(data)) > e.maxFileSize {
		return nil, e.tooLarge(format, int64(len(data))), false
	}
	return data, types.ExtractionResult{}, true
}

func (e *Extractor) tooLarge(format string, size int64) types.ExtractionResult {
	return types.Failed(format, errors.ErrCodeFileTooLarge,
		fmt.Sprintf("file size %d bytes exceeds limit of %d bytes", size, e.maxFileSize))
}

// extract runs the primary strategy and, where allowed, the fallback
func (e *Extractor) extract(data []byte, format, name string) types.ExtractionResult {
	doc, err := runStrategy(e.strategies[format], data)
	extractor := ExtractorPrimary

	if err != nil && e.canFallBack(format, err) {
		e.logWarn("primary extraction failed, trying docconv", "file", name, "format", format, "error", err.Error())
		fallbackDoc, fallbackErr := runStrategy(e.fallbacks[format], data)
		if fallbackErr == nil {
			doc, err, extractor = fallbackDoc, nil, ExtractorDocconv
		} else {
			e.logWarn("docconv fallback failed", "file", name, "format", format, "error", fallbackErr.Error())
		}
	}

	if err != nil {
		e.logWarn("extraction failed", "file", name, "format", format, "error", err.Error())
		return types.Failed(format, errors.ErrCodeExtractionFailed, err.Error())
	}

	text := textnorm.Clean(doc.text)
	metadata := doc.metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata[MetaExtractor] = extractor

	result := types.ExtractionResult{
		Success:   true,
		Text:      text,
		Format:    format,
		WordCount: textnorm.WordCount(text),
		Metadata:  metadata,
	}
	if e.logger != nil {
		e.logger.Debug("document extracted",
			"file", name,
			"format", format,
			"extractor", extractor,
			"word_count", result.WordCount)
	}
	return result
}

func (e *Extractor) canFallBack(format string, err error) bool {
	if !e.fallback || e.fallbacks[format] == nil {
		return false
	}
	return !stderrors.Is(err, errNoPages)
}

func (e *Extractor) logWarn(message string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(message, args...)
	}
}

// runStrategy converts a panic inside a decoder into an error
func runStrategy(fn strategy, data []byte) (doc rawDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = rawDocument{}
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(data)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
